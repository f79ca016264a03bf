// cmd/preflight/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/config"
	"github.com/hamed0406/statuswatch/internal/eventstore/clickhouse"
	"github.com/hamed0406/statuswatch/internal/eventstore/postgres"
	"github.com/hamed0406/statuswatch/internal/targets"
)

type report struct {
	out, errOut io.Writer
	failed      bool
}

func (r *report) fail(msg string) { fmt.Fprintln(r.errOut, "✖", msg); r.failed = true }
func (r *report) warn(msg string) { fmt.Fprintln(r.errOut, "⚠", msg) }
func (r *report) ok(msg string)   { fmt.Fprintln(r.out, "✔", msg) }

func main() {
	connect := flag.Bool("connect", true, "open a connection to the configured event store")
	flag.Parse()

	config.LoadDotEnv()
	r := &report{out: os.Stdout, errOut: os.Stderr}
	check(r, config.FromEnv(), *connect)
	if r.failed {
		os.Exit(1)
	}
	r.ok("preflight passed")
}

func check(r *report, cfg config.Config, connect bool) {
	if err := cfg.Validate(); err != nil {
		r.fail("config: " + err.Error())
		return
	}
	r.ok("ADDR=" + cfg.Addr)

	reg, err := targets.Load(cfg.TargetsFile)
	switch {
	case err != nil:
		r.fail("targets: " + err.Error())
	case cfg.TargetsFile == "":
		r.warn(fmt.Sprintf("TARGETS_FILE empty; using the %d built-in targets.", reg.Len()))
	default:
		r.ok(fmt.Sprintf("TARGETS_FILE=%s (%d targets)", cfg.TargetsFile, reg.Len()))
	}

	if cfg.CheckTimeout >= cfg.CheckInterval {
		r.warn("CHECK_TIMEOUT_MS >= CHECK_INTERVAL_MS; slow cycles will make ticks skip.")
	}
	if cfg.DashboardRPM == 0 {
		r.warn("DASHBOARD_RPM=0; every dashboard request queries the event store unthrottled.")
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		r.warn("STORE_BACKEND=memory; history is lost on restart.")
		return
	case config.BackendPostgres:
		r.ok("DATABASE_URL present")
	case config.BackendClickHouse:
		r.ok("CLICKHOUSE_ADDR=" + strings.Join(cfg.ClickHouseAddr, ","))
	}
	if !connect {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ping(ctx, cfg); err != nil {
		r.fail(cfg.StoreBackend + " unreachable: " + err.Error())
		return
	}
	r.ok(cfg.StoreBackend + " reachable")
}

func ping(ctx context.Context, cfg config.Config) error {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL, zap.NewNop())
		if err != nil {
			return err
		}
		return s.Close()
	case config.BackendClickHouse:
		s, err := clickhouse.New(ctx, clickhouse.Options{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, zap.NewNop())
		if err != nil {
			return err
		}
		return s.Close()
	}
	return nil
}
