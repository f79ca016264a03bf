package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/config"
	"github.com/hamed0406/statuswatch/internal/dashboard"
	"github.com/hamed0406/statuswatch/internal/eventstore"
	"github.com/hamed0406/statuswatch/internal/eventstore/clickhouse"
	"github.com/hamed0406/statuswatch/internal/eventstore/memory"
	"github.com/hamed0406/statuswatch/internal/eventstore/postgres"
	"github.com/hamed0406/statuswatch/internal/httpapi"
	"github.com/hamed0406/statuswatch/internal/logging"
	"github.com/hamed0406/statuswatch/internal/metrics"
	"github.com/hamed0406/statuswatch/internal/probe"
	"github.com/hamed0406/statuswatch/internal/recorder"
	"github.com/hamed0406/statuswatch/internal/scheduler"
	"github.com/hamed0406/statuswatch/internal/status"
	"github.com/hamed0406/statuswatch/internal/targets"
	"github.com/hamed0406/statuswatch/internal/version"
)

func main() {
	envFiles := config.LoadDotEnv()
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if len(envFiles) > 0 {
		logger.Info("dotenv_loaded", zap.Strings("files", envFiles))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("statuswatch_exit", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := targets.Load(cfg.TargetsFile)
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	info := version.Get(cfg.ReleaseID)
	m := metrics.New()
	m.SetBuildInfo(info.Version, info.ReleaseID)

	rec := recorder.New(store, cfg.StoreTimeout, logger, m)
	runner := scheduler.NewRunner(logger, reg, probe.NewHTTPChecker(cfg.CheckTimeout), rec, cfg.CheckTimeout, cfg.MaxConcurrentChecks)
	runner.DNS = probe.NewDNSDiagnoser()
	runner.Metrics = m
	sched := scheduler.New(logger, runner, cfg.CheckInterval, m)

	agg := status.New(store, logger, m, status.Options{
		Lookback: cfg.StatusLookback,
		Timeout:  cfg.StoreTimeout,
	})
	dash, err := dashboard.New("Status")
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	api := httpapi.NewServer(logger, reg, agg, dash, info)
	api.Metrics = m.Handler()
	api.RateRPM = cfg.DashboardRPM
	api.RateBurst = cfg.DashboardBurst

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen",
			zap.String("addr", cfg.Addr),
			zap.Int("targets", reg.Len()),
			zap.String("store", cfg.StoreBackend),
			zap.String("version", info.Version),
			zap.String("release_id", info.ReleaseID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err = <-serveErr:
		logger.Error("api_serve_error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))

	// an in-flight cycle finishes and flushes before the store closes
	<-schedDone
	logger.Info("shutdown_complete")
	return err
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (eventstore.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		return s, nil
	case config.BackendClickHouse:
		s, err := clickhouse.New(ctx, clickhouse.Options{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		return s, nil
	default:
		logger.Warn("memory_store_in_use",
			zap.String("hint", "events are lost on restart"),
			zap.Int("max_events", cfg.MemoryMaxEvents),
			zap.Duration("retention", cfg.MemoryRetention),
		)
		return memory.New(
			memory.WithMaxEvents(cfg.MemoryMaxEvents),
			memory.WithMaxAge(cfg.MemoryRetention),
		), nil
	}
}
