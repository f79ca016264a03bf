package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/metrics"
	"github.com/hamed0406/statuswatch/internal/probe"
)

// TargetSource yields the monitored targets in registry order.
type TargetSource interface {
	All() []domain.Target
}

// Recorder stages outcomes and submits them once per cycle.
type Recorder interface {
	Record(o domain.CheckOutcome, cycleID string)
	Flush(ctx context.Context) error
}

// Diagnoser classifies DNS for a target whose probe failed at transport level.
type Diagnoser interface {
	Diagnose(ctx context.Context, target string) probe.DNSStatus
}

// CycleReport summarises one check cycle.
type CycleReport struct {
	ID       string
	Passed   int
	Failed   int
	Duration time.Duration
	FlushErr error
	Outcomes []domain.CheckOutcome
}

type Runner struct {
	Logger      *zap.Logger
	Targets     TargetSource
	Checker     probe.Checker
	Recorder    Recorder
	DNS         Diagnoser // optional
	Metrics     *metrics.Metrics
	Timeout     time.Duration
	Concurrency int

	now func() time.Time
}

func NewRunner(
	logger *zap.Logger,
	ts TargetSource,
	checker probe.Checker,
	rec Recorder,
	timeout time.Duration,
	concurrency int,
) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		Logger:      logger,
		Targets:     ts,
		Checker:     checker,
		Recorder:    rec,
		Timeout:     timeout,
		Concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle checks every target once, records every outcome and flushes the
// recorder exactly once after all checks have finished.
func (r *Runner) RunCycle(ctx context.Context) CycleReport {
	start := time.Now()
	rep := CycleReport{ID: uuid.NewString()}
	ts := r.Targets.All()

	outcomes := make([]domain.CheckOutcome, len(ts))
	var mu sync.Mutex // guards the pass/fail counters

	var g errgroup.Group
	g.SetLimit(r.Concurrency)
	for i, t := range ts {
		g.Go(func() error {
			defer r.recoverWorker(rep.ID, t)

			o := r.checkOne(ctx, rep.ID, t)
			outcomes[i] = o

			mu.Lock()
			if o.Passed {
				rep.Passed++
			} else {
				rep.Failed++
			}
			mu.Unlock()

			r.Recorder.Record(o, rep.ID)
			r.logOutcome(ctx, rep.ID, o)
			return nil
		})
	}
	_ = g.Wait()

	rep.FlushErr = r.Recorder.Flush(ctx)
	rep.Outcomes = outcomes
	rep.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("cycle_id", rep.ID),
		zap.Int("targets", len(ts)),
		zap.Int("passed", rep.Passed),
		zap.Int("failed", rep.Failed),
		zap.Duration("took", rep.Duration),
	}
	if rep.FlushErr != nil {
		fields = append(fields, zap.NamedError("flush_error", rep.FlushErr))
	}
	r.Logger.Info("cycle_finished", fields...)

	if r.Metrics != nil {
		r.Metrics.CyclesTotal.Inc()
		r.Metrics.CycleDuration.Observe(rep.Duration.Seconds())
	}
	return rep
}

// recoverWorker keeps a panic after the check (recording, logging, DNS
// diagnosis) inside the worker goroutine, where nothing else could catch it.
func (r *Runner) recoverWorker(cycleID string, t domain.Target) {
	if rec := recover(); rec != nil {
		r.Logger.Error("cycle_worker_panic",
			zap.String("cycle_id", cycleID),
			zap.String("url", string(t)),
			zap.Any("panic", rec),
		)
	}
}

// checkOne never panics; a panic in the checker becomes a failed outcome.
func (r *Runner) checkOne(ctx context.Context, cycleID string, t domain.Target) (out domain.CheckOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("check_panic",
				zap.String("cycle_id", cycleID),
				zap.String("url", string(t)),
				zap.Any("panic", rec),
			)
			out = domain.CheckOutcome{
				Target:    t,
				Passed:    false,
				Reason:    probe.ReasonPanic,
				Timestamp: r.now(),
			}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res := r.Checker.Check(cctx, string(t))
	return domain.CheckOutcome{
		Target:     t,
		Passed:     res.Success,
		StatusCode: res.StatusCode,
		LatencyMS:  res.LatencyMS,
		Reason:     res.Message,
		Timestamp:  r.now(),
	}
}

func (r *Runner) logOutcome(ctx context.Context, cycleID string, o domain.CheckOutcome) {
	fields := []zap.Field{
		zap.String("cycle_id", cycleID),
		zap.String("url", string(o.Target)),
		zap.Int("status", o.StatusCode),
		zap.Float64("latency_ms", o.LatencyMS),
		zap.String("reason", o.Reason),
	}

	if o.Passed {
		r.Logger.Info(fmt.Sprintf("[PASS] %s", o.Target), fields...)
		if r.Metrics != nil {
			r.Metrics.ProbesTotal.WithLabelValues("pass").Inc()
		}
		return
	}

	if r.DNS != nil && o.Reason == probe.ReasonHTTPError {
		ds := r.DNS.Diagnose(ctx, string(o.Target))
		fields = append(fields, zap.String("dns", string(ds.Class)))
		if ds.ResolverError != "" {
			fields = append(fields, zap.String("dns_error", ds.ResolverError))
		}
	}
	r.Logger.Warn(fmt.Sprintf("[FAIL] %s", o.Target), fields...)
	if r.Metrics != nil {
		r.Metrics.ProbesTotal.WithLabelValues("fail").Inc()
	}
}
