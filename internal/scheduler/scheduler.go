// Package scheduler runs check cycles on a fixed interval, never more than
// one at a time.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/metrics"
)

// CycleRunner runs one complete check cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) CycleReport
}

// Scheduler is Idle or Running; the state lives in a single atomic flag.
type Scheduler struct {
	Logger   *zap.Logger
	Runner   CycleRunner
	Interval time.Duration
	Metrics  *metrics.Metrics

	running atomic.Bool
	wg      sync.WaitGroup
}

func New(logger *zap.Logger, runner CycleRunner, interval time.Duration, m *metrics.Metrics) *Scheduler {
	if interval < 0 {
		interval = 0
	}
	return &Scheduler{Logger: logger, Runner: runner, Interval: interval, Metrics: m}
}

// Run starts a cycle immediately and then one per tick until ctx is
// cancelled. A tick never waits for the cycle it starts. Run returns after
// any in-flight cycle has finished.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval == 0 {
		s.Logger.Info("scheduler_disabled")
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.Logger.Info("scheduler_started", zap.Duration("interval", s.Interval))
	s.spawn(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.Logger.Info("scheduler_stopped")
			return
		case <-t.C:
			s.spawn(ctx)
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.TryRun(ctx)
	}()
}

// TryRun runs one cycle unless one is already running, in which case the
// call is a no-op and reports false. A started cycle is not cancelled by
// ctx; it runs to completion under its own per-check and flush deadlines.
func (s *Scheduler) TryRun(ctx context.Context) (ran bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Info("scheduler_tick_skipped")
		if s.Metrics != nil {
			s.Metrics.TicksSkipped.Inc()
		}
		return false
	}
	defer s.running.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			s.Logger.Error("cycle_panic", zap.Any("panic", rec))
		}
	}()

	ran = true
	s.Runner.RunCycle(context.WithoutCancel(ctx))
	return ran
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }
