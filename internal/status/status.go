// Package status builds the latest-status snapshot shown on the dashboard.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/metrics"
)

// Querier is the read side of the event store.
type Querier interface {
	Recent(ctx context.Context, since time.Time) ([]domain.StoredEvent, error)
}

type Options struct {
	// Lookback bounds the query window; zero means unbounded.
	Lookback time.Duration
	Timeout  time.Duration

	// The breaker opens after FailureThreshold consecutive query failures
	// and lets one probe query through after BreakerDelay.
	FailureThreshold uint
	BreakerDelay     time.Duration
}

type Aggregator struct {
	store   Querier
	log     *zap.Logger
	metrics *metrics.Metrics
	opts    Options
	breaker circuitbreaker.CircuitBreaker[[]domain.StoredEvent]
	now     func() time.Time
}

func New(store Querier, log *zap.Logger, m *metrics.Metrics, opts Options) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.BreakerDelay <= 0 {
		opts.BreakerDelay = 30 * time.Second
	}

	cb := circuitbreaker.NewBuilder[[]domain.StoredEvent]().
		WithFailureThreshold(opts.FailureThreshold).
		WithDelay(opts.BreakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			log.Warn("status_breaker_state_change",
				zap.String("from", stateName(e.OldState)),
				zap.String("to", stateName(e.NewState)),
			)
		}).
		Build()

	return &Aggregator{
		store:   store,
		log:     log,
		metrics: m,
		opts:    opts,
		breaker: cb,
		now:     time.Now,
	}
}

// GetStatus queries the store and reduces the result to one entry per
// target. It never fails: an empty result, a query error and an open
// breaker all yield an empty snapshot.
func (a *Aggregator) GetStatus(ctx context.Context) domain.Snapshot {
	var since time.Time
	if a.opts.Lookback > 0 {
		since = a.now().Add(-a.opts.Lookback)
	}

	// The query is detached from the request: a client that goes away must
	// not count as a store failure and trip the breaker for everyone else.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.Timeout)
	defer cancel()
	events, err := failsafe.With[[]domain.StoredEvent](a.breaker).
		Get(func() ([]domain.StoredEvent, error) {
			return a.store.Recent(qctx, since)
		})
	if err != nil {
		label := "error"
		if errors.Is(err, circuitbreaker.ErrOpen) {
			label = "open"
			a.log.Debug("status_query_short_circuited")
		} else {
			a.log.Warn("status_query_error", zap.Error(err))
		}
		a.count(label)
		return domain.Snapshot{}
	}

	snap := Reduce(events, a.log)
	if len(snap) == 0 {
		a.count("empty")
	} else {
		a.count("success")
	}
	return snap
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerOpen reports whether queries are currently short-circuited.
func (a *Aggregator) BreakerOpen() bool { return a.breaker.IsOpen() }

func (a *Aggregator) count(label string) {
	if a.metrics != nil {
		a.metrics.StatusQueries.WithLabelValues(label).Inc()
	}
}

// Reduce keeps the first event seen per target. events must be sorted by
// time, newest first. Rows whose status is not "pass" or "fail" are skipped.
func Reduce(events []domain.StoredEvent, log *zap.Logger) domain.Snapshot {
	snap := make(domain.Snapshot, len(events))
	dropped := 0
	for _, e := range events {
		st, err := domain.ParseStatus(e.Status)
		if err != nil {
			dropped++
			continue
		}
		if _, seen := snap[e.Target]; seen {
			continue
		}
		snap[e.Target] = domain.Entry{Status: st, Time: e.Time}
	}
	if dropped > 0 && log != nil {
		log.Debug("status_invalid_rows_dropped", zap.Int("rows", dropped))
	}
	return snap
}
