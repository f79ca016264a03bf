// Package recorder buffers check outcomes and hands them to the event store
// in one batch per cycle.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/eventstore"
	"github.com/hamed0406/statuswatch/internal/metrics"
)

type Recorder struct {
	store   eventstore.Store
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending []domain.Event
}

func New(store eventstore.Store, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Recorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Recorder{store: store, timeout: timeout, log: log, metrics: m}
}

// Record stages one outcome. Safe for concurrent use.
func (r *Recorder) Record(o domain.CheckOutcome, cycleID string) {
	ev := domain.NewEvent(o, cycleID)
	r.mu.Lock()
	r.pending = append(r.pending, ev)
	r.mu.Unlock()
}

// Pending reports how many events are staged.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush submits everything staged so far in a single Ingest call. The
// buffer is emptied whether or not the store accepts it; a failed batch is
// logged with its size and dropped.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	if err := r.store.Ingest(ctx, batch); err != nil {
		r.log.Error("recorder_flush_error",
			zap.Int("dropped", len(batch)),
			zap.Error(err),
		)
		if r.metrics != nil {
			r.metrics.FlushTotal.WithLabelValues("error").Inc()
			r.metrics.EventsDropped.Add(float64(len(batch)))
		}
		return fmt.Errorf("flush %d events: %w", len(batch), err)
	}

	r.log.Debug("recorder_flushed",
		zap.Int("events", len(batch)),
		zap.Duration("took", time.Since(start)),
	)
	if r.metrics != nil {
		r.metrics.FlushTotal.WithLabelValues("success").Inc()
	}
	return nil
}
