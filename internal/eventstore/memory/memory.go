package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/eventstore"
)

var _ eventstore.Store = (*Store)(nil)

const (
	DefaultMaxEvents = 50_000
	DefaultMaxAge    = 7 * 24 * time.Hour
)

// Store keeps events in process memory, oldest first. History is lost on
// restart and bounded by MaxEvents and MaxAge; it is meant for local runs
// and tests.
type Store struct {
	mu     sync.RWMutex
	events []domain.StoredEvent

	maxEvents int
	maxAge    time.Duration
	now       func() time.Time
}

type Option func(*Store)

// WithMaxEvents caps the number of stored events. Zero or less means no cap.
func WithMaxEvents(n int) Option { return func(s *Store) { s.maxEvents = n } }

// WithMaxAge drops events older than d at ingest time. Zero means no limit.
func WithMaxAge(d time.Duration) Option { return func(s *Store) { s.maxAge = d } }

func New(opts ...Option) *Store {
	s := &Store{
		events:    make([]domain.StoredEvent, 0, 128),
		maxEvents: DefaultMaxEvents,
		maxAge:    DefaultMaxAge,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (m *Store) Ingest(ctx context.Context, events []domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		at := e.Time
		if at.IsZero() {
			at = m.now().UTC()
		}
		m.insert(domain.StoredEvent{
			Target: e.Event.URL,
			Status: string(e.Event.Status),
			Time:   at,
		})
	}
	m.trim()
	return nil
}

// insert keeps events ordered by time. Events normally arrive in order, so
// this is an append; equal times keep arrival order. Caller holds mu.
func (m *Store) insert(e domain.StoredEvent) {
	n := len(m.events)
	if n == 0 || !e.Time.Before(m.events[n-1].Time) {
		m.events = append(m.events, e)
		return
	}
	i := sort.Search(n, func(i int) bool { return m.events[i].Time.After(e.Time) })
	m.events = append(m.events, domain.StoredEvent{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = e
}

// trim drops the oldest events beyond the retention bounds. Caller holds mu.
func (m *Store) trim() {
	drop := 0
	if m.maxAge > 0 {
		cutoff := m.now().Add(-m.maxAge)
		drop = sort.Search(len(m.events), func(i int) bool { return !m.events[i].Time.Before(cutoff) })
	}
	if m.maxEvents > 0 && len(m.events)-drop > m.maxEvents {
		drop = len(m.events) - m.maxEvents
	}
	if drop == 0 {
		return
	}
	// copy into a fresh slice so the dropped prefix can be collected
	kept := make([]domain.StoredEvent, len(m.events)-drop, cap(m.events))
	copy(kept, m.events[drop:])
	m.events = kept
}

// Recent walks the ordered history backwards from the newest event and stops
// at since, so no sort happens per call.
func (m *Store) Recent(ctx context.Context, since time.Time) ([]domain.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if !since.IsZero() {
		start = sort.Search(len(m.events), func(i int) bool { return !m.events[i].Time.Before(since) })
	}
	out := make([]domain.StoredEvent, 0, len(m.events)-start)
	for i := len(m.events) - 1; i >= start; i-- {
		e := m.events[i]
		if _, err := domain.ParseStatus(e.Status); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Len reports how many events are retained.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *Store) Close() error { return nil }
