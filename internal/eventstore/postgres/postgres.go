package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/eventstore"
)

var _ eventstore.Store = (*Store)(nil)

// Schema is applied by Migrate. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS status_events (
  id       BIGSERIAL PRIMARY KEY,
  time     TIMESTAMPTZ NOT NULL,
  url      TEXT NOT NULL,
  status   TEXT NOT NULL,
  cycle_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_status_events_time     ON status_events (time DESC);
CREATE INDEX IF NOT EXISTS idx_status_events_url_time ON status_events (url, time DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the events table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ingest copies the whole batch in one COPY round trip.
func (s *Store) Ingest(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.Time, string(e.Event.URL), string(e.Event.Status), e.CycleID})
	}
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"status_events"},
		[]string{"time", "url", "status", "cycle_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy events: %w", err)
	}
	s.log.Debug("postgres_ingest", zap.Int64("rows", n))
	return nil
}

func (s *Store) Recent(ctx context.Context, since time.Time) ([]domain.StoredEvent, error) {
	var sinceArg any
	if !since.IsZero() {
		sinceArg = since
	}
	rows, err := s.pool.Query(ctx, `
SELECT url, status, time
  FROM status_events
 WHERE status = ANY($1)
   AND ($2::timestamptz IS NULL OR time >= $2)
 ORDER BY time DESC`, eventstore.ValidStatuses, sinceArg)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredEvent{}
	for rows.Next() {
		var (
			url    string
			status string
			at     time.Time
		)
		if err := rows.Scan(&url, &status, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, domain.StoredEvent{Target: domain.Target(url), Status: status, Time: at})
	}
	return out, rows.Err()
}
