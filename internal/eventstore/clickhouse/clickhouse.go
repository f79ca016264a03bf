package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/eventstore"
)

var _ eventstore.Store = (*Store)(nil)

const Schema = `
CREATE TABLE IF NOT EXISTS status_events (
    time     DateTime64(3, 'UTC'),
    url      String,
    status   LowCardinality(String),
    cycle_id String
) ENGINE = MergeTree
ORDER BY (url, time)`

const insertSQL = `INSERT INTO status_events (time, url, status, cycle_id)`

const recentSQL = `
SELECT url, status, time
  FROM status_events
 WHERE status IN (?, ?)
   AND time >= ?
 ORDER BY time DESC`

type Options struct {
	Addr     []string
	Database string
	Username string
	Password string
}

type batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// conn is the part of the native driver the store needs.
type conn interface {
	PrepareBatch(ctx context.Context, query string) (batch, error)
	Query(ctx context.Context, query string, args ...any) (rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

type nativeConn struct {
	driver.Conn
}

func (c nativeConn) PrepareBatch(ctx context.Context, query string) (batch, error) {
	return c.Conn.PrepareBatch(ctx, query)
}

func (c nativeConn) Query(ctx context.Context, query string, args ...any) (rows, error) {
	return c.Conn.Query(ctx, query, args...)
}

type Store struct {
	conn conn
	log  *zap.Logger
}

func New(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	c, err := clickhouse.Open(&clickhouse.Options{
		Addr: opts.Addr,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(ctxPing); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	log.Info("clickhouse_connected", zap.Strings("addr", opts.Addr), zap.String("database", opts.Database))
	return &Store{conn: nativeConn{c}, log: log}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.conn.Close() }

// Ingest sends all events as one native batch.
func (s *Store) Ingest(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	b, err := s.conn.PrepareBatch(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, e := range events {
		if err := b.Append(e.Time.UTC(), string(e.Event.URL), string(e.Event.Status), e.CycleID); err != nil {
			_ = b.Abort()
			return fmt.Errorf("append event: %w", err)
		}
	}
	if err := b.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	s.log.Debug("clickhouse_ingest", zap.Int("rows", len(events)))
	return nil
}

func (s *Store) Recent(ctx context.Context, since time.Time) ([]domain.StoredEvent, error) {
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	r, err := s.conn.Query(ctx, recentSQL, eventstore.ValidStatuses[0], eventstore.ValidStatuses[1], since.UTC())
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer r.Close()

	out := []domain.StoredEvent{}
	for r.Next() {
		var (
			url    string
			status string
			at     time.Time
		)
		if err := r.Scan(&url, &status, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, domain.StoredEvent{Target: domain.Target(url), Status: status, Time: at})
	}
	return out, r.Err()
}
