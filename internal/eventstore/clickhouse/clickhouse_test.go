package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/domain"
)

type fakeBatch struct {
	appendErrAt int
	sendErr     error
	rows        [][]any
	sent        bool
	aborted     bool
}

func (f *fakeBatch) Append(v ...any) error {
	if f.appendErrAt > 0 && len(f.rows)+1 == f.appendErrAt {
		return errors.New("append failed")
	}
	f.rows = append(f.rows, v)
	return nil
}

func (f *fakeBatch) Send() error {
	f.sent = true
	return f.sendErr
}

func (f *fakeBatch) Abort() error {
	f.aborted = true
	return nil
}

type fakeRows struct {
	data   [][3]any
	i      int
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.i >= len(f.data) {
		return false
	}
	f.i++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.i-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	*dest[2].(*time.Time) = row[2].(time.Time)
	return nil
}

func (f *fakeRows) Err() error   { return nil }
func (f *fakeRows) Close() error { f.closed = true; return nil }

type fakeConn struct {
	batch      *fakeBatch
	prepareErr error
	rows       *fakeRows
	queryErr   error
	queryArgs  []any
	prepared   int
}

func (f *fakeConn) PrepareBatch(_ context.Context, _ string) (batch, error) {
	f.prepared++
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	return f.batch, nil
}

func (f *fakeConn) Query(_ context.Context, _ string, args ...any) (rows, error) {
	f.queryArgs = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeConn) Exec(context.Context, string, ...any) error { return nil }
func (f *fakeConn) Close() error                              { return nil }

func events(n int) []domain.Event {
	out := make([]domain.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Event{
			Time:    time.Unix(int64(1000+i), 0),
			CycleID: "c",
			Event:   domain.EventBody{Status: domain.StatusPass, URL: "https://a.test"},
		})
	}
	return out
}

func TestIngest_SendsOneBatch(t *testing.T) {
	fb := &fakeBatch{}
	fc := &fakeConn{batch: fb}
	s := &Store{conn: fc, log: zap.NewNop()}

	if err := s.Ingest(context.Background(), events(3)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if fc.prepared != 1 || !fb.sent || len(fb.rows) != 3 {
		t.Fatalf("want one batch of 3 sent, got prepared=%d sent=%v rows=%d", fc.prepared, fb.sent, len(fb.rows))
	}
	if fb.rows[0][1] != "https://a.test" || fb.rows[0][2] != "pass" {
		t.Fatalf("unexpected row: %+v", fb.rows[0])
	}
}

func TestIngest_EmptyIsNoop(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{}}
	s := &Store{conn: fc, log: zap.NewNop()}
	if err := s.Ingest(context.Background(), nil); err != nil || fc.prepared != 0 {
		t.Fatalf("empty ingest should not touch the conn: err=%v prepared=%d", err, fc.prepared)
	}
}

func TestIngest_AppendErrorAborts(t *testing.T) {
	fb := &fakeBatch{appendErrAt: 2}
	s := &Store{conn: &fakeConn{batch: fb}, log: zap.NewNop()}

	if err := s.Ingest(context.Background(), events(3)); err == nil {
		t.Fatalf("expected append error")
	}
	if !fb.aborted || fb.sent {
		t.Fatalf("batch should be aborted and not sent: %+v", fb)
	}
}

func TestIngest_PrepareAndSendErrors(t *testing.T) {
	s := &Store{conn: &fakeConn{prepareErr: errors.New("down")}, log: zap.NewNop()}
	if err := s.Ingest(context.Background(), events(1)); err == nil {
		t.Fatalf("expected prepare error")
	}

	s = &Store{conn: &fakeConn{batch: &fakeBatch{sendErr: errors.New("rejected")}}, log: zap.NewNop()}
	if err := s.Ingest(context.Background(), events(1)); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestRecent_ScansRowsAndBindsFilter(t *testing.T) {
	t1 := time.Date(2025, 8, 18, 12, 1, 0, 0, time.UTC)
	t0 := t1.Add(-time.Minute)
	fr := &fakeRows{data: [][3]any{
		{"https://a.test", "fail", t1},
		{"https://a.test", "pass", t0},
	}}
	fc := &fakeConn{rows: fr}
	s := &Store{conn: fc, log: zap.NewNop()}

	got, err := s.Recent(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Status != "fail" || !got[0].Time.Equal(t1) {
		t.Fatalf("unexpected events: %+v", got)
	}
	if !fr.closed {
		t.Fatalf("rows should be closed")
	}
	if len(fc.queryArgs) != 3 || fc.queryArgs[0] != "pass" || fc.queryArgs[1] != "fail" {
		t.Fatalf("unexpected query args: %+v", fc.queryArgs)
	}
	if since, ok := fc.queryArgs[2].(time.Time); !ok || !since.Equal(time.Unix(0, 0)) {
		t.Fatalf("zero since should bind the epoch, got %v", fc.queryArgs[2])
	}
}

func TestRecent_QueryError(t *testing.T) {
	s := &Store{conn: &fakeConn{queryErr: errors.New("timeout")}, log: zap.NewNop()}
	if _, err := s.Recent(context.Background(), time.Time{}); err == nil {
		t.Fatalf("expected error")
	}
}
