package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuswatch/internal/dashboard"
	"github.com/hamed0406/statuswatch/internal/domain"
	"github.com/hamed0406/statuswatch/internal/metrics"
	"github.com/hamed0406/statuswatch/internal/status"
	"github.com/hamed0406/statuswatch/internal/version"
)

// ---- test helpers ----

type staticTargets []domain.Target

func (s staticTargets) All() []domain.Target { return s }

type countingStatus struct {
	calls atomic.Int32
	snap  domain.Snapshot
}

func (c *countingStatus) GetStatus(context.Context) domain.Snapshot {
	c.calls.Add(1)
	return c.snap
}

var at = time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

func setupServer(t *testing.T, st *countingStatus, rpm int) *httptest.Server {
	t.Helper()
	d, err := dashboard.New("Status")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	srv := NewServer(zap.NewNop(),
		staticTargets{"https://a.test", "https://b.test"},
		st, d,
		version.Info{Version: "1.0.0", ReleaseID: "abc123"},
	)
	srv.Metrics = metrics.New().Handler()
	srv.RateRPM = rpm
	srv.RateBurst = 2
	srv.now = func() time.Time { return at }

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

// ---- tests ----

func TestHealth_DoesNotTouchAggregator(t *testing.T) {
	st := &countingStatus{}
	ts := setupServer(t, st, 0)

	resp, body := get(t, ts.URL+HealthPath)
	if resp.StatusCode != 200 {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/health+json" {
		t.Fatalf("content-type=%q", ct)
	}
	var h HealthResponse
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "pass" || h.Version != "1.0.0" || h.ReleaseID != "abc123" || h.Time != "2025-08-18T12:00:00Z" {
		t.Fatalf("unexpected body: %+v", h)
	}
	if st.calls.Load() != 0 {
		t.Fatalf("health query must not reach the aggregator, calls=%d", st.calls.Load())
	}
}

func TestHealth_OnlyGetAndHead(t *testing.T) {
	ts := setupServer(t, &countingStatus{}, 0)

	resp, err := http.Post(ts.URL+HealthPath, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct == "application/health+json" {
		t.Fatalf("POST must not get the liveness document")
	}

	req, _ := http.NewRequest(http.MethodHead, ts.URL+HealthPath, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("HEAD: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "application/health+json" {
		t.Fatalf("HEAD should answer like GET, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestDashboard_AnyOtherPath(t *testing.T) {
	st := &countingStatus{snap: domain.Snapshot{"https://a.test": {Status: domain.StatusPass, Time: at}}}
	ts := setupServer(t, st, 0)

	for _, p := range []string{"/", "/anything", "/.well-known/other", "/.well-known/health/extra"} {
		resp, body := get(t, ts.URL+p)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: want 200 got %d", p, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Fatalf("%s: content-type=%q", p, ct)
		}
		if !strings.Contains(body, `class="card pass" href="https://a.test"`) ||
			!strings.Contains(body, `class="card unknown" href="https://b.test"`) {
			t.Fatalf("%s: unexpected page:\n%s", p, body)
		}
	}
	if st.calls.Load() != 4 {
		t.Fatalf("each page should query status once, calls=%d", st.calls.Load())
	}
}

func TestDashboard_EmptySnapshotAllUnknown(t *testing.T) {
	ts := setupServer(t, &countingStatus{snap: domain.Snapshot{}}, 0)

	_, body := get(t, ts.URL+"/")
	if strings.Count(body, `class="card unknown"`) != 2 {
		t.Fatalf("both cards should be unknown:\n%s", body)
	}
}

func TestAPIStatus_JSONInRegistryOrder(t *testing.T) {
	st := &countingStatus{snap: domain.Snapshot{"https://b.test": {Status: domain.StatusFail, Time: at}}}
	ts := setupServer(t, st, 0)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("missing CORS header")
	}
	var rows []status.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].URL != "https://a.test" || rows[0].Status != status.Unknown {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].Status != "fail" || rows[1].Time == nil || !rows[1].Time.Equal(at) {
		t.Fatalf("unexpected b row: %+v", rows[1])
	}
}

func TestRateLimit_AppliesToDashboardNotHealth(t *testing.T) {
	ts := setupServer(t, &countingStatus{}, 1)

	for i := 0; i < 2; i++ {
		if resp, _ := get(t, ts.URL+"/"); resp.StatusCode != 200 {
			t.Fatalf("request %d within burst got %d", i, resp.StatusCode)
		}
	}
	if resp, _ := get(t, ts.URL+"/"); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429 got %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+HealthPath); resp.StatusCode != 200 {
		t.Fatalf("health must not be rate limited, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t, &countingStatus{}, 0)
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 || !strings.Contains(body, "statuswatch_cycles_total") {
		t.Fatalf("metrics not served: %d", resp.StatusCode)
	}
}
