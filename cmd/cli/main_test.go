package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchAndPrint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"url":"https://a.test","host":"a.test","status":"pass","time":"2025-08-18T12:00:00Z"},
			{"url":"https://b.test","host":"b.test","status":"fail","time":"2025-08-18T12:00:00Z"},
			{"url":"https://c.test","host":"c.test","status":"unknown"}
		]`))
	}))
	defer ts.Close()

	rows, _, err := fetch(ts.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(rows))
	}

	var sb strings.Builder
	if n := printRows(&sb, rows); n != 1 {
		t.Fatalf("failing=%d want 1", n)
	}
	out := sb.String()
	for _, want := range []string{"[PASS]", "a.test", "[FAIL]", "b.test", "[UNKNOWN]", "unknown"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFetch_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	if _, _, err := fetch(ts.URL, time.Second); err == nil {
		t.Fatalf("expected error on 429")
	}
}
