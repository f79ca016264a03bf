package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_InstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.TicksSkipped.Inc()
	if got := testutil.ToFloat64(a.TicksSkipped); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
	if got := testutil.ToFloat64(b.TicksSkipped); got != 0 {
		t.Fatalf("second instance should be untouched, got %v", got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ProbesTotal.WithLabelValues("pass").Add(2)
	m.SetBuildInfo("v1.2.3", "abc1234")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		`statuswatch_probes_total{result="pass"} 2`,
		`statuswatch_build_info{release_id="abc1234",version="v1.2.3"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
