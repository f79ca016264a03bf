// Package metrics holds the prometheus collectors of the monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statuswatch"

type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	ProbesTotal   *prometheus.CounterVec // result=pass|fail
	TicksSkipped  prometheus.Counter
	FlushTotal    *prometheus.CounterVec // status=success|error
	EventsDropped prometheus.Counter
	StatusQueries *prometheus.CounterVec // status=success|empty|error|open
	BuildInfo     *prometheus.GaugeVec
}

// New builds the collectors on a fresh registry, so separate instances
// never collide (tests build many).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed check cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a check cycle including the flush.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probe outcomes by result.",
		}, []string{"result"}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Scheduler ticks skipped because a cycle was still running.",
		}),
		FlushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_total",
			Help:      "Event recorder flushes by status.",
		}, []string{"status"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events lost because their flush failed.",
		}),
		StatusQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_queries_total",
			Help:      "Status aggregation queries by status.",
		}, []string{"status"}),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information.",
		}, []string{"version", "release_id"}),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.ProbesTotal,
		m.TicksSkipped,
		m.FlushTotal,
		m.EventsDropped,
		m.StatusQueries,
		m.BuildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// SetBuildInfo publishes the running version as a constant 1 gauge.
func (m *Metrics) SetBuildInfo(version, releaseID string) {
	m.BuildInfo.WithLabelValues(version, releaseID).Set(1)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
