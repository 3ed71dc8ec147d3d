// Package metrics exposes refresh and fetch counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so instances don't collide in tests.
type Metrics struct {
	Registry *prometheus.Registry

	// fetchTotal counts finished fetches by source and outcome kind
	fetchTotal *prometheus.CounterVec
	// fetchDuration tracks fetch latency per source
	fetchDuration *prometheus.HistogramVec
	// refreshTotal counts refresh cycles by trigger
	refreshTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "devdash_fetch_total",
			Help: "Source fetches by source and outcome",
		}, []string{"source", "outcome"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devdash_fetch_duration_seconds",
			Help:    "Source fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"source"}),
		refreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "devdash_refresh_total",
			Help: "Refresh cycles by trigger",
		}, []string{"trigger"}),
	}
}

// ObserveFetch records one finished fetch. outcome is "ok" or an error kind.
func (m *Metrics) ObserveFetch(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveRefresh records the start of a refresh cycle.
func (m *Metrics) ObserveRefresh(trigger string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(trigger).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
