// Package metrics exposes Prometheus counters for searches and the sources
// they visit.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperifyio/carfinder/internal/adapter"
)

const namespace = "carfinder"

// Metrics holds the collectors shared by every search.
type Metrics struct {
	SourceVisits   *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec
	SourceResults  *prometheus.CounterVec
	Searches       *prometheus.CounterVec
	ActiveStreams  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry so
// tests and multiple servers do not collide on the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		SourceVisits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "visits_total",
			Help:      "Source visits by outcome.",
		}, []string{"source", "outcome"}),
		SourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching one source.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"source"}),
		SourceResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "results_total",
			Help:      "Listings emitted after filtering and deduplication.",
		}, []string{"source"}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search requests by breadth.",
		}, []string{"breadth"}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Search event streams currently open.",
		}),
		gatherer: reg,
	}
}

// ObserveSource records one source visit.
func (m *Metrics) ObserveSource(source string, outcome adapter.Outcome, took time.Duration, results int) {
	if m == nil {
		return
	}
	m.SourceVisits.WithLabelValues(source, outcome.String()).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(took.Seconds())
	if results > 0 {
		m.SourceResults.WithLabelValues(source).Add(float64(results))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
