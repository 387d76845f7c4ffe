package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds all Prometheus metrics for the analysis surface.
type MetricsRegistry struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	ZonesBuilt       *prometheus.HistogramVec
	EntriesBlocked   *prometheus.CounterVec
}

// NewMetricsRegistry creates a metrics registry with all levelmap metrics
// registered on its own Prometheus registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levelmap_analyses_total",
				Help: "Total number of analysis requests by result",
			},
			[]string{"result"},
		),

		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "levelmap_analysis_duration_seconds",
				Help:    "Duration of one full analysis cycle in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),

		ZonesBuilt: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "levelmap_zones_built",
				Help:    "Number of zones produced per analysis by side",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"side"},
		),

		EntriesBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levelmap_entries_blocked_total",
				Help: "Total number of hard-control blocks by direction",
			},
			[]string{"direction"},
		),
	}

	m.registry.MustRegister(m.AnalysesTotal, m.AnalysisDuration, m.ZonesBuilt, m.EntriesBlocked)
	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
