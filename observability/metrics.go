package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the price lookup collectors.
type Metrics struct {
	Lookups          *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	SkippedCards     prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_lookups_total",
				Help: "Price lookups by target and outcome",
			},
			[]string{"target", "outcome"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "price_upstream_duration_seconds",
				Help:    "Latency of the outbound upstream call",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
			},
			[]string{"target"},
		),
		SkippedCards: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "price_skipped_cards_total",
				Help: "Product cards dropped because they failed to parse",
			},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Lookups, m.UpstreamDuration, m.SkippedCards)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
