package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus counters for the send pipeline.
type Metrics struct {
	EmailsSentTotal        prometheus.Counter
	EmailsFailedTotal      prometheus.Counter
	SessionsCompletedTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all counters registered on a private
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EmailsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restock_emails_sent_total",
			Help: "Total number of supplier emails accepted by the provider",
		}),
		EmailsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restock_emails_failed_total",
			Help: "Total number of supplier email send attempts that failed",
		}),
		SessionsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restock_sessions_completed_total",
			Help: "Total number of restock sessions with every draft sent",
		}),
		registry: reg,
	}

	reg.MustRegister(m.EmailsSentTotal, m.EmailsFailedTotal, m.SessionsCompletedTotal)
	return m
}

// Handler returns an http.Handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
