package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts and times backend calls by resource, operation and outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogadmin",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Catalog backend requests by resource, operation and outcome.",
		}, []string{"resource", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalogadmin",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Catalog backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "op"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(resource, op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(resource, op, outcome(err)).Inc()
	m.duration.WithLabelValues(resource, op).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case IsValidation(err):
		return "validation"
	case IsNetwork(err):
		return "network"
	case IsServer(err):
		return "server"
	default:
		return "error"
	}
}
