package cm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts management API calls. A nil *Metrics records nothing.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bringup",
				Subsystem: "cm",
				Name:      "api_calls_total",
				Help:      "Total number of management API calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bringup",
				Subsystem: "cm",
				Name:      "api_latency_seconds",
				Help:      "Latency of management API calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.latency)
	}
	return m
}

func (m *Metrics) record(operation string, err error, latency time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.calls.WithLabelValues(operation, result).Inc()
	m.latency.WithLabelValues(operation).Observe(latency.Seconds())
}
