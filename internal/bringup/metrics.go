package bringup

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/bringup/internal/util/poll"
)

// Metrics holds the Prometheus collectors for a bring-up run. A nil *Metrics
// records nothing.
type Metrics struct {
	pollTicks       *prometheus.CounterVec
	pollProbeErrors *prometheus.CounterVec
	pollDuration    *prometheus.HistogramVec
	phaseTotal      *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	operationTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bringup",
				Subsystem: "poll",
				Name:      "ticks_total",
				Help:      "Total number of poll ticks by operation and verdict",
			},
			[]string{"operation", "verdict"},
		),
		pollProbeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bringup",
				Subsystem: "poll",
				Name:      "probe_errors_total",
				Help:      "Total number of failed status probes by operation",
			},
			[]string{"operation"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bringup",
				Subsystem: "poll",
				Name:      "episode_duration_seconds",
				Help:      "Duration of poll episodes in seconds by outcome",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
			},
			[]string{"status"},
		),
		phaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bringup",
				Subsystem: "workflow",
				Name:      "phases_total",
				Help:      "Total number of phases by name and result",
			},
			[]string{"phase", "status"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bringup",
				Subsystem: "workflow",
				Name:      "phase_duration_seconds",
				Help:      "Duration of phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17min
			},
			[]string{"phase"},
		),
		operationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bringup",
				Subsystem: "workflow",
				Name:      "operations_total",
				Help:      "Total number of operations by kind and result",
			},
			[]string{"kind", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.pollTicks, m.pollProbeErrors, m.pollDuration, m.phaseTotal, m.phaseDuration, m.operationTotal)
	}
	return m
}

// ObserveTick implements poll.Recorder.
func (m *Metrics) ObserveTick(name string, verdict poll.Verdict, probeErr error) {
	if m == nil {
		return
	}
	m.pollTicks.WithLabelValues(name, verdict.String()).Inc()
	if probeErr != nil {
		m.pollProbeErrors.WithLabelValues(name).Inc()
	}
}

// ObserveEpisode implements poll.Recorder.
func (m *Metrics) ObserveEpisode(_ string, status poll.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) observePhase(phase string, status PhaseStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseTotal.WithLabelValues(phase, string(status)).Inc()
	if status != PhaseAborted {
		m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	}
}

func (m *Metrics) observeOperation(kind Kind, status OperationStatus) {
	if m == nil {
		return
	}
	m.operationTotal.WithLabelValues(string(kind), string(status)).Inc()
}
