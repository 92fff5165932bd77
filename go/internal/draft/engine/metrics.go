package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting engine metrics
type MetricsCollector interface {
	RecordPickCommitted(kind string, duration time.Duration)
	RecordPickRejected(reason string)
	RecordTransition(to string)
	TimerArmed()
	TimerDisarmed()
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordPickCommitted(kind string, duration time.Duration) {}
func (NoOpMetricsCollector) RecordPickRejected(reason string)                        {}
func (NoOpMetricsCollector) RecordTransition(to string)                              {}
func (NoOpMetricsCollector) TimerArmed()                                             {}
func (NoOpMetricsCollector) TimerDisarmed()                                          {}

// Pick kinds.
const (
	kindPick     = "pick"
	kindSkip     = "skip"
	kindAutoSkip = "auto_skip"
)

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	picksCommitted *prometheus.CounterVec
	picksRejected  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	timersArmed    prometheus.Gauge
	commitDuration prometheus.Histogram
}

// NewPrometheusMetrics creates the engine collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		picksCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campdraft",
			Name:      "picks_committed_total",
			Help:      "Committed turn outcomes by kind.",
		}, []string{"kind"}),
		picksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campdraft",
			Name:      "picks_rejected_total",
			Help:      "Rejected pick submissions by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campdraft",
			Name:      "draft_transitions_total",
			Help:      "Draft lifecycle transitions by target status.",
		}, []string{"to"}),
		timersArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campdraft",
			Name:      "turn_timers_armed",
			Help:      "Turn timers currently armed.",
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campdraft",
			Name:      "pick_commit_seconds",
			Help:      "Time spent validating and committing a turn.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.picksCommitted, m.picksRejected, m.transitions, m.timersArmed, m.commitDuration)
	}
	return m
}

func (m *PrometheusMetrics) RecordPickCommitted(kind string, duration time.Duration) {
	m.picksCommitted.WithLabelValues(kind).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordPickRejected(reason string) {
	m.picksRejected.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordTransition(to string) {
	m.transitions.WithLabelValues(to).Inc()
}

func (m *PrometheusMetrics) TimerArmed()    { m.timersArmed.Inc() }
func (m *PrometheusMetrics) TimerDisarmed() { m.timersArmed.Dec() }
