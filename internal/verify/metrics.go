package verify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for verification operations.
type Metrics struct {
	verificationsTotal   *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec
	claimSource          *prometheus.CounterVec
	registry             *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "veritls"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "verifications_total",
			Help:      "Total number of peer hostname verification attempts",
		},
		[]string{"status", "reason"},
	)

	m.verificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "verification_duration_seconds",
			Help:      "Peer hostname verification duration in seconds",
			Buckets:   []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"status", "reason"},
	)

	m.claimSource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "claim_source_total",
			Help:      "Identity claim source used for verification verdicts",
		},
		[]string{"source"},
	)

	// Register all metrics
	m.registry.MustRegister(
		m.verificationsTotal,
		m.verificationDuration,
		m.claimSource,
	)

	return m
}

// RecordVerification records a verification attempt.
func (m *Metrics) RecordVerification(status, reason string, duration time.Duration) {
	m.verificationsTotal.WithLabelValues(status, reason).Inc()
	m.verificationDuration.WithLabelValues(status, reason).Observe(duration.Seconds())
}

// RecordClaimSource records which claim source produced a verdict.
func (m *Metrics) RecordClaimSource(source string) {
	m.claimSource.WithLabelValues(source).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.verificationsTotal,
		m.verificationDuration,
		m.claimSource,
	)
}
