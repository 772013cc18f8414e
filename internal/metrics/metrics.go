package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for persistence calls
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics groups the collectors the store reports to.
type Metrics struct {
	PersistenceCallDuration *prometheus.HistogramVec
	MutationsTotal          *prometheus.CounterVec
	ReminderSyncFailures    prometheus.Counter
}

// New registers the collectors on reg. A nil reg yields collectors that are
// not registered anywhere, which is what a one-shot CLI invocation wants.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PersistenceCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "persistence_call_duration_seconds",
				Help:    "Duration of routine persistence calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"op", "outcome"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mutations_total",
				Help: "Total number of routine mutations by kind and final state",
			},
			[]string{"kind", "state"},
		),
		ReminderSyncFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reminder_sync_failures_total",
				Help: "Total number of failed reminder cleanups after a routine delete",
			},
		),
	}
}

// ObservePersistence records the duration of one persistence call
func (m *Metrics) ObservePersistence(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PersistenceCallDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// CountMutation records a mutation reaching its final state
func (m *Metrics) CountMutation(kind, state string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(kind, state).Inc()
}

// CountReminderSyncFailure records a failed reminder cleanup
func (m *Metrics) CountReminderSyncFailure() {
	if m == nil {
		return
	}
	m.ReminderSyncFailures.Inc()
}
