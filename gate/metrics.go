package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gate decisions and failed lookups.
type Metrics struct {
	decisions      *prometheus.CounterVec
	lookupFailures *prometheus.CounterVec
}

// NewMetrics registers the gate metrics with reg. A nil reg uses a private
// registry, which keeps tests independent of each other.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Gate decisions by gate and outcome",
		}, []string{"gate", "outcome"}),

		lookupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Subsystem: "gate",
			Name:      "lookup_failures_total",
			Help:      "Session store and user registry lookups that failed",
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeDecision(gate string, o Outcome) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(gate, o.String()).Inc()
}

func (m *Metrics) observeFailure(stage string) {
	if m == nil {
		return
	}
	m.lookupFailures.WithLabelValues(stage).Inc()
}
