package device

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "devicefsm"

// Metrics is an Observer that exports engine activity to Prometheus.
type Metrics struct {
	transitions *prometheus.CounterVec
	ignored     *prometheus.CounterVec
	faults      *prometheus.CounterVec
	state       *prometheus.GaugeVec
}

var _ Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transitions_total",
			Help:      "State changes by source state, target state and triggering event.",
		}, []string{"from", "to", "event"}),
		ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ignored_events_total",
			Help:      "Events that had no table entry for the current state.",
		}, []string{"state", "event"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "faults_total",
			Help:      "Entries into a fault state from a non-fault state.",
		}, []string{"fault"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "state",
			Help:      "1 for the current device state, 0 for all others.",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.ignored, m.faults, m.state} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.setState(PowerOnReset)
	return m, nil
}

// Transitioned implements Observer.
func (m *Metrics) Transitioned(from, to State, ev Event) {
	m.transitions.WithLabelValues(from.String(), to.String(), ev.String()).Inc()
	if to.IsFault() && !from.IsFault() {
		m.faults.WithLabelValues(to.String()).Inc()
	}
	m.setState(to)
}

// Ignored implements Observer.
func (m *Metrics) Ignored(s State, ev Event) {
	m.ignored.WithLabelValues(s.String(), ev.String()).Inc()
}

func (m *Metrics) setState(current State) {
	for _, s := range States {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}
