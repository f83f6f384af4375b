package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentSignalMetrics counts reconciler outcomes per source and disposition.
type PaymentSignalMetrics struct {
	applied    *prometheus.CounterVec
	unresolved *prometheus.CounterVec
	rejected   *prometheus.CounterVec
}

// NewPaymentSignalMetrics registers the payment signal counters.
func NewPaymentSignalMetrics(reg prometheus.Registerer) *PaymentSignalMetrics {
	if reg == nil {
		return &PaymentSignalMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_signals_applied_total",
		Help: "Payment signals that drove an order transition.",
	}, []string{"source", "outcome"})
	unresolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_signals_unresolved_total",
		Help: "Payment signals that matched no order.",
	}, []string{"source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_signals_rejected_total",
		Help: "Payment signals rejected by the state machine.",
	}, []string{"source", "outcome"})
	reg.MustRegister(applied, unresolved, rejected)
	return &PaymentSignalMetrics{
		applied:    applied,
		unresolved: unresolved,
		rejected:   rejected,
	}
}

// IncApplied counts a signal that produced a transition (or a no-op replay).
func (p *PaymentSignalMetrics) IncApplied(source, outcome string) {
	if p == nil || p.applied == nil {
		return
	}
	p.applied.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncUnresolved counts a signal that could not be matched to an order.
func (p *PaymentSignalMetrics) IncUnresolved(source string) {
	if p == nil || p.unresolved == nil {
		return
	}
	p.unresolved.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncRejected counts a signal whose transition the state machine refused.
func (p *PaymentSignalMetrics) IncRejected(source, outcome string) {
	if p == nil || p.rejected == nil {
		return
	}
	p.rejected.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}
