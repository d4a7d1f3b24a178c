package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts applied and rejected status transitions.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to", "actor"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Refused order status transitions by reason.",
	}, []string{"reason"})
	reg.MustRegister(transitions, rejected)
	return &OrderMetrics{transitions: transitions, rejected: rejected}
}

func (o *OrderMetrics) IncTransition(from, to, actor string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(actor)).Inc()
}

func (o *OrderMetrics) IncRejected(reason string) {
	if o == nil || o.rejected == nil {
		return
	}
	o.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
