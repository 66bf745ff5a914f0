package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics tracks checkout outcomes and order status transitions.
type OrderMetrics struct {
	created     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers order counters on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created at checkout by gateway and resulting status.",
	}, []string{"gateway", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts rejected by gateway and error code.",
	}, []string{"gateway", "code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	reg.MustRegister(created, failures, transitions)
	return &OrderMetrics{created: created, failures: failures, transitions: transitions}
}

func (m *OrderMetrics) IncCreated(gateway, status string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(gateway), normalizeLabel(status)).Inc()
}

func (m *OrderMetrics) IncFailure(gateway, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(gateway), normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
