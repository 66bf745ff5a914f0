package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts inventory ledger adjustments.
type LedgerMetrics struct {
	adjustments *prometheus.CounterVec
	units       *prometheus.CounterVec
}

// NewLedgerMetrics registers ledger counters on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_adjustments_total",
		Help: "Ticket sales adjustments by direction and whether the delta was clamped.",
	}, []string{"direction", "clamped"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_units_applied_total",
		Help: "Ticket units actually applied to sales counters.",
	}, []string{"direction"})
	reg.MustRegister(adjustments, units)
	return &LedgerMetrics{adjustments: adjustments, units: units}
}

// ObserveAdjustment records one adjustment and the units it actually applied.
func (m *LedgerMetrics) ObserveAdjustment(requested, applied int) {
	if m == nil || m.adjustments == nil {
		return
	}
	direction := "reserve"
	if requested < 0 {
		direction = "release"
	}
	clamped := "false"
	if requested != applied {
		clamped = "true"
	}
	m.adjustments.WithLabelValues(direction, clamped).Inc()
	if applied < 0 {
		applied = -applied
	}
	m.units.WithLabelValues(direction).Add(float64(applied))
}
