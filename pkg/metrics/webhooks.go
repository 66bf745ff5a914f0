package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes.
const (
	WebhookApplied    = "applied"
	WebhookDuplicate  = "duplicate"
	WebhookIgnored    = "ignored"
	WebhookUnverified = "unverified"
	WebhookFailed     = "failed"
)

// WebhookMetrics counts inbound payment webhook deliveries.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound webhook deliveries by gateway and outcome.",
	}, []string{"gateway", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

func (m *WebhookMetrics) Inc(gateway, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}
