package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks the publisher draining outbox rows into the broker.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	lag        *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_deliveries_total",
		Help: "Outbox rows handled by the publisher, by sink and outcome.",
	}, []string{"sink", "outcome"})
	lag := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_lag_seconds",
		Help:    "Time between an event being written and reaching the broker.",
		Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600},
	}, []string{"sink"})
	reg.MustRegister(deliveries, lag)
	return &OutboxMetrics{deliveries: deliveries, lag: lag}
}

func (m *OutboxMetrics) Inc(sink, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(sink, outcome).Inc()
}

// ObserveLag records how long a published row waited in the outbox.
func (m *OutboxMetrics) ObserveLag(sink string, lag time.Duration) {
	if m == nil || m.lag == nil || lag < 0 {
		return
	}
	m.lag.WithLabelValues(sink).Observe(lag.Seconds())
}
