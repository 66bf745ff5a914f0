package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsSplitsDirectionAndClamp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveAdjustment(3, 3)
	m.ObserveAdjustment(2, 1)
	m.ObserveAdjustment(-4, -4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "ledger_units_applied_total", "direction", "reserve"); err != nil || got != 4 {
		t.Fatalf("expected 4 reserved units, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "ledger_units_applied_total", "direction", "release"); err != nil || got != 4 {
		t.Fatalf("expected 4 released units, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "ledger_adjustments_total", "clamped", "true"); err != nil || got != 1 {
		t.Fatalf("expected one clamped adjustment, got %f err=%v", got, err)
	}
}

func TestOrderAndWebhookMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	orders := NewOrderMetrics(reg)
	webhooks := NewWebhookMetrics(reg)

	orders.IncCreated("free", "completed")
	orders.IncFailure("card", "INSUFFICIENT_STOCK")
	orders.IncTransition("pending", "completed")
	webhooks.Inc("paypal", WebhookDuplicate)
	webhooks.Inc("paypal", WebhookDuplicate)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "orders_created_total", "gateway", "free"); err != nil || got != 1 {
		t.Fatalf("orders_created_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_failures_total", "code", "INSUFFICIENT_STOCK"); err != nil || got != 1 {
		t.Fatalf("checkout_failures_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_status_transitions_total", "to", "completed"); err != nil || got != 1 {
		t.Fatalf("order_status_transitions_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", WebhookDuplicate); err != nil || got != 2 {
		t.Fatalf("webhook_events_total mismatch: %f err=%v", got, err)
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("kafka", OutboxPublished)
	m.Inc("kafka", OutboxDeadLettered)
	m.ObserveLag("kafka", 2*time.Second)
	m.ObserveLag("kafka", -time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_deliveries_total", "outcome", OutboxDeadLettered); err != nil || got != 1 {
		t.Fatalf("outbox_deliveries_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "outbox_publish_lag_seconds", "sink", "kafka"); err != nil || got != 2 {
		t.Fatalf("outbox_publish_lag_seconds mismatch: %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.ObserveAdjustment(1, 1)
	NewOrderMetrics(nil).IncCreated("free", "completed")
	NewWebhookMetrics(nil).Inc("paypal", WebhookApplied)
	NewOutboxMetrics(nil).Inc("kafka", OutboxRetried)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/checkout", 201, 0)
	m.Observe("GET", "", 404, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/checkout"); err != nil || got != 1 {
		t.Fatalf("checkout counter mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("unmatched counter mismatch: %f err=%v", got, err)
	}
}

func TestBlankLabelsFallBackToUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	orders := NewOrderMetrics(reg)
	webhooks := NewWebhookMetrics(reg)

	orders.IncCreated("", "pending")
	orders.IncFailure("card", "")
	webhooks.Inc("", WebhookApplied)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "orders_created_total", "gateway", "unknown"); err != nil || got != 1 {
		t.Fatalf("orders_created_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_failures_total", "code", "unknown"); err != nil || got != 1 {
		t.Fatalf("checkout_failures_total mismatch: %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "webhook_events_total", "gateway", "unknown"); err != nil || got != 1 {
		t.Fatalf("webhook_events_total mismatch: %f err=%v", got, err)
	}
}
