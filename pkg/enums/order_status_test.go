package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusCreated, OrderStatusPending}:    true,
		{OrderStatusCreated, OrderStatusCompleted}:  true,
		{OrderStatusCreated, OrderStatusFailed}:     true,
		{OrderStatusPending, OrderStatusCompleted}:  true,
		{OrderStatusPending, OrderStatusFailed}:     true,
		{OrderStatusCompleted, OrderStatusRefunded}: true,
	}
	for _, from := range validOrderStatuses {
		for _, to := range validOrderStatuses {
			want := allowed[[2]OrderStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatusHelpers(t *testing.T) {
	if !OrderStatusFailed.ReleasesStock() || !OrderStatusRefunded.ReleasesStock() {
		t.Fatalf("failed and refunded must release stock")
	}
	if OrderStatusCompleted.ReleasesStock() {
		t.Fatalf("completed must not release stock")
	}
	if !OrderStatusPending.IsOpen() || OrderStatusCompleted.IsOpen() {
		t.Fatalf("unexpected IsOpen result")
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if s, err := ParseOrderStatus("pending"); err != nil || s != OrderStatusPending {
		t.Fatalf("parse pending: %v %v", s, err)
	}
}
