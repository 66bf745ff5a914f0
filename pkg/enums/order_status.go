package enums

import "fmt"

// OrderStatus tracks the lifecycle of a ticket order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPending,
	OrderStatusCompleted,
	OrderStatusFailed,
	OrderStatusRefunded,
}

// orderStatusTransitions lists every allowed edge of the order state machine.
// Created -> Completed is reserved for gateways that confirm synchronously.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPending, OrderStatusCompleted, OrderStatusFailed},
	OrderStatusPending:   {OrderStatusCompleted, OrderStatusFailed},
	OrderStatusCompleted: {OrderStatusRefunded},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering the status hands reserved seats back to inventory.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusFailed || s == OrderStatusRefunded
}

// IsOpen reports whether the order is still awaiting payment confirmation.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusCreated || s == OrderStatusPending
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
