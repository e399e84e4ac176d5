package domain

import "time"

// OrderEventType identifies an order lifecycle transition in the audit log.
type OrderEventType string

const (
	OrderEventAccepted        OrderEventType = "accepted"
	OrderEventRejected        OrderEventType = "rejected"
	OrderEventPartiallyFilled OrderEventType = "partially_filled"
	OrderEventFilled          OrderEventType = "filled"
	OrderEventCancelled       OrderEventType = "cancelled"
)

// OrderEvent is an append-only audit log entry, one per order state
// transition, with a free-form payload capturing the reason or amounts
// at that instant. Events are never mutated.
type OrderEvent struct {
	EventID   string
	OrderID   string
	AccountID string
	Type      OrderEventType
	Payload   map[string]any
	CreatedAt time.Time
}
