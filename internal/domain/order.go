package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderSide indicates whether an order buys or sells the instrument.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Order represents a buy or sell instruction submitted by an account.
type Order struct {
	OrderID           string
	AccountID         string
	Symbol            string
	Type              OrderType
	Side              OrderSide
	Price             decimal.Decimal // limit price; zero for market orders
	Quantity          int64
	FilledQuantity    int64
	RemainingQuantity int64
	Status            OrderStatus
	CreatedAt         time.Time
	FilledAt          *time.Time
	CancelledAt       *time.Time
}

// IsTerminal reports whether the order can undergo no further transitions.
// Filled, cancelled, and rejected orders are terminal.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// CanCancel reports whether the order is in a cancellable state.
// Only pending and partially filled orders may be cancelled.
func (o *Order) CanCancel() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusPartiallyFilled:
		return true
	}
	return false
}

// ApplyFill records a fill against the order, decrementing the remaining
// quantity and advancing the status. FilledAt is set only when the order
// becomes fully filled.
func (o *Order) ApplyFill(quantity int64, executedAt time.Time) {
	o.FilledQuantity += quantity
	o.RemainingQuantity -= quantity
	if o.RemainingQuantity == 0 {
		o.Status = OrderStatusFilled
		at := executedAt
		o.FilledAt = &at
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}
