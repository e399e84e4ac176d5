package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill represents a single execution against an order. Fills are
// append-only and are the source of truth for how much of an order has
// executed; they are never updated or deleted except by a full reset.
type Fill struct {
	FillID     string
	OrderID    string
	AccountID  string
	Symbol     string
	Side       OrderSide
	Quantity   int64
	Price      decimal.Decimal
	Fees       decimal.Decimal
	ExecutedAt time.Time
}

// Gross returns quantity * price.
func (f *Fill) Gross() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}

// Net returns the signed cash effect of the fill: buys debit
// gross + fees, sells credit gross - fees.
func (f *Fill) Net() decimal.Decimal {
	gross := f.Gross()
	if f.Side == OrderSideBuy {
		return gross.Add(f.Fees).Neg()
	}
	return gross.Sub(f.Fees)
}
