// Package notify defines the outbound notification boundary. The engine
// emits domain deltas through the Notifier interface; delivery is
// at-most-once and best-effort, and a failed delivery never invalidates
// the state change that produced it.
package notify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

// PriceUpdate is the per-instrument payload emitted on each feed tick.
type PriceUpdate struct {
	Symbol        string
	Price         decimal.Decimal
	Bid           decimal.Decimal
	Ask           decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        int64
	Timestamp     time.Time
}

// Notifier receives fill/order/position/account deltas for downstream
// broadcast. Implementations must not block the caller and must not
// return errors into the settlement path.
type Notifier interface {
	OrderUpdated(order domain.Order)
	FillExecuted(fill domain.Fill)
	PositionChanged(accountID, symbol string, position *domain.Position) // nil position means deleted
	AccountChanged(account domain.AccountSnapshot)
	PriceTicked(update PriceUpdate)
}

// Noop is a Notifier that discards everything. Used in tests and as a
// default when no sink is wired.
type Noop struct{}

func (Noop) OrderUpdated(domain.Order)                        {}
func (Noop) FillExecuted(domain.Fill)                         {}
func (Noop) PositionChanged(string, string, *domain.Position) {}
func (Noop) AccountChanged(domain.AccountSnapshot)            {}
func (Noop) PriceTicked(PriceUpdate)                          {}
