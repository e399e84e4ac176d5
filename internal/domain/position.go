package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents an account's holding in a single instrument,
// keyed uniquely by (account_id, symbol). Quantity is never negative:
// positions are closed, not shorted. A position whose quantity reaches
// zero is deleted rather than kept as an empty row.
type Position struct {
	AccountID    string
	Symbol       string
	Quantity     int64
	AvgPrice     decimal.Decimal // volume-weighted cost basis
	MarketValue  decimal.Decimal
	UnrealizedPL decimal.Decimal
	UpdatedAt    time.Time
}

// ApplyBuy folds a buy fill into the position using weighted-average-cost
// accounting: the new average price is the volume-weighted average of the
// old basis and the fill.
func (p *Position) ApplyBuy(quantity int64, price decimal.Decimal) {
	oldQty := decimal.NewFromInt(p.Quantity)
	fillQty := decimal.NewFromInt(quantity)
	newQty := oldQty.Add(fillQty)
	p.AvgPrice = oldQty.Mul(p.AvgPrice).Add(fillQty.Mul(price)).Div(newQty)
	p.Quantity += quantity
}

// ApplySell reduces the position's quantity. The average price is left
// unchanged: realized P&L is not tracked separately, only unrealized
// P&L against the live price.
func (p *Position) ApplySell(quantity int64) {
	p.Quantity -= quantity
}

// Revalue recomputes market value and unrealized P&L against the given
// live price. Called whenever the position is written.
func (p *Position) Revalue(livePrice decimal.Decimal, at time.Time) {
	qty := decimal.NewFromInt(p.Quantity)
	p.MarketValue = livePrice.Mul(qty)
	p.UnrealizedPL = livePrice.Sub(p.AvgPrice).Mul(qty)
	p.UpdatedAt = at
}
