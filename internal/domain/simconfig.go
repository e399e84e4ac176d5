package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimConfig is the runtime-mutable simulator configuration. Updates
// replace the whole record so readers always see an internally
// consistent snapshot; changes take effect on the next tick.
type SimConfig struct {
	BidAskSpreadBps   int64
	FeePerShare       decimal.Decimal
	SlippageBps       int64
	TickInterval      time.Duration
	MaxPartialFillPct float64 // upper bound of the per-tick fill fraction, in (0, 1]
}

// RiskConfig is the runtime-mutable risk engine configuration. Updates
// replace the whole record; changes take effect on the next order.
type RiskConfig struct {
	MaxQuantityPerSymbol int64
	MaxNotionalValue     decimal.Decimal
	MaxDailyOrders       int
	KillSwitch           bool
}
