// Package risk implements the pre-trade order gate: kill switch, buying
// power, per-symbol position limit, notional limit, and daily order count.
package risk

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

// ConfigSource provides the current risk configuration. Reads must see
// the latest value, so the engine never caches across calls.
type ConfigSource interface {
	RiskConfig() domain.RiskConfig
}

// Input describes the order under evaluation.
type Input struct {
	AccountID  string
	Symbol     string
	Side       domain.OrderSide
	Type       domain.OrderType
	Quantity   int64
	LimitPrice decimal.Decimal // zero for market orders
}

// StateView provides the account and market state the checks run against.
type StateView struct {
	BuyingPower decimal.Decimal
	PositionQty int64
	OrdersToday int
	LivePrice   decimal.Decimal
	FeePerShare decimal.Decimal
}

// Result is the outcome of an evaluation. When Passed is false, Reasons
// lists every failing check (or the single kill-switch reason).
type Result struct {
	Passed  bool
	Reasons []string
}

// Engine evaluates every new order before it can reach the book.
type Engine struct {
	cfg ConfigSource
}

// NewEngine creates a risk engine reading limits from the given source.
func NewEngine(cfg ConfigSource) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate runs the pre-trade checks. The kill switch returns
// immediately with a single reason; all other failing checks accumulate
// so multiple simultaneous failures are all reported. Any panic during
// evaluation fails closed with a generic reason.
func (e *Engine) Evaluate(in Input, state StateView) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("risk evaluation panic", slog.Any("panic", r), slog.String("order_account", in.AccountID))
			result = Result{Passed: false, Reasons: []string{"internal risk check failure"}}
		}
	}()

	cfg := e.cfg.RiskConfig()

	if cfg.KillSwitch {
		return Result{Passed: false, Reasons: []string{"kill switch is active: all new orders are rejected"}}
	}

	var reasons []string

	// Effective price: limit price for limit orders, else the live price.
	effectivePrice := state.LivePrice
	if in.Type == domain.OrderTypeLimit {
		effectivePrice = in.LimitPrice
	}
	qty := decimal.NewFromInt(in.Quantity)
	notional := effectivePrice.Mul(qty)

	if in.Side == domain.OrderSideBuy {
		required := notional.Add(state.FeePerShare.Mul(qty))
		if required.GreaterThan(state.BuyingPower) {
			reasons = append(reasons, fmt.Sprintf(
				"insufficient buying power: required %s, available %s",
				required.StringFixed(2), state.BuyingPower.StringFixed(2)))
		}
	}

	newQty := state.PositionQty
	if in.Side == domain.OrderSideBuy {
		newQty += in.Quantity
	} else {
		newQty -= in.Quantity
	}
	if abs64(newQty) > cfg.MaxQuantityPerSymbol {
		reasons = append(reasons, fmt.Sprintf(
			"position limit exceeded: resulting quantity %d exceeds max %d per symbol",
			newQty, cfg.MaxQuantityPerSymbol))
	}
	if in.Side == domain.OrderSideSell && in.Quantity > state.PositionQty {
		reasons = append(reasons, fmt.Sprintf(
			"insufficient position: selling %d but holding %d",
			in.Quantity, state.PositionQty))
	}

	if notional.GreaterThan(cfg.MaxNotionalValue) {
		reasons = append(reasons, fmt.Sprintf(
			"notional limit exceeded: order value %s exceeds max %s",
			notional.StringFixed(2), cfg.MaxNotionalValue.StringFixed(2)))
	}

	if state.OrdersToday >= cfg.MaxDailyOrders {
		reasons = append(reasons, fmt.Sprintf(
			"daily order limit reached: %d orders today, max %d",
			state.OrdersToday, cfg.MaxDailyOrders))
	}

	return Result{Passed: len(reasons) == 0, Reasons: reasons}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
