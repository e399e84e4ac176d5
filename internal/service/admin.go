package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/store"
)

// UpdateSimConfigRequest carries the runtime-adjustable simulator
// parameters. Changes take effect on the next tick.
type UpdateSimConfigRequest struct {
	BidAskSpreadBps   int64
	FeePerShare       float64
	SlippageBps       int64
	TickIntervalMs    int64
	MaxPartialFillPct float64
}

// UpdateRiskConfigRequest carries the runtime-adjustable risk limits.
// Changes take effect on the next order.
type UpdateRiskConfigRequest struct {
	MaxQuantityPerSymbol int64
	MaxNotionalValue     float64
	MaxDailyOrders       int
	KillSwitch           bool
}

// ResetResult reports what an account reset removed.
type ResetResult struct {
	AccountID string
	Events    int
	Fills     int
	Orders    int
	Positions int
}

// AdminService exposes the operator surface: runtime configuration,
// feed start/stop, and the bulk data reset.
type AdminService struct {
	ctx       context.Context // root context for feed restarts
	state     *store.SimStateStore
	feed      *engine.PriceFeed
	books     *engine.BookManager
	accounts  *store.AccountStore
	orders    *store.OrderStore
	fills     *store.FillStore
	positions *store.PositionStore
	events    *store.EventStore
}

// NewAdminService creates a new AdminService. The context is the
// process root: feed restarts inherit it.
func NewAdminService(
	ctx context.Context,
	state *store.SimStateStore,
	feed *engine.PriceFeed,
	books *engine.BookManager,
	accounts *store.AccountStore,
	orders *store.OrderStore,
	fills *store.FillStore,
	positions *store.PositionStore,
	events *store.EventStore,
) *AdminService {
	return &AdminService{
		ctx:       ctx,
		state:     state,
		feed:      feed,
		books:     books,
		accounts:  accounts,
		orders:    orders,
		fills:     fills,
		positions: positions,
		events:    events,
	}
}

// GetSimConfig returns the current simulator configuration and whether
// the feed is running.
func (s *AdminService) GetSimConfig() (domain.SimConfig, bool) {
	return s.state.Config(), s.feed.Running()
}

// UpdateSimConfig validates and replaces the simulator configuration as
// a whole record.
func (s *AdminService) UpdateSimConfig(req UpdateSimConfigRequest) (domain.SimConfig, error) {
	if req.TickIntervalMs <= 0 {
		return domain.SimConfig{}, &domain.ValidationError{Message: "tick_interval_ms must be > 0"}
	}
	if req.BidAskSpreadBps < 0 || req.SlippageBps < 0 {
		return domain.SimConfig{}, &domain.ValidationError{Message: "spread and slippage bps must be >= 0"}
	}
	if req.FeePerShare < 0 {
		return domain.SimConfig{}, &domain.ValidationError{Message: "fee_per_share must be >= 0"}
	}
	if req.MaxPartialFillPct <= 0 || req.MaxPartialFillPct > 1 {
		return domain.SimConfig{}, &domain.ValidationError{Message: "max_partial_fill_pct must be in (0, 1]"}
	}

	cfg := domain.SimConfig{
		BidAskSpreadBps:   req.BidAskSpreadBps,
		FeePerShare:       decimal.NewFromFloat(req.FeePerShare),
		SlippageBps:       req.SlippageBps,
		TickInterval:      time.Duration(req.TickIntervalMs) * time.Millisecond,
		MaxPartialFillPct: req.MaxPartialFillPct,
	}
	s.state.SetConfig(cfg)
	slog.Info("simulator config updated",
		slog.Int64("spread_bps", cfg.BidAskSpreadBps),
		slog.Int64("slippage_bps", cfg.SlippageBps),
		slog.Duration("tick_interval", cfg.TickInterval),
	)
	return cfg, nil
}

// GetRiskConfig returns the current risk configuration.
func (s *AdminService) GetRiskConfig() domain.RiskConfig {
	return s.state.RiskConfig()
}

// UpdateRiskConfig validates and replaces the risk configuration as a
// whole record.
func (s *AdminService) UpdateRiskConfig(req UpdateRiskConfigRequest) (domain.RiskConfig, error) {
	if req.MaxQuantityPerSymbol <= 0 {
		return domain.RiskConfig{}, &domain.ValidationError{Message: "max_quantity_per_symbol must be > 0"}
	}
	if req.MaxNotionalValue <= 0 {
		return domain.RiskConfig{}, &domain.ValidationError{Message: "max_notional_value must be > 0"}
	}
	if req.MaxDailyOrders <= 0 {
		return domain.RiskConfig{}, &domain.ValidationError{Message: "max_daily_orders must be > 0"}
	}

	cfg := domain.RiskConfig{
		MaxQuantityPerSymbol: req.MaxQuantityPerSymbol,
		MaxNotionalValue:     decimal.NewFromFloat(req.MaxNotionalValue),
		MaxDailyOrders:       req.MaxDailyOrders,
		KillSwitch:           req.KillSwitch,
	}
	s.state.SetRiskConfig(cfg)
	slog.Info("risk config updated", slog.Bool("kill_switch", cfg.KillSwitch))
	return cfg, nil
}

// StartFeed starts the price feed.
func (s *AdminService) StartFeed() error {
	return s.feed.Start(s.ctx)
}

// StopFeed stops the price feed.
func (s *AdminService) StopFeed() error {
	return s.feed.Stop()
}

// ResetAccount deletes all of one account's events, fills, orders, and
// positions, in that dependency order. The account's resting orders are
// pulled from the books first, so no tick can fill against the data
// mid-delete. The account row and its cash balance survive.
func (s *AdminService) ResetAccount(accountID string) (*ResetResult, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}

	s.removeRestingOrders(accountID)

	result := &ResetResult{
		AccountID: accountID,
		Events:    s.events.DeleteByAccount(accountID),
		Fills:     s.fills.DeleteByAccount(accountID),
		Orders:    s.orders.DeleteByAccount(accountID),
		Positions: s.positions.DeleteByAccount(accountID),
	}
	slog.Info("account reset",
		slog.String("account_id", accountID),
		slog.Int("orders", result.Orders),
		slog.Int("fills", result.Fills),
	)
	return result, nil
}

// ResetAll performs the full-reset variant across every account.
func (s *AdminService) ResetAll() ([]*ResetResult, error) {
	results := make([]*ResetResult, 0)
	for _, accountID := range s.accounts.IDs() {
		result, err := s.ResetAccount(accountID)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// removeRestingOrders removes the account's open orders from every
// book under each book's lock.
func (s *AdminService) removeRestingOrders(accountID string) {
	open := domain.OrderStatusPending
	part := domain.OrderStatusPartiallyFilled
	for _, status := range []*domain.OrderStatus{&open, &part} {
		for page := 1; ; page++ {
			orders, _ := s.orders.ListByAccount(accountID, status, page, 100)
			if len(orders) == 0 {
				break
			}
			for _, o := range orders {
				s.books.GetOrCreate(o.Symbol).Remove(o.OrderID)
			}
			if len(orders) < 100 {
				break
			}
		}
	}
}
