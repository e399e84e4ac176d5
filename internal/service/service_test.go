package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/notify"
	"github.com/efreitasn/papervenue/internal/risk"
	"github.com/efreitasn/papervenue/internal/store"
)

// testVenue wires the full service stack over fresh stores with a
// pinned random source.
type testVenue struct {
	accounts    *store.AccountStore
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	fills       *store.FillStore
	positions   *store.PositionStore
	events      *store.EventStore
	state       *store.SimStateStore
	books       *engine.BookManager
	feed        *engine.PriceFeed

	accountSvc *AccountService
	orderSvc   *OrderService
	marketSvc  *MarketService
	adminSvc   *AdminService
}

func newTestVenue(seed int64) *testVenue {
	cfg := domain.SimConfig{
		BidAskSpreadBps:   10,
		FeePerShare:       decimal.RequireFromString("0.005"),
		SlippageBps:       5,
		TickInterval:      2 * time.Second,
		MaxPartialFillPct: 0.35,
	}
	riskCfg := domain.RiskConfig{
		MaxQuantityPerSymbol: 10000,
		MaxNotionalValue:     decimal.NewFromInt(1000000),
		MaxDailyOrders:       200,
	}

	v := &testVenue{
		accounts:    store.NewAccountStore(),
		instruments: store.NewInstrumentStore(),
		orders:      store.NewOrderStore(),
		fills:       store.NewFillStore(),
		positions:   store.NewPositionStore(),
		events:      store.NewEventStore(),
		state:       store.NewSimStateStore(cfg, riskCfg),
		books:       engine.NewBookManager(),
	}

	rng := engine.NewRand(rand.New(rand.NewSource(seed)))
	notifier := notify.Noop{}
	settler := engine.NewSettler(v.accounts, v.instruments, v.orders, v.fills, v.positions, v.events, v.state)
	matcher := engine.NewMatcher(v.books, settler, v.instruments, v.orders, v.events, v.state, notifier, rng)
	v.feed = engine.NewPriceFeed(v.instruments, v.state, matcher, notifier, rng)
	riskEngine := risk.NewEngine(v.state)

	v.accountSvc = NewAccountService(v.accounts, v.positions, v.instruments, v.fills)
	v.orderSvc = NewOrderService(matcher, riskEngine, v.accounts, v.instruments, v.orders, v.fills, v.positions, v.events, v.state, notifier)
	v.marketSvc = NewMarketService(v.instruments, v.fills, v.books, v.state)
	v.adminSvc = NewAdminService(context.Background(), v.state, v.feed, v.books, v.accounts, v.orders, v.fills, v.positions, v.events)
	return v
}

func (v *testVenue) seedAccount(id string, balance float64) {
	_, err := v.accountSvc.Create(CreateAccountRequest{AccountID: id, OpeningBalance: balance})
	if err != nil {
		panic(err)
	}
}

func (v *testVenue) seedInstrument(symbol string, price int64) {
	v.instruments.Put(domain.Instrument{
		Symbol:        symbol,
		Name:          symbol,
		TickSize:      decimal.New(1, -2),
		LotSize:       1,
		Price:         decimal.NewFromInt(price),
		PreviousClose: decimal.NewFromInt(price),
		UpdatedAt:     time.Now(),
	})
}

func floatPtr(v float64) *float64 { return &v }
