package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/store"
)

// Settler applies a decided fill as a single atomic unit: fill record,
// order status, audit event, position upsert, account cash, and book
// entry: all succeed or none are visible. It resolves every referenced
// entity before the first write, so a missing account or instrument
// aborts the fill with no partial state change.
type Settler struct {
	accounts    *store.AccountStore
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	fills       *store.FillStore
	positions   *store.PositionStore
	events      *store.EventStore
	state       *store.SimStateStore
}

// NewSettler creates a Settler over the given stores.
func NewSettler(
	accounts *store.AccountStore,
	instruments *store.InstrumentStore,
	orders *store.OrderStore,
	fills *store.FillStore,
	positions *store.PositionStore,
	events *store.EventStore,
	state *store.SimStateStore,
) *Settler {
	return &Settler{
		accounts:    accounts,
		instruments: instruments,
		orders:      orders,
		fills:       fills,
		positions:   positions,
		events:      events,
		state:       state,
	}
}

// Settlement is the committed outcome of one fill, snapshotted for
// notification fan-out after the book lock is released.
type Settlement struct {
	Order           domain.Order
	Fill            domain.Fill
	Position        *domain.Position // nil when position bookkeeping was a no-op
	PositionDeleted bool
	Account         domain.AccountSnapshot
}

// apply settles one fill for a resting order. The caller must hold the
// book lock for the order's symbol; no second fill's writes can
// interleave with this one's.
func (s *Settler) apply(book *OrderBook, ro *RestingOrder, fillQty int64, fillPrice decimal.Decimal, executedAt time.Time) (*Settlement, error) {
	if fillQty <= 0 || fillQty > ro.RemainingQuantity {
		return nil, fmt.Errorf("fill quantity %d out of range for order %s (remaining %d)", fillQty, ro.OrderID, ro.RemainingQuantity)
	}

	// Preflight: resolve everything before the first write.
	order, err := s.orders.Get(ro.OrderID)
	if err != nil {
		return nil, fmt.Errorf("settle order %s: %w", ro.OrderID, err)
	}
	account, err := s.accounts.Get(order.AccountID)
	if err != nil {
		return nil, fmt.Errorf("settle order %s: %w", ro.OrderID, err)
	}
	instrument, err := s.instruments.Get(order.Symbol)
	if err != nil {
		return nil, fmt.Errorf("settle order %s: %w", ro.OrderID, err)
	}

	cfg := s.state.Config()
	qty := decimal.NewFromInt(fillQty)
	fees := cfg.FeePerShare.Mul(qty)
	gross := fillPrice.Mul(qty)

	// 1. Advance the order under the store lock. This is the only step
	// that can still fail, so it runs before any other write.
	order, err = s.orders.Mutate(order.OrderID, func(o *domain.Order) error {
		o.ApplyFill(fillQty, executedAt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("settle order %s: %w", ro.OrderID, err)
	}

	// 2. Append the fill record.
	fill := &domain.Fill{
		FillID:     uuid.New().String(),
		OrderID:    order.OrderID,
		AccountID:  order.AccountID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   fillQty,
		Price:      fillPrice,
		Fees:       fees,
		ExecutedAt: executedAt,
	}
	s.fills.Append(fill)

	// 3. Append the audit event.
	eventType := domain.OrderEventPartiallyFilled
	if order.Status == domain.OrderStatusFilled {
		eventType = domain.OrderEventFilled
	}
	s.events.Append(&domain.OrderEvent{
		EventID:   uuid.New().String(),
		OrderID:   order.OrderID,
		AccountID: order.AccountID,
		Type:      eventType,
		Payload: map[string]any{
			"fill_price":         fillPrice.String(),
			"fill_quantity":      fillQty,
			"remaining_quantity": order.RemainingQuantity,
			"fees":               fees.String(),
			"gross_amount":       gross.String(),
			"net_amount":         fill.Net().String(),
			"timestamp":          executedAt,
		},
		CreatedAt: executedAt,
	})

	// 4. Upsert the position (weighted-average cost).
	settlement := &Settlement{Fill: *fill}
	pos, exists := s.positions.Get(order.AccountID, order.Symbol)
	switch {
	case !exists && order.Side == domain.OrderSideBuy:
		pos = &domain.Position{
			AccountID: order.AccountID,
			Symbol:    order.Symbol,
			Quantity:  fillQty,
			AvgPrice:  fillPrice,
		}
		pos.Revalue(instrument.Price, executedAt)
		s.positions.Upsert(pos)
		snap := *pos
		settlement.Position = &snap
	case !exists && order.Side == domain.OrderSideSell:
		// Short positions don't exist in this model; the risk gate is the
		// sole enforcement of "cannot sell what you don't own". Cash, order,
		// and event still settle; position bookkeeping is a no-op.
	case order.Side == domain.OrderSideBuy:
		pos.ApplyBuy(fillQty, fillPrice)
		pos.Revalue(instrument.Price, executedAt)
		s.positions.Upsert(pos)
		snap := *pos
		settlement.Position = &snap
	default: // existing position, sell
		pos.ApplySell(fillQty)
		if pos.Quantity == 0 {
			s.positions.Delete(order.AccountID, order.Symbol)
			settlement.PositionDeleted = true
		} else {
			pos.Revalue(instrument.Price, executedAt)
			s.positions.Upsert(pos)
			snap := *pos
			settlement.Position = &snap
		}
	}

	// 5. Update the account: buys debit gross+fees, sells credit gross-fees.
	account.Mu.Lock()
	if order.Side == domain.OrderSideBuy {
		account.Debit(gross.Add(fees))
	} else {
		account.Credit(gross.Sub(fees))
	}
	settlement.Account = account.Snapshot()
	account.Mu.Unlock()

	// 6. Update the book entry.
	ro.RemainingQuantity = order.RemainingQuantity
	ro.LastFillAt = executedAt
	if ro.RemainingQuantity == 0 {
		book.remove(ro.OrderID)
	}

	settlement.Order = *order
	return settlement, nil
}
