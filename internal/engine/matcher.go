package engine

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/notify"
	"github.com/efreitasn/papervenue/internal/store"
)

// fillCooldown is the minimum wall-clock gap between two fills of the
// same resting order, preventing unrealistic fill bursts across ticks.
const fillCooldown = 5 * time.Second

// Matcher decides, per incoming order or per feed tick, which orders
// execute, at what price, and for what quantity. It has two entry
// points, immediate market execution and tick-driven resting-limit
// evaluation, both settling through the same Settler.
type Matcher struct {
	books       *BookManager
	settler     *Settler
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	events      *store.EventStore
	state       *store.SimStateStore
	notifier    notify.Notifier
	rng         *Rand
}

// NewMatcher creates a Matcher. The random source drives partial-fill
// sizing and is injectable so tests can pin it.
func NewMatcher(
	books *BookManager,
	settler *Settler,
	instruments *store.InstrumentStore,
	orders *store.OrderStore,
	events *store.EventStore,
	state *store.SimStateStore,
	notifier notify.Notifier,
	rng *Rand,
) *Matcher {
	return &Matcher{
		books:       books,
		settler:     settler,
		instruments: instruments,
		orders:      orders,
		events:      events,
		state:       state,
		notifier:    notifier,
		rng:         rng,
	}
}

// AddOrder projects an accepted order into the book as a resting entry.
func (m *Matcher) AddOrder(order *domain.Order) {
	ro := &RestingOrder{
		OrderID:           order.OrderID,
		AccountID:         order.AccountID,
		Symbol:            order.Symbol,
		Side:              order.Side,
		Type:              order.Type,
		Price:             order.Price,
		Quantity:          order.Quantity,
		RemainingQuantity: order.RemainingQuantity,
		CreatedAt:         order.CreatedAt,
	}

	book := m.books.GetOrCreate(order.Symbol)
	book.mu.Lock()
	defer book.mu.Unlock()
	book.insert(ro)
}

// ExecuteMarket executes a market order's entire remaining quantity in
// one fill at the current ask (buy) or bid (sell), worsened by the
// configured slippage. A missing instrument or quote is a silent skip:
// the order stays on the book and executes on the first tick that
// carries a usable quote.
func (m *Matcher) ExecuteMarket(orderID string) *Settlement {
	cfg := m.state.Config()
	now := time.Now()

	var settlement *Settlement

	func() {
		// Resolve the book entry under its lock so no tick interleaves.
		order, err := m.orders.Get(orderID)
		if err != nil {
			slog.Warn("market execution skipped: order vanished", slog.String("order_id", orderID))
			return
		}

		book := m.books.GetOrCreate(order.Symbol)
		book.mu.Lock()
		defer book.mu.Unlock()

		ro, ok := book.get(orderID)
		if !ok {
			slog.Warn("market execution skipped: no book entry", slog.String("order_id", orderID))
			return
		}

		instrument, err := m.instruments.Get(ro.Symbol)
		if err != nil || instrument.Price.IsZero() {
			slog.Warn("market execution skipped: no quote", slog.String("symbol", ro.Symbol))
			return
		}
		quote := domain.QuoteFor(instrument, cfg.BidAskSpreadBps, now)

		fillPrice := quote.Ask
		if ro.Side == domain.OrderSideSell {
			fillPrice = quote.Bid
		}
		// Slippage always worsens the price for the taker.
		slip := domain.BpsOf(fillPrice, cfg.SlippageBps)
		if ro.Side == domain.OrderSideBuy {
			fillPrice = fillPrice.Add(slip)
		} else {
			fillPrice = fillPrice.Sub(slip)
		}

		settlement, err = m.settler.apply(book, ro, ro.RemainingQuantity, fillPrice, now)
		if err != nil {
			slog.Error("market fill aborted", slog.String("order_id", orderID), slog.String("error", err.Error()))
			settlement = nil
		}
	}()

	if settlement != nil {
		m.notifySettlement(settlement)
	}
	return settlement
}

// EvaluateRestingOrders re-evaluates every resting order for a symbol
// against the current quote. Limit orders fill gradually when they
// cross; market orders that rested for lack of a quote execute in full
// at the quote plus slippage. Called once per feed tick for the symbol;
// the book lock is held for the whole pass, so tick N+1 cannot touch
// these orders until tick N's settlements have committed.
func (m *Matcher) EvaluateRestingOrders(symbol string, now time.Time) []*Settlement {
	instrument, err := m.instruments.Get(symbol)
	if err != nil || instrument.Price.IsZero() {
		// Expected to resolve on a later tick; never an error.
		return nil
	}

	cfg := m.state.Config()
	quote := domain.QuoteFor(instrument, cfg.BidAskSpreadBps, now)

	book := m.books.GetOrCreate(symbol)
	book.mu.Lock()

	// Collect candidates first: settling mutates the trees.
	var candidates []*RestingOrder
	collect := func(ro *RestingOrder) bool {
		if ro.RemainingQuantity > 0 {
			candidates = append(candidates, ro)
		}
		return true
	}
	book.walkBuys(collect)
	book.walkSells(collect)

	var settlements []*Settlement
	for _, ro := range candidates {
		// A market order only rests when it arrived before the symbol had
		// a quote. Now that one exists, take the full remaining quantity
		// at the same price a fresh market order would get.
		if ro.Type == domain.OrderTypeMarket {
			fillPrice := quote.Ask
			if ro.Side == domain.OrderSideSell {
				fillPrice = quote.Bid
			}
			slip := domain.BpsOf(fillPrice, cfg.SlippageBps)
			if ro.Side == domain.OrderSideBuy {
				fillPrice = fillPrice.Add(slip)
			} else {
				fillPrice = fillPrice.Sub(slip)
			}

			settlement, err := m.settler.apply(book, ro, ro.RemainingQuantity, fillPrice, now)
			if err != nil {
				slog.Error("resting fill aborted", slog.String("order_id", ro.OrderID), slog.String("error", err.Error()))
				continue
			}
			settlements = append(settlements, settlement)
			continue
		}

		if !ro.LastFillAt.IsZero() && now.Sub(ro.LastFillAt) < fillCooldown {
			continue
		}

		var fillPrice decimal.Decimal
		if ro.Side == domain.OrderSideBuy {
			if ro.Price.LessThan(quote.Ask) {
				continue
			}
			// Never pay worse than the limit; capture improvement.
			fillPrice = decimal.Min(ro.Price, quote.Ask)
		} else {
			if ro.Price.GreaterThan(quote.Bid) {
				continue
			}
			fillPrice = decimal.Max(ro.Price, quote.Bid)
		}

		fillQty := m.partialFillQuantity(ro.RemainingQuantity, cfg.MaxPartialFillPct)
		if fillQty == 0 {
			continue
		}

		settlement, err := m.settler.apply(book, ro, fillQty, fillPrice, now)
		if err != nil {
			slog.Error("resting fill aborted", slog.String("order_id", ro.OrderID), slog.String("error", err.Error()))
			continue
		}
		settlements = append(settlements, settlement)
	}
	book.mu.Unlock()

	for _, st := range settlements {
		m.notifySettlement(st)
	}
	return settlements
}

// partialFillQuantity draws a uniform fraction in [0, maxPct], applies
// it to the remaining quantity, floors, and clamps to [1, remaining].
// Resting orders are absorbed gradually rather than executed in full on
// cross.
func (m *Matcher) partialFillQuantity(remaining int64, maxPct float64) int64 {
	if remaining <= 0 {
		return 0
	}
	fraction := m.rng.Float64() * maxPct
	qty := int64(math.Floor(fraction * float64(remaining)))
	if qty < 1 {
		qty = 1
	}
	if qty > remaining {
		qty = remaining
	}
	return qty
}

// CancelOrder cancels a pending or partially filled order: removes it
// from the book, marks it cancelled, and appends the audit event. It
// returns the order's status before cancellation. Cancelling a terminal
// order fails explicitly, never silently.
func (m *Matcher) CancelOrder(orderID string) (*domain.Order, domain.OrderStatus, error) {
	order, err := m.orders.Get(orderID)
	if err != nil {
		return nil, "", domain.ErrOrderNotFound
	}

	previous := order.Status
	if !order.CanCancel() {
		return nil, previous, domain.ErrOrderNotCancellable
	}

	book := m.books.GetOrCreate(order.Symbol)
	book.mu.Lock()

	// Re-check and flip under the store lock: a fill may have committed,
	// or another cancel may have won the race. Only the still-remaining
	// quantity of a partially filled order is cancelled.
	now := time.Now()
	var cancelledQty int64
	cancelled, err := m.orders.Mutate(orderID, func(o *domain.Order) error {
		previous = o.Status
		if !o.CanCancel() {
			return domain.ErrOrderNotCancellable
		}
		cancelledQty = o.RemainingQuantity
		o.Status = domain.OrderStatusCancelled
		o.CancelledAt = &now
		return nil
	})
	if err != nil {
		book.mu.Unlock()
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, "", domain.ErrOrderNotFound
		}
		return nil, previous, err
	}

	book.remove(orderID)

	m.events.Append(&domain.OrderEvent{
		EventID:   uuid.New().String(),
		OrderID:   cancelled.OrderID,
		AccountID: cancelled.AccountID,
		Type:      domain.OrderEventCancelled,
		Payload: map[string]any{
			"previous_status":    string(previous),
			"cancelled_quantity": cancelledQty,
			"timestamp":          now,
		},
		CreatedAt: now,
	})

	snapshot := *cancelled
	book.mu.Unlock()

	m.notifier.OrderUpdated(snapshot)
	return cancelled, previous, nil
}

// notifySettlement fans out the four per-fill events. Best-effort:
// delivery never blocks or fails the settlement, which has already
// committed by the time this runs.
func (m *Matcher) notifySettlement(st *Settlement) {
	m.notifier.OrderUpdated(st.Order)
	m.notifier.FillExecuted(st.Fill)
	if st.Position != nil || st.PositionDeleted {
		m.notifier.PositionChanged(st.Fill.AccountID, st.Fill.Symbol, st.Position)
	}
	m.notifier.AccountChanged(st.Account)
}
