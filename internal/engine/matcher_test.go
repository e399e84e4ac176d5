package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

func TestExecuteMarket_BuyFillsAtAskPlusSlippage(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideBuy, 100))
	st := env.matcher.ExecuteMarket(order.OrderID)
	if st == nil {
		t.Fatal("expected a settlement")
	}

	in, _ := env.instruments.Get("AAPL")
	quote := domain.QuoteFor(in, 10, time.Now())
	want := quote.Ask.Add(domain.BpsOf(quote.Ask, 5))
	if !st.Fill.Price.Equal(want) {
		t.Errorf("expected fill at %s, got %s", want, st.Fill.Price)
	}
	if st.Fill.Quantity != 100 {
		t.Errorf("expected full fill of 100, got %d", st.Fill.Quantity)
	}
	if st.Order.Status != domain.OrderStatusFilled {
		t.Errorf("expected filled, got %s", st.Order.Status)
	}
	if env.books.GetOrCreate("AAPL").BuyCount() != 0 {
		t.Error("filled order must leave the book")
	}
}

func TestExecuteMarket_SellFillsAtBidMinusSlippage(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)
	env.positions.Upsert(&domain.Position{
		AccountID: "acct", Symbol: "AAPL", Quantity: 100, AvgPrice: decimal.NewFromInt(90),
	})

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideSell, 100))
	st := env.matcher.ExecuteMarket(order.OrderID)
	if st == nil {
		t.Fatal("expected a settlement")
	}

	in, _ := env.instruments.Get("AAPL")
	quote := domain.QuoteFor(in, 10, time.Now())
	want := quote.Bid.Sub(domain.BpsOf(quote.Bid, 5))
	if !st.Fill.Price.Equal(want) {
		t.Errorf("expected fill at %s, got %s", want, st.Fill.Price)
	}
}

func TestExecuteMarket_NoQuoteIsSilentSkip(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 0) // no live price yet

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideBuy, 100))
	st := env.matcher.ExecuteMarket(order.OrderID)

	if st != nil {
		t.Fatal("expected no settlement without a quote")
	}
	got, _ := env.orders.Get(order.OrderID)
	if got.Status != domain.OrderStatusPending {
		t.Errorf("expected order untouched, got %s", got.Status)
	}
	if env.books.GetOrCreate("AAPL").BuyCount() != 1 {
		t.Error("order must stay on the book awaiting a quote")
	}
}

func TestEvaluateRestingOrders_BuyLimitBelowAskDoesNotFill(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100) // ask is 100.05

	env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "99", 100))
	settlements := env.matcher.EvaluateRestingOrders("AAPL", time.Now())

	if len(settlements) != 0 {
		t.Fatalf("expected no settlements, got %d", len(settlements))
	}
}

func TestEvaluateRestingOrders_BuyLimitCrossesAtAsk(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)

	env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 100))
	settlements := env.matcher.EvaluateRestingOrders("AAPL", time.Now())

	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	// The limit is far above the ask; the fill captures the improvement.
	in, _ := env.instruments.Get("AAPL")
	quote := domain.QuoteFor(in, 10, time.Now())
	if !settlements[0].Fill.Price.Equal(quote.Ask) {
		t.Errorf("expected fill at ask %s, got %s", quote.Ask, settlements[0].Fill.Price)
	}
}

func TestEvaluateRestingOrders_SellLimitCrossesAtBid(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)
	env.positions.Upsert(&domain.Position{
		AccountID: "acct", Symbol: "AAPL", Quantity: 500, AvgPrice: decimal.NewFromInt(90),
	})

	env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideSell, "80", 100))
	settlements := env.matcher.EvaluateRestingOrders("AAPL", time.Now())

	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	in, _ := env.instruments.Get("AAPL")
	quote := domain.QuoteFor(in, 10, time.Now())
	if !settlements[0].Fill.Price.Equal(quote.Bid) {
		t.Errorf("expected fill at bid %s, got %s", quote.Bid, settlements[0].Fill.Price)
	}
}

func TestEvaluateRestingOrders_PartialFillWithinBounds(t *testing.T) {
	env := newTestEnv(7)
	env.addAccount("acct", 10000000)
	env.addInstrument("AAPL", 100)

	env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 1000))
	settlements := env.matcher.EvaluateRestingOrders("AAPL", time.Now())

	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}
	qty := settlements[0].Fill.Quantity
	// max_partial_fill_pct is 0.35, so at most 350 of 1000.
	if qty < 1 || qty > 350 {
		t.Errorf("fill quantity %d outside [1, 350]", qty)
	}
}

func TestEvaluateRestingOrders_CooldownBlocksRefill(t *testing.T) {
	env := newTestEnv(7)
	env.addAccount("acct", 10000000)
	env.addInstrument("AAPL", 100)

	env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 1000))
	now := time.Now()

	first := env.matcher.EvaluateRestingOrders("AAPL", now)
	if len(first) != 1 {
		t.Fatalf("expected first evaluation to fill, got %d settlements", len(first))
	}

	// Within the cooldown window: no further fills.
	again := env.matcher.EvaluateRestingOrders("AAPL", now.Add(2*time.Second))
	if len(again) != 0 {
		t.Fatalf("expected cooldown to block, got %d settlements", len(again))
	}

	// After the window passes, the order is eligible again.
	later := env.matcher.EvaluateRestingOrders("AAPL", now.Add(6*time.Second))
	if len(later) != 1 {
		t.Fatalf("expected refill after cooldown, got %d settlements", len(later))
	}
}

func TestEvaluateRestingOrders_DrainsToFullFill(t *testing.T) {
	env := newTestEnv(3)
	env.addAccount("acct", 10000000)
	env.addInstrument("AAPL", 100)

	order := env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 50))

	now := time.Now()
	for i := 0; i < 200; i++ {
		env.matcher.EvaluateRestingOrders("AAPL", now.Add(time.Duration(i)*10*time.Second))
		got, _ := env.orders.Get(order.OrderID)
		if got.Status == domain.OrderStatusFilled {
			break
		}
	}

	got, _ := env.orders.Get(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Fatalf("expected order to fill eventually, got %s with %d remaining", got.Status, got.RemainingQuantity)
	}
	if got.FilledQuantity != 50 {
		t.Errorf("expected 50 filled, got %d", got.FilledQuantity)
	}
	if env.books.GetOrCreate("AAPL").BuyCount() != 0 {
		t.Error("fully filled order must leave the book")
	}
	if sum := env.fills.FilledQuantity(order.OrderID); sum != 50 {
		t.Errorf("fill records sum to %d, want 50", sum)
	}
}

func TestCancelOrder_Pending(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)

	order := env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "90", 100))

	cancelled, previous, err := env.matcher.CancelOrder(order.OrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if previous != domain.OrderStatusPending {
		t.Errorf("expected previous status pending, got %s", previous)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Error("expected cancelled_at to be set")
	}
	if env.books.GetOrCreate("AAPL").BuyCount() != 0 {
		t.Error("cancelled order must leave the book")
	}

	events := env.events.GetByOrder(order.OrderID)
	if len(events) != 1 || events[0].Type != domain.OrderEventCancelled {
		t.Errorf("expected a single cancelled event, got %v", events)
	}
}

func TestCancelOrder_PartiallyFilledCancelsRemainder(t *testing.T) {
	env := newTestEnv(7)
	env.addAccount("acct", 10000000)
	env.addInstrument("AAPL", 100)

	order := env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 1000))
	env.matcher.EvaluateRestingOrders("AAPL", time.Now())

	got, _ := env.orders.Get(order.OrderID)
	if got.Status != domain.OrderStatusPartiallyFilled {
		t.Fatalf("expected a partial fill first, got %s", got.Status)
	}
	filled := got.FilledQuantity

	cancelled, previous, err := env.matcher.CancelOrder(order.OrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if previous != domain.OrderStatusPartiallyFilled {
		t.Errorf("expected previous partially_filled, got %s", previous)
	}
	if cancelled.FilledQuantity != filled {
		t.Errorf("cancel must not disturb filled quantity: %d != %d", cancelled.FilledQuantity, filled)
	}
}

func TestCancelOrder_TerminalFails(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideBuy, 10))
	env.matcher.ExecuteMarket(order.OrderID)

	_, _, err := env.matcher.CancelOrder(order.OrderID)
	if !errors.Is(err, domain.ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable, got %v", err)
	}

	_, _, err = env.matcher.CancelOrder("nope")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestNotifySettlement_FansOut(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 100)

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideBuy, 10))
	env.matcher.ExecuteMarket(order.OrderID)

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.orders) != 1 {
		t.Errorf("expected 1 order notification, got %d", len(env.notifier.orders))
	}
	if len(env.notifier.fills) != 1 {
		t.Errorf("expected 1 fill notification, got %d", len(env.notifier.fills))
	}
	if len(env.notifier.positions) != 1 {
		t.Errorf("expected 1 position notification, got %d", len(env.notifier.positions))
	}
	if len(env.notifier.accounts) != 1 {
		t.Errorf("expected 1 account notification, got %d", len(env.notifier.accounts))
	}
}

func TestEvaluateRestingOrders_FillsRestingMarketOrderOnceQuoted(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 50000)
	env.addInstrument("AAPL", 0) // no live price yet

	order := env.submit(marketOrder("m1", "acct", "AAPL", domain.OrderSideBuy, 100))
	if st := env.matcher.ExecuteMarket(order.OrderID); st != nil {
		t.Fatal("expected no settlement without a quote")
	}

	now := time.Now()
	_, err := env.instruments.UpdatePrice("AAPL", decimal.NewFromInt(100), 0, now)
	if err != nil {
		t.Fatal(err)
	}

	settlements := env.matcher.EvaluateRestingOrders("AAPL", now)
	if len(settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(settlements))
	}

	in, _ := env.instruments.Get("AAPL")
	quote := domain.QuoteFor(in, 10, now)
	want := quote.Ask.Add(domain.BpsOf(quote.Ask, 5))
	if !settlements[0].Fill.Price.Equal(want) {
		t.Errorf("expected fill at %s, got %s", want, settlements[0].Fill.Price)
	}
	if settlements[0].Fill.Quantity != 100 {
		t.Errorf("expected full fill of 100, got %d", settlements[0].Fill.Quantity)
	}

	got, _ := env.orders.Get(order.OrderID)
	if got.Status != domain.OrderStatusFilled {
		t.Errorf("expected filled, got %s", got.Status)
	}
	if env.books.GetOrCreate("AAPL").BuyCount() != 0 {
		t.Error("filled order must leave the book")
	}
}

// Readers hold order copies from the store while tick-driven fills
// advance the live order under the store lock. Run under the race
// detector this exercises the copy-on-read boundary.
func TestConcurrentReadsDuringFills(t *testing.T) {
	env := newTestEnv(1)
	env.addAccount("acct", 100000000)
	env.addInstrument("AAPL", 100)

	order := env.submit(limitOrder("l1", "acct", "AAPL", domain.OrderSideBuy, "120", 100000))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				got, err := env.orders.Get(order.OrderID)
				if err != nil {
					t.Error(err)
					return
				}
				if got.RemainingQuantity < 0 || got.RemainingQuantity > got.Quantity {
					t.Errorf("remaining quantity %d out of range", got.RemainingQuantity)
					return
				}
			}
		}()
	}

	now := time.Now()
	for i := 0; i < 50; i++ {
		// Step past the cooldown so every pass can fill.
		env.matcher.EvaluateRestingOrders("AAPL", now.Add(time.Duration(i)*fillCooldown))
	}
	close(done)
	wg.Wait()
}
