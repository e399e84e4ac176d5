package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/notify"
	"github.com/efreitasn/papervenue/internal/store"
)

// maxPerturbation bounds the random adjustment applied to a bar's close
// on each tick: the effective close is within +/-8% of the recorded one.
const maxPerturbation = 0.08

const defaultBarCount = 256

// PriceFeed replays each instrument's bar series on an independently
// jittered cadence, perturbs the close to produce the effective trading
// price, and re-evaluates resting limit orders after every move. The
// per-symbol cursor and running flag persist in the simulator state
// record, so a restarted feed resumes instead of starting over.
type PriceFeed struct {
	instruments *store.InstrumentStore
	state       *store.SimStateStore
	matcher     *Matcher
	notifier    notify.Notifier

	barsMu sync.RWMutex
	bars   map[string][]domain.Bar

	rng *Rand

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPriceFeed creates a stopped PriceFeed. The random source drives
// bar generation, tick jitter, and price perturbation; tests pin it.
func NewPriceFeed(
	instruments *store.InstrumentStore,
	state *store.SimStateStore,
	matcher *Matcher,
	notifier notify.Notifier,
	rng *Rand,
) *PriceFeed {
	return &PriceFeed{
		instruments: instruments,
		state:       state,
		matcher:     matcher,
		notifier:    notifier,
		bars:        make(map[string][]domain.Bar),
		rng:         rng,
	}
}

// SeedInstrument registers an instrument at the given reference price
// and synthesizes its replayable bar history as a bounded random walk
// around that price.
func (f *PriceFeed) SeedInstrument(symbol, name string, referencePrice decimal.Decimal) {
	f.instruments.Put(domain.Instrument{
		Symbol:        symbol,
		Name:          name,
		TickSize:      decimal.New(1, -2), // 0.01
		LotSize:       1,
		PreviousClose: referencePrice,
		Price:         referencePrice,
	})

	bars := make([]domain.Bar, 0, defaultBarCount)
	cursor := referencePrice
	base := time.Now().Add(-time.Duration(defaultBarCount) * time.Minute)
	for i := 0; i < defaultBarCount; i++ {
		// Per-bar drift within +/-1.5%, mean-reverting toward the reference.
		drift := 1 + (f.rng.Float64()*0.03 - 0.015)
		next := cursor.Mul(decimal.NewFromFloat(drift))
		if next.LessThan(referencePrice.Mul(decimal.NewFromFloat(0.7))) ||
			next.GreaterThan(referencePrice.Mul(decimal.NewFromFloat(1.3))) {
			next = referencePrice
		}

		high := decimal.Max(cursor, next)
		low := decimal.Min(cursor, next)
		bars = append(bars, domain.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      cursor,
			High:      high.Mul(decimal.NewFromFloat(1.002)),
			Low:       low.Mul(decimal.NewFromFloat(0.998)),
			Close:     next,
			Volume:    int64(1000 + f.rng.Float64()*9000),
		})
		cursor = next
	}

	f.barsMu.Lock()
	f.bars[symbol] = bars
	f.barsMu.Unlock()
}

// Start launches one ticking goroutine per seeded instrument and
// persists the running flag. It fails if the feed is already running.
func (f *PriceFeed) Start(ctx context.Context) error {
	f.runMu.Lock()
	defer f.runMu.Unlock()

	if f.cancel != nil {
		return domain.ErrFeedAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.state.SetRunning(true)

	symbols := f.instruments.Symbols()
	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			f.run(ctx, symbol)
		}(symbol)
	}
	go func() {
		wg.Wait()
		close(f.done)
	}()

	slog.Info("price feed started", slog.Int("instruments", len(symbols)))
	return nil
}

// Stop halts all ticking goroutines and clears the running flag. It
// fails if the feed is not running.
func (f *PriceFeed) Stop() error {
	f.runMu.Lock()
	defer f.runMu.Unlock()

	if f.cancel == nil {
		return domain.ErrFeedNotRunning
	}
	f.cancel()
	<-f.done
	f.cancel = nil
	f.state.SetRunning(false)

	slog.Info("price feed stopped")
	return nil
}

// Running reports whether the feed's goroutines are active.
func (f *PriceFeed) Running() bool {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	return f.cancel != nil
}

// run ticks a single instrument until the context is cancelled. Each
// tick's work completes before the next delay is armed, so tick N+1
// never re-enters the symbol's resting orders mid-settlement. The delay
// is re-jittered and re-reads the configured interval every tick.
func (f *PriceFeed) run(ctx context.Context, symbol string) {
	timer := time.NewTimer(f.jitteredInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			f.tick(symbol, now)
			timer.Reset(f.jitteredInterval())
		}
	}
}

// jitteredInterval returns the configured tick interval scaled by a
// uniform multiplier in [0.6, 1.4], so instruments never tick in
// lockstep.
func (f *PriceFeed) jitteredInterval() time.Duration {
	interval := f.state.Config().TickInterval
	multiplier := 0.6 + f.rng.Float64()*0.8
	return time.Duration(float64(interval) * multiplier)
}

// tick advances the symbol's bar cursor (wrapping for infinite replay),
// perturbs the close, publishes the new live price, and re-evaluates
// the symbol's resting orders.
func (f *PriceFeed) tick(symbol string, now time.Time) {
	f.barsMu.RLock()
	bars := f.bars[symbol]
	f.barsMu.RUnlock()
	if len(bars) == 0 {
		return
	}

	cursor := f.state.Cursor(symbol) % len(bars)
	bar := bars[cursor]
	f.state.SetCursor(symbol, (cursor+1)%len(bars))

	// Effective close: recorded close perturbed by up to +/-8%, with
	// high/low widened to bound it.
	factor := 1 + (f.rng.Float64()*2*maxPerturbation - maxPerturbation)
	close := bar.Close.Mul(decimal.NewFromFloat(factor))

	f.barsMu.Lock()
	if stored := f.bars[symbol]; cursor < len(stored) {
		if close.GreaterThan(stored[cursor].High) {
			stored[cursor].High = close
		}
		if close.LessThan(stored[cursor].Low) {
			stored[cursor].Low = close
		}
	}
	f.barsMu.Unlock()

	instrument, err := f.instruments.UpdatePrice(symbol, close, bar.Volume, now)
	if err != nil {
		// Missing instrument mid-tick resolves on a later tick.
		return
	}

	cfg := f.state.Config()
	quote := domain.QuoteFor(instrument, cfg.BidAskSpreadBps, now)

	change := instrument.Price.Sub(instrument.PreviousClose)
	changePct := decimal.Zero
	if !instrument.PreviousClose.IsZero() {
		changePct = change.Div(instrument.PreviousClose).Mul(decimal.NewFromInt(100))
	}
	f.notifier.PriceTicked(notify.PriceUpdate{
		Symbol:        symbol,
		Price:         instrument.Price,
		Bid:           quote.Bid,
		Ask:           quote.Ask,
		Change:        change,
		ChangePercent: changePct,
		Volume:        bar.Volume,
		Timestamp:     now,
	})

	f.matcher.EvaluateRestingOrders(symbol, now)
}

// Tick runs a single synchronous tick for a symbol. Exposed for tests
// and for replaying without the background goroutines.
func (f *PriceFeed) Tick(symbol string, now time.Time) {
	f.tick(symbol, now)
}
