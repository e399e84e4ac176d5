package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/store"
)

// BookView is the response shape for order book queries: snapshot
// copies of both sides plus the best limit prices.
type BookView struct {
	Symbol     string
	Buys       []engine.RestingOrder
	Sells      []engine.RestingOrder
	BestBid    *decimal.Decimal
	BestAsk    *decimal.Decimal
	SnapshotAt time.Time
}

// MarketService handles instrument, quote, book, and trade-tape queries.
type MarketService struct {
	instruments *store.InstrumentStore
	fills       *store.FillStore
	books       *engine.BookManager
	state       *store.SimStateStore
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(
	instruments *store.InstrumentStore,
	fills *store.FillStore,
	books *engine.BookManager,
	state *store.SimStateStore,
) *MarketService {
	return &MarketService{
		instruments: instruments,
		fills:       fills,
		books:       books,
		state:       state,
	}
}

// ListInstruments returns all instruments sorted by symbol.
func (s *MarketService) ListInstruments() []domain.Instrument {
	return s.instruments.List()
}

// GetQuote returns the current tradable bid/ask for a symbol, derived
// from the live price and the configured spread.
func (s *MarketService) GetQuote(symbol string) (domain.Quote, error) {
	instrument, err := s.instruments.Get(symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	if instrument.Price.IsZero() {
		return domain.Quote{}, domain.ErrNoQuote
	}
	return domain.QuoteFor(instrument, s.state.Config().BidAskSpreadBps, time.Now()), nil
}

// GetBook returns a snapshot of the symbol's resting orders. The copies
// are safe for callers to hold; mutating them does not touch the book.
func (s *MarketService) GetBook(symbol string) (*BookView, error) {
	if !s.instruments.Exists(symbol) {
		return nil, domain.ErrInstrumentNotFound
	}

	book := s.books.GetOrCreate(symbol)
	buys, sells := book.Snapshot()
	bid, ask := book.BestBidAsk()

	return &BookView{
		Symbol:     symbol,
		Buys:       buys,
		Sells:      sells,
		BestBid:    bid,
		BestAsk:    ask,
		SnapshotAt: time.Now(),
	}, nil
}

// RecentFills returns up to limit of the most recent executions for a
// symbol. limit <= 0 returns all.
func (s *MarketService) RecentFills(symbol string, limit int) ([]domain.Fill, error) {
	if !s.instruments.Exists(symbol) {
		return nil, domain.ErrInstrumentNotFound
	}
	return s.fills.GetBySymbol(symbol, limit), nil
}
