package store

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

// InstrumentStore is a thread-safe in-memory store for instruments,
// keyed by symbol. Reads return copies; the live price fields are
// written only through UpdatePrice, which the price feed owns.
type InstrumentStore struct {
	mu          sync.RWMutex
	instruments map[string]*domain.Instrument
}

// NewInstrumentStore creates an empty InstrumentStore.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		instruments: make(map[string]*domain.Instrument),
	}
}

// Put inserts or replaces an instrument.
func (s *InstrumentStore) Put(in domain.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := in
	s.instruments[in.Symbol] = &copied
}

// Get retrieves a copy of an instrument by symbol. It returns
// domain.ErrInstrumentNotFound if the symbol is unknown.
func (s *InstrumentStore) Get(symbol string) (domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.instruments[symbol]
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}
	return *in, nil
}

// Exists returns true if an instrument with the given symbol exists.
func (s *InstrumentStore) Exists(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.instruments[symbol]
	return ok
}

// UpdatePrice moves the instrument's live price: the prior live price
// becomes the previous close, and the new price, bar volume, and update
// time are written. Returns a copy of the updated instrument.
func (s *InstrumentStore) UpdatePrice(symbol string, price decimal.Decimal, volume int64, at time.Time) (domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.instruments[symbol]
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}
	in.PreviousClose = in.Price
	in.Price = price
	in.Volume = volume
	in.UpdatedAt = at
	return *in, nil
}

// List returns copies of all instruments sorted by symbol.
func (s *InstrumentStore) List() []domain.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Instrument, 0, len(s.instruments))
	for _, in := range s.instruments {
		out = append(out, *in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns all known symbols sorted alphabetically.
func (s *InstrumentStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.instruments))
	for sym := range s.instruments {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
