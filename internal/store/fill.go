package store

import (
	"sync"

	"github.com/efreitasn/papervenue/internal/domain"
)

// FillStore is a thread-safe, append-only in-memory store for fills,
// indexed by order, by account, and chronologically per symbol.
type FillStore struct {
	mu        sync.RWMutex
	byOrder   map[string][]*domain.Fill
	byAccount map[string][]*domain.Fill
	bySymbol  map[string][]*domain.Fill // chronological
}

// NewFillStore creates an empty FillStore.
func NewFillStore() *FillStore {
	return &FillStore{
		byOrder:   make(map[string][]*domain.Fill),
		byAccount: make(map[string][]*domain.Fill),
		bySymbol:  make(map[string][]*domain.Fill),
	}
}

// Append adds a fill. Fills are immutable once appended.
func (s *FillStore) Append(f *domain.Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byOrder[f.OrderID] = append(s.byOrder[f.OrderID], f)
	s.byAccount[f.AccountID] = append(s.byAccount[f.AccountID], f)
	s.bySymbol[f.Symbol] = append(s.bySymbol[f.Symbol], f)
}

// GetByOrder returns copies of all fills for an order in execution order.
func (s *FillStore) GetByOrder(orderID string) []domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFills(s.byOrder[orderID])
}

// GetByAccount returns copies of all fills for an account in execution order.
func (s *FillStore) GetByAccount(accountID string) []domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFills(s.byAccount[accountID])
}

// GetBySymbol returns up to limit of the most recent fills for a symbol,
// newest last. limit <= 0 returns all.
func (s *FillStore) GetBySymbol(symbol string, limit int) []domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fills := s.bySymbol[symbol]
	if limit > 0 && len(fills) > limit {
		fills = fills[len(fills)-limit:]
	}
	return copyFills(fills)
}

// FilledQuantity returns the sum of fill quantities for an order. This is
// the source of truth for how much of the order has executed.
func (s *FillStore) FilledQuantity(orderID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, f := range s.byOrder[orderID] {
		total += f.Quantity
	}
	return total
}

// DeleteByAccount removes all of an account's fills from every index.
// Only used by the administrative bulk reset, which is exempt from the
// append-only invariant.
func (s *FillStore) DeleteByAccount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	fills := s.byAccount[accountID]
	for _, f := range fills {
		s.byOrder[f.OrderID] = removeFill(s.byOrder[f.OrderID], f)
		s.bySymbol[f.Symbol] = removeFill(s.bySymbol[f.Symbol], f)
	}
	delete(s.byAccount, accountID)
	return len(fills)
}

func copyFills(fills []*domain.Fill) []domain.Fill {
	out := make([]domain.Fill, len(fills))
	for i, f := range fills {
		out[i] = *f
	}
	return out
}

func removeFill(fills []*domain.Fill, target *domain.Fill) []*domain.Fill {
	out := fills[:0]
	for _, f := range fills {
		if f != target {
			out = append(out, f)
		}
	}
	return out
}
