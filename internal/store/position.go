package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/papervenue/internal/domain"
)

type positionKey struct {
	accountID string
	symbol    string
}

// PositionStore is a thread-safe in-memory store for positions, keyed
// uniquely by (account_id, symbol). A position with quantity zero does
// not exist as a row: callers delete it rather than storing empties.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[positionKey]*domain.Position
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[positionKey]*domain.Position),
	}
}

// Get retrieves a copy of the position for (account_id, symbol), or
// (nil, false) if the account holds no position in the symbol. Writers
// mutate the copy and Upsert it back.
func (s *PositionStore) Get(accountID, symbol string) (*domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[positionKey{accountID, symbol}]
	if !ok {
		return nil, false
	}
	clone := *p
	return &clone, true
}

// Upsert inserts or replaces the position for its (account_id, symbol)
// key. The store keeps its own copy.
func (s *PositionStore) Upsert(p *domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *p
	s.positions[positionKey{p.AccountID, p.Symbol}] = &clone
}

// Delete removes the position row for (account_id, symbol).
func (s *PositionStore) Delete(accountID, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.positions, positionKey{accountID, symbol})
}

// ListByAccount returns copies of the account's positions sorted by symbol.
func (s *PositionStore) ListByAccount(accountID string) []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Position, 0)
	for key, p := range s.positions {
		if key.accountID == accountID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// DeleteByAccount removes all of an account's positions. Only used by
// the administrative bulk reset.
func (s *PositionStore) DeleteByAccount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.positions {
		if key.accountID == accountID {
			delete(s.positions, key)
			removed++
		}
	}
	return removed
}
