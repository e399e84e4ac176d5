package store

import (
	"sync"

	"github.com/efreitasn/papervenue/internal/domain"
)

// EventStore is a thread-safe, append-only in-memory store for order
// audit events, one per state transition, ordered by append time.
type EventStore struct {
	mu        sync.RWMutex
	byOrder   map[string][]*domain.OrderEvent
	byAccount map[string][]*domain.OrderEvent
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{
		byOrder:   make(map[string][]*domain.OrderEvent),
		byAccount: make(map[string][]*domain.OrderEvent),
	}
}

// Append adds an event. Events are immutable once appended.
func (s *EventStore) Append(e *domain.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byOrder[e.OrderID] = append(s.byOrder[e.OrderID], e)
	s.byAccount[e.AccountID] = append(s.byAccount[e.AccountID], e)
}

// GetByOrder returns copies of all events for an order in append order.
func (s *EventStore) GetByOrder(orderID string) []domain.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byOrder[orderID]
	out := make([]domain.OrderEvent, len(events))
	for i, e := range events {
		out[i] = *e
	}
	return out
}

// DeleteByAccount removes all of an account's events from both indexes.
// Only used by the administrative bulk reset, which is exempt from the
// append-only invariant.
func (s *EventStore) DeleteByAccount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byAccount[accountID]
	for _, e := range events {
		kept := s.byOrder[e.OrderID][:0]
		for _, oe := range s.byOrder[e.OrderID] {
			if oe != e {
				kept = append(kept, oe)
			}
		}
		if len(kept) == 0 {
			delete(s.byOrder, e.OrderID)
		} else {
			s.byOrder[e.OrderID] = kept
		}
	}
	delete(s.byAccount, accountID)
	return len(events)
}
