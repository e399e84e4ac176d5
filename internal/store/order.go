package store

import (
	"sync"
	"time"

	"github.com/efreitasn/papervenue/internal/domain"
)

// OrderStore is a thread-safe in-memory store for orders,
// with a primary index by order_id and a secondary index by account_id.
type OrderStore struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	accountOrders map[string][]*domain.Order // account_id -> orders (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[string]*domain.Order),
		accountOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order to the store and appends it to the
// account's secondary index. The store keeps its own copy; the caller's
// pointer stays private.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *o
	s.orders[o.OrderID] = &clone
	s.accountOrders[o.AccountID] = append(s.accountOrders[o.AccountID], &clone)
}

// Get retrieves a copy of an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist. Mutations go
// through Mutate, never through the returned copy.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

// Mutate runs fn against the live order under the store's write lock
// and returns a copy of the result. fn checks before it writes: when it
// returns an error it must have left the order untouched, and no copy
// is returned.
func (s *OrderStore) Mutate(id string, fn func(*domain.Order) error) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	clone := *o
	return &clone, nil
}

// ListByAccount returns copies of an account's orders in reverse
// chronological order (newest first). If status is non-nil, only orders
// matching that status are included. Pagination is 1-based. Returns the
// matching orders for the requested page and the total count of
// matching orders.
func (s *OrderStore) ListByAccount(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.accountOrders[accountID]

	filtered := make([]*domain.Order, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total {
		return []*domain.Order{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]*domain.Order, 0, end-start)
	for _, o := range filtered[start:end] {
		clone := *o
		out = append(out, &clone)
	}
	return out, total
}

// CountCreatedOn returns the number of orders the account created on the
// same local calendar day as the given time. Used for the daily order
// count risk check; orders from prior days do not count.
func (s *OrderStore) CountCreatedOn(accountID string, day time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := day.Date()
	count := 0
	for _, o := range s.accountOrders[accountID] {
		oy, om, od := o.CreatedAt.Local().Date()
		if oy == y && om == m && od == d {
			count++
		}
	}
	return count
}

// DeleteByAccount removes all of an account's orders from both indexes.
// Only used by the administrative bulk reset.
func (s *OrderStore) DeleteByAccount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.accountOrders[accountID])
	for _, o := range s.accountOrders[accountID] {
		delete(s.orders, o.OrderID)
	}
	delete(s.accountOrders, accountID)
	return removed
}
