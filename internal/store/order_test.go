package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/papervenue/internal/domain"
)

func seedOrders(t *testing.T, s *OrderStore, accountID string, n int, status domain.OrderStatus, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Create(&domain.Order{
			OrderID:   fmt.Sprintf("%s-o%d", accountID, i),
			AccountID: accountID,
			Symbol:    "AAPL",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestOrderStore_GetNotFound(t *testing.T) {
	s := NewOrderStore()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderStore_ListByAccount_NewestFirst(t *testing.T) {
	s := NewOrderStore()
	seedOrders(t, s, "acct", 3, domain.OrderStatusPending, time.Now())

	orders, total := s.ListByAccount("acct", nil, 1, 10)

	require.Equal(t, 3, total)
	require.Len(t, orders, 3)
	assert.Equal(t, "acct-o2", orders[0].OrderID)
	assert.Equal(t, "acct-o0", orders[2].OrderID)
}

func TestOrderStore_ListByAccount_StatusFilter(t *testing.T) {
	s := NewOrderStore()
	base := time.Now()
	seedOrders(t, s, "acct", 2, domain.OrderStatusPending, base)
	s.Create(&domain.Order{
		OrderID: "filled-1", AccountID: "acct", Status: domain.OrderStatusFilled, CreatedAt: base,
	})

	filled := domain.OrderStatusFilled
	orders, total := s.ListByAccount("acct", &filled, 1, 10)

	require.Equal(t, 1, total)
	assert.Equal(t, "filled-1", orders[0].OrderID)
}

func TestOrderStore_ListByAccount_Pagination(t *testing.T) {
	s := NewOrderStore()
	seedOrders(t, s, "acct", 5, domain.OrderStatusPending, time.Now())

	page1, total := s.ListByAccount("acct", nil, 1, 2)
	require.Equal(t, 5, total)
	require.Len(t, page1, 2)

	page3, _ := s.ListByAccount("acct", nil, 3, 2)
	require.Len(t, page3, 1)

	beyond, total := s.ListByAccount("acct", nil, 4, 2)
	assert.Empty(t, beyond)
	assert.Equal(t, 5, total)
}

func TestOrderStore_CountCreatedOn(t *testing.T) {
	s := NewOrderStore()
	// Midday, so the minute offsets never cross a day boundary.
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	seedOrders(t, s, "acct", 3, domain.OrderStatusPending, now)
	s.Create(&domain.Order{
		OrderID: "old", AccountID: "acct", CreatedAt: now.AddDate(0, 0, -1),
	})
	s.Create(&domain.Order{
		OrderID: "other", AccountID: "someone-else", CreatedAt: now,
	})

	assert.Equal(t, 3, s.CountCreatedOn("acct", now))
	assert.Equal(t, 1, s.CountCreatedOn("acct", now.AddDate(0, 0, -1)))
	assert.Equal(t, 0, s.CountCreatedOn("acct", now.AddDate(0, 0, -2)))
}

func TestOrderStore_DeleteByAccount(t *testing.T) {
	s := NewOrderStore()
	seedOrders(t, s, "acct", 3, domain.OrderStatusPending, time.Now())
	seedOrders(t, s, "other", 2, domain.OrderStatusPending, time.Now())

	removed := s.DeleteByAccount("acct")

	assert.Equal(t, 3, removed)
	_, err := s.Get("acct-o0")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// The other account is untouched.
	_, total := s.ListByAccount("other", nil, 1, 10)
	assert.Equal(t, 2, total)

	assert.Equal(t, 0, s.DeleteByAccount("acct"))
}

func TestOrderStore_GetReturnsCopy(t *testing.T) {
	s := NewOrderStore()
	s.Create(&domain.Order{
		OrderID:           "o1",
		AccountID:         "acct",
		Status:            domain.OrderStatusPending,
		Quantity:          100,
		RemainingQuantity: 100,
		CreatedAt:         time.Now(),
	})

	got, err := s.Get("o1")
	require.NoError(t, err)
	got.Status = domain.OrderStatusFilled
	got.RemainingQuantity = 0

	fresh, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, fresh.Status)
	assert.Equal(t, int64(100), fresh.RemainingQuantity)
}

func TestOrderStore_ListByAccountReturnsCopies(t *testing.T) {
	s := NewOrderStore()
	seedOrders(t, s, "acct", 1, domain.OrderStatusPending, time.Now())

	orders, _ := s.ListByAccount("acct", nil, 1, 10)
	require.Len(t, orders, 1)
	orders[0].Status = domain.OrderStatusCancelled

	fresh, _ := s.ListByAccount("acct", nil, 1, 10)
	assert.Equal(t, domain.OrderStatusPending, fresh[0].Status)
}

func TestOrderStore_CreateKeepsOwnCopy(t *testing.T) {
	s := NewOrderStore()
	o := &domain.Order{
		OrderID:   "o1",
		AccountID: "acct",
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	s.Create(o)
	o.Status = domain.OrderStatusRejected

	got, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestOrderStore_Mutate(t *testing.T) {
	s := NewOrderStore()
	now := time.Now()
	s.Create(&domain.Order{
		OrderID:           "o1",
		AccountID:         "acct",
		Status:            domain.OrderStatusPending,
		Quantity:          100,
		RemainingQuantity: 100,
		CreatedAt:         now,
	})

	updated, err := s.Mutate("o1", func(o *domain.Order) error {
		o.ApplyFill(40, now)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), updated.RemainingQuantity)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, updated.Status)

	fresh, err := s.Get("o1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), fresh.RemainingQuantity)

	// A declining fn leaves the order untouched.
	wantErr := domain.ErrOrderNotCancellable
	_, err = s.Mutate("o1", func(o *domain.Order) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, err = s.Mutate("missing", func(o *domain.Order) error { return nil })
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
