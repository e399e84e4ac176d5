package engine

import (
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
)

// RestingOrder is the in-memory book projection of an order: the fields
// matching needs, tracked redundantly for speed. RemainingQuantity and
// LastFillAt are mutated only under the book lock and must stay
// consistent with the persisted fill history.
type RestingOrder struct {
	OrderID           string
	AccountID         string
	Symbol            string
	Side              domain.OrderSide
	Type              domain.OrderType
	Price             decimal.Decimal // zero for market orders
	Quantity          int64
	RemainingQuantity int64
	CreatedAt         time.Time
	LastFillAt        time.Time
}

// bookEntry is the immutable btree key for a resting order. Mutable
// state lives behind Ref so re-sorting is never needed after a partial
// fill.
type bookEntry struct {
	Market    bool
	Price     decimal.Decimal
	CreatedAt time.Time
	OrderID   string
	Ref       *RestingOrder
}

// buyLess defines priority for the buy side: market orders first, then
// higher price, then earlier created_at, then order_id. Min() returns
// the highest-priority buy.
func buyLess(a, b bookEntry) bool {
	if a.Market != b.Market {
		return a.Market
	}
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// sellLess defines priority for the sell side: market orders first,
// then lower price, then earlier created_at, then order_id.
func sellLess(a, b bookEntry) bool {
	if a.Market != b.Market {
		return a.Market
	}
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.OrderID < b.OrderID
}

// OrderBook maintains the buy and sell sides of not-fully-filled orders
// for a single symbol, in execution priority order, using B-trees with a
// secondary index for removal by order ID.
type OrderBook struct {
	symbol string
	mu     sync.Mutex
	buys   *btree.BTreeG[bookEntry]
	sells  *btree.BTreeG[bookEntry]
	index  map[string]bookEntry // order_id -> entry
}

// NewOrderBook creates an order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol: symbol,
		buys:   btree.NewG[bookEntry](degree, buyLess),
		sells:  btree.NewG[bookEntry](degree, sellLess),
		index:  make(map[string]bookEntry),
	}
}

// insert adds a resting order to its side. Caller holds mu.
func (ob *OrderBook) insert(ro *RestingOrder) {
	entry := bookEntry{
		Market:    ro.Type == domain.OrderTypeMarket,
		Price:     ro.Price,
		CreatedAt: ro.CreatedAt,
		OrderID:   ro.OrderID,
		Ref:       ro,
	}
	if ro.Side == domain.OrderSideBuy {
		ob.buys.ReplaceOrInsert(entry)
	} else {
		ob.sells.ReplaceOrInsert(entry)
	}
	ob.index[ro.OrderID] = entry
}

// remove deletes an order from the book by order ID. Returns whether the
// order was found. Caller holds mu.
func (ob *OrderBook) remove(orderID string) bool {
	entry, ok := ob.index[orderID]
	if !ok {
		return false
	}
	delete(ob.index, orderID)
	// Delete is a no-op on the side that doesn't hold the entry.
	ob.buys.Delete(entry)
	ob.sells.Delete(entry)
	return true
}

// Remove deletes an order from the book by order ID, reporting whether
// it was present.
func (ob *OrderBook) Remove(orderID string) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.remove(orderID)
}

// get returns the resting order for an order ID. Caller holds mu.
func (ob *OrderBook) get(orderID string) (*RestingOrder, bool) {
	entry, ok := ob.index[orderID]
	if !ok {
		return nil, false
	}
	return entry.Ref, true
}

// walkBuys visits buy entries in priority order until fn returns false.
// Caller holds mu.
func (ob *OrderBook) walkBuys(fn func(*RestingOrder) bool) {
	ob.buys.Ascend(func(e bookEntry) bool { return fn(e.Ref) })
}

// walkSells visits sell entries in priority order until fn returns
// false. Caller holds mu.
func (ob *OrderBook) walkSells(fn func(*RestingOrder) bool) {
	ob.sells.Ascend(func(e bookEntry) bool { return fn(e.Ref) })
}

// Snapshot returns copies of all resting orders on both sides in
// priority order. Callers get copies, never live references.
func (ob *OrderBook) Snapshot() (buys, sells []RestingOrder) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.buys.Ascend(func(e bookEntry) bool {
		buys = append(buys, *e.Ref)
		return true
	})
	ob.sells.Ascend(func(e bookEntry) bool {
		sells = append(sells, *e.Ref)
		return true
	})
	return buys, sells
}

// BestBidAsk returns the price of the first limit entry on each side.
// Market orders carry no price and are skipped. Either value is nil
// when its side has no limit orders.
func (ob *OrderBook) BestBidAsk() (bid, ask *decimal.Decimal) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.buys.Ascend(func(e bookEntry) bool {
		if e.Market {
			return true
		}
		p := e.Price
		bid = &p
		return false
	})
	ob.sells.Ascend(func(e bookEntry) bool {
		if e.Market {
			return true
		}
		p := e.Price
		ask = &p
		return false
	})
	return bid, ask
}

// BuyCount returns the number of resting buy orders.
func (ob *OrderBook) BuyCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.buys.Len()
}

// SellCount returns the number of resting sell orders.
func (ob *OrderBook) SellCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.sells.Len()
}

// BookManager provides per-symbol order books, created on demand.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates an empty BookManager.
func NewBookManager() *BookManager {
	return &BookManager{books: make(map[string]*OrderBook)}
}

// GetOrCreate returns the book for a symbol, creating it if needed.
func (m *BookManager) GetOrCreate(symbol string) *OrderBook {
	m.mu.RLock()
	book, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return book
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if book, ok := m.books[symbol]; ok {
		return book
	}
	book = NewOrderBook(symbol)
	m.books[symbol] = book
	return book
}
