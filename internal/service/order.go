package service

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/notify"
	"github.com/efreitasn/papervenue/internal/risk"
	"github.com/efreitasn/papervenue/internal/store"
)

var (
	accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex    = regexp.MustCompile(`^[A-Z]{1,10}$`)
)

// ValidOrderStatuses lists all valid order status values for validation.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:         true,
	domain.OrderStatusPartiallyFilled: true,
	domain.OrderStatusFilled:          true,
	domain.OrderStatusCancelled:       true,
	domain.OrderStatusRejected:        true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	AccountID string
	Symbol    string
	Type      domain.OrderType
	Side      domain.OrderSide
	Quantity  int64
	Price     *float64 // required for limit, must be nil for market
}

// CancelOrderResult reports a successful cancellation and the status the
// order held before it.
type CancelOrderResult struct {
	Order          *domain.Order
	PreviousStatus domain.OrderStatus
}

// OrderService handles order submission, retrieval, cancellation, and
// listing. Every submission passes the risk gate before it can reach
// the book; rejections are persisted as rejected orders, not errors.
type OrderService struct {
	matcher     *engine.Matcher
	riskEngine  *risk.Engine
	accounts    *store.AccountStore
	instruments *store.InstrumentStore
	orders      *store.OrderStore
	fills       *store.FillStore
	positions   *store.PositionStore
	events      *store.EventStore
	state       *store.SimStateStore
	notifier    notify.Notifier
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	matcher *engine.Matcher,
	riskEngine *risk.Engine,
	accounts *store.AccountStore,
	instruments *store.InstrumentStore,
	orders *store.OrderStore,
	fills *store.FillStore,
	positions *store.PositionStore,
	events *store.EventStore,
	state *store.SimStateStore,
	notifier notify.Notifier,
) *OrderService {
	return &OrderService{
		matcher:     matcher,
		riskEngine:  riskEngine,
		accounts:    accounts,
		instruments: instruments,
		orders:      orders,
		fills:       fills,
		positions:   positions,
		events:      events,
		state:       state,
		notifier:    notifier,
	}
}

// SubmitOrder validates the request, runs the risk gate, and routes the
// order: market orders execute immediately against the current quote,
// limit orders rest on the book awaiting ticks. Risk rejections return
// the persisted rejected order with a nil error; they are a normal
// outcome, not a failure.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if req.Type != domain.OrderTypeMarket && req.Type != domain.OrderTypeLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: market, limit", req.Type),
		}
	}
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must match ^[A-Z]{1,10}$",
		}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	var limitPrice decimal.Decimal
	if req.Type == domain.OrderTypeLimit {
		if req.Price == nil {
			return nil, &domain.ValidationError{
				Message: "price is required for limit orders",
			}
		}
		if *req.Price <= 0 {
			return nil, &domain.ValidationError{
				Message: "price must be greater than 0",
			}
		}
		limitPrice = decimal.NewFromFloat(*req.Price)
	} else if req.Price != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include price",
		}
	}

	account, err := s.accounts.Get(req.AccountID)
	if err != nil {
		return nil, err
	}
	instrument, err := s.instruments.Get(req.Symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		OrderID:           uuid.New().String(),
		AccountID:         req.AccountID,
		Symbol:            req.Symbol,
		Type:              req.Type,
		Side:              req.Side,
		Price:             limitPrice,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		Status:            domain.OrderStatusPending,
		CreatedAt:         now,
	}

	// Risk gate. The daily count is taken before this order is persisted.
	account.Mu.Lock()
	buyingPower := account.BuyingPower
	account.Mu.Unlock()

	var positionQty int64
	if pos, ok := s.positions.Get(req.AccountID, req.Symbol); ok {
		positionQty = pos.Quantity
	}

	result := s.riskEngine.Evaluate(
		risk.Input{
			AccountID:  req.AccountID,
			Symbol:     req.Symbol,
			Side:       req.Side,
			Type:       req.Type,
			Quantity:   req.Quantity,
			LimitPrice: limitPrice,
		},
		risk.StateView{
			BuyingPower: buyingPower,
			PositionQty: positionQty,
			OrdersToday: s.orders.CountCreatedOn(req.AccountID, now),
			LivePrice:   instrument.Price,
			FeePerShare: s.state.Config().FeePerShare,
		},
	)

	if !result.Passed {
		order.Status = domain.OrderStatusRejected
		s.orders.Create(order)
		s.events.Append(&domain.OrderEvent{
			EventID:   uuid.New().String(),
			OrderID:   order.OrderID,
			AccountID: order.AccountID,
			Type:      domain.OrderEventRejected,
			Payload: map[string]any{
				"reasons":   result.Reasons,
				"timestamp": now,
			},
			CreatedAt: now,
		})
		s.notifier.OrderUpdated(*order)
		return order, nil
	}

	s.orders.Create(order)
	s.events.Append(&domain.OrderEvent{
		EventID:   uuid.New().String(),
		OrderID:   order.OrderID,
		AccountID: order.AccountID,
		Type:      domain.OrderEventAccepted,
		Payload: map[string]any{
			"type":      string(order.Type),
			"side":      string(order.Side),
			"quantity":  order.Quantity,
			"price":     order.Price.String(),
			"timestamp": now,
		},
		CreatedAt: now,
	})
	s.matcher.AddOrder(order)

	if order.Type == domain.OrderTypeMarket {
		s.matcher.ExecuteMarket(order.OrderID)
		// The stored order advanced; the local copy did not.
		if fresh, err := s.orders.Get(order.OrderID); err == nil {
			order = fresh
		}
	}

	return order, nil
}

// CancelOrder cancels a pending or partially filled order and reports
// the status it held beforehand.
func (s *OrderService) CancelOrder(orderID string) (*CancelOrderResult, error) {
	order, previous, err := s.matcher.CancelOrder(orderID)
	if err != nil {
		return nil, err
	}
	return &CancelOrderResult{Order: order, PreviousStatus: previous}, nil
}

// GetOrder retrieves an order by ID together with its fills.
func (s *OrderService) GetOrder(orderID string) (*domain.Order, []domain.Fill, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, s.fills.GetByOrder(orderID), nil
}

// GetOrderEvents returns an order's audit trail.
func (s *OrderService) GetOrderEvents(orderID string) ([]domain.OrderEvent, error) {
	if _, err := s.orders.Get(orderID); err != nil {
		return nil, err
	}
	return s.events.GetByOrder(orderID), nil
}

// ListOrders returns a paginated list of orders for an account with
// optional status filtering.
func (s *OrderService) ListOrders(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	if !s.accounts.Exists(accountID) {
		return nil, 0, domain.ErrAccountNotFound
	}

	if status != nil && !ValidOrderStatuses[*status] {
		return nil, 0, &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: pending, partially_filled, filled, cancelled, rejected", *status),
		}
	}

	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	orders, total := s.orders.ListByAccount(accountID, status, page, limit)
	return orders, total, nil
}
