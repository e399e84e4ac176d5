package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	AccountID string   `json:"account_id"`
	Symbol    string   `json:"symbol"`
	Type      string   `json:"type"`
	Side      string   `json:"side"`
	Quantity  int64    `json:"quantity"`
	Price     *float64 `json:"price"`
}

// orderResponse is the JSON shape of an order in responses.
type orderResponse struct {
	OrderID           string         `json:"order_id"`
	AccountID         string         `json:"account_id"`
	Symbol            string         `json:"symbol"`
	Type              string         `json:"type"`
	Side              string         `json:"side"`
	Price             *string        `json:"price"` // null for market orders
	Quantity          int64          `json:"quantity"`
	FilledQuantity    int64          `json:"filled_quantity"`
	RemainingQuantity int64          `json:"remaining_quantity"`
	Status            string         `json:"status"`
	CreatedAt         string         `json:"created_at"`
	FilledAt          *string        `json:"filled_at"`
	CancelledAt       *string        `json:"cancelled_at"`
	Fills             []fillResponse `json:"fills,omitempty"`
}

type fillResponse struct {
	FillID     string `json:"fill_id"`
	OrderID    string `json:"order_id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Fees       string `json:"fees"`
	ExecutedAt string `json:"executed_at"`
}

func toOrderResponse(o *domain.Order, fills []domain.Fill) orderResponse {
	resp := orderResponse{
		OrderID:           o.OrderID,
		AccountID:         o.AccountID,
		Symbol:            o.Symbol,
		Type:              string(o.Type),
		Side:              string(o.Side),
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.RemainingQuantity,
		Status:            string(o.Status),
		CreatedAt:         formatTime(o.CreatedAt),
		FilledAt:          formatTimePtr(o.FilledAt),
		CancelledAt:       formatTimePtr(o.CancelledAt),
	}
	if o.Type == domain.OrderTypeLimit {
		p := o.Price.String()
		resp.Price = &p
	}
	for _, f := range fills {
		resp.Fills = append(resp.Fills, toFillResponse(f))
	}
	return resp
}

func toFillResponse(f domain.Fill) fillResponse {
	return fillResponse{
		FillID:     f.FillID,
		OrderID:    f.OrderID,
		Symbol:     f.Symbol,
		Side:       string(f.Side),
		Quantity:   f.Quantity,
		Price:      f.Price.String(),
		Fees:       f.Fees.String(),
		ExecutedAt: formatTime(f.ExecutedAt),
	}
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Type:      domain.OrderType(req.Type),
		Side:      domain.OrderSide(req.Side),
		Quantity:  req.Quantity,
		Price:     req.Price,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	// Risk rejections come back as persisted rejected orders, not errors.
	status := http.StatusCreated
	if order.Status == domain.OrderStatusRejected {
		status = http.StatusUnprocessableEntity
	}

	// Re-read to include any immediate fills.
	fresh, fills, getErr := h.orderSvc.GetOrder(order.OrderID)
	if getErr != nil {
		fresh = order
	}
	WriteJSON(w, status, toOrderResponse(fresh, fills))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, fills, err := h.orderSvc.GetOrder(orderID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toOrderResponse(order, fills))
}

// cancelOrderResponse is the JSON response for DELETE /orders/{order_id}.
type cancelOrderResponse struct {
	Success        bool          `json:"success"`
	PreviousStatus string        `json:"previous_status"`
	Order          orderResponse `json:"order"`
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	result, err := h.orderSvc.CancelOrder(orderID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cancelOrderResponse{
		Success:        true,
		PreviousStatus: string(result.PreviousStatus),
		Order:          toOrderResponse(result.Order, nil),
	})
}

// eventResponse is the JSON shape of an audit event.
type eventResponse struct {
	EventID   string         `json:"event_id"`
	OrderID   string         `json:"order_id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt string         `json:"created_at"`
}

// GetOrderEvents handles GET /orders/{order_id}/events.
func (h *OrderHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	events, err := h.orderSvc.GetOrderEvents(orderID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			EventID:   e.EventID,
			OrderID:   e.OrderID,
			Type:      string(e.Type),
			Payload:   e.Payload,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}
