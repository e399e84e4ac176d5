package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
	orderSvc   *service.OrderService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService, orderSvc *service.OrderService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, orderSvc: orderSvc}
}

// createAccountRequest is the JSON request body for POST /accounts.
type createAccountRequest struct {
	AccountID      string  `json:"account_id"`
	OpeningBalance float64 `json:"opening_balance"`
}

type accountResponse struct {
	AccountID   string `json:"account_id"`
	Balance     string `json:"balance"`
	BuyingPower string `json:"buying_power"`
	CreatedAt   string `json:"created_at"`
}

type positionResponse struct {
	Symbol       string `json:"symbol"`
	Quantity     int64  `json:"quantity"`
	AvgPrice     string `json:"avg_price"`
	MarketValue  string `json:"market_value"`
	UnrealizedPL string `json:"unrealized_pl"`
	UpdatedAt    string `json:"updated_at"`
}

// accountViewResponse is the JSON response for GET /accounts/{account_id}.
type accountViewResponse struct {
	AccountID   string             `json:"account_id"`
	Balance     string             `json:"balance"`
	BuyingPower string             `json:"buying_power"`
	Equity      string             `json:"equity"`
	Positions   []positionResponse `json:"positions"`
	CreatedAt   string             `json:"created_at"`
}

// CreateAccount handles POST /accounts.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.accountSvc.Create(service.CreateAccountRequest{
		AccountID:      req.AccountID,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, accountResponse{
		AccountID:   account.AccountID,
		Balance:     account.Balance.StringFixed(2),
		BuyingPower: account.BuyingPower.StringFixed(2),
		CreatedAt:   formatTime(account.CreatedAt),
	})
}

// GetAccount handles GET /accounts/{account_id}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	view, err := h.accountSvc.Get(accountID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	positions := make([]positionResponse, 0, len(view.Positions))
	for _, p := range view.Positions {
		positions = append(positions, positionResponse{
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			AvgPrice:     p.AvgPrice.StringFixed(4),
			MarketValue:  p.MarketValue.StringFixed(2),
			UnrealizedPL: p.UnrealizedPL.StringFixed(2),
			UpdatedAt:    formatTime(p.UpdatedAt),
		})
	}
	WriteJSON(w, http.StatusOK, accountViewResponse{
		AccountID:   view.Account.AccountID,
		Balance:     view.Account.Balance.StringFixed(2),
		BuyingPower: view.Account.BuyingPower.StringFixed(2),
		Equity:      view.Equity.StringFixed(2),
		Positions:   positions,
		CreatedAt:   formatTime(view.Account.CreatedAt),
	})
}

// ListOrders handles GET /accounts/{account_id}/orders.
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		status = &s
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)

	orders, total, err := h.orderSvc.ListOrders(accountID, status, page, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, nil))
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"orders": out,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// ListFills handles GET /accounts/{account_id}/fills.
func (h *AccountHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	fills, err := h.accountSvc.ListFills(accountID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]fillResponse, 0, len(fills))
	for _, f := range fills {
		out = append(out, toFillResponse(f))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"fills": out})
}

// queryInt parses an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
