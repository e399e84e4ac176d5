package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/engine"
	"github.com/efreitasn/papervenue/internal/service"
)

// MarketHandler handles HTTP requests for market data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

type instrumentResponse struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	TickSize      string `json:"tick_size"`
	LotSize       int64  `json:"lot_size"`
	Price         string `json:"price"`
	PreviousClose string `json:"previous_close"`
	Volume        int64  `json:"volume"`
	UpdatedAt     string `json:"updated_at"`
}

// ListInstruments handles GET /instruments.
func (h *MarketHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments := h.marketSvc.ListInstruments()

	out := make([]instrumentResponse, 0, len(instruments))
	for _, in := range instruments {
		out = append(out, instrumentResponse{
			Symbol:        in.Symbol,
			Name:          in.Name,
			TickSize:      in.TickSize.String(),
			LotSize:       in.LotSize,
			Price:         in.Price.StringFixed(2),
			PreviousClose: in.PreviousClose.StringFixed(2),
			Volume:        in.Volume,
			UpdatedAt:     formatTime(in.UpdatedAt),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"instruments": out})
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Last   string `json:"last"`
	At     string `json:"at"`
}

// GetQuote handles GET /instruments/{symbol}/quote.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.marketSvc.GetQuote(symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol: quote.Symbol,
		Bid:    quote.Bid.StringFixed(4),
		Ask:    quote.Ask.StringFixed(4),
		Last:   quote.Last.StringFixed(4),
		At:     formatTime(quote.At),
	})
}

type bookEntryResponse struct {
	OrderID           string  `json:"order_id"`
	Type              string  `json:"type"`
	Price             *string `json:"price"` // null for market orders
	RemainingQuantity int64   `json:"remaining_quantity"`
	CreatedAt         string  `json:"created_at"`
}

type bookResponse struct {
	Symbol     string              `json:"symbol"`
	Buys       []bookEntryResponse `json:"buys"`
	Sells      []bookEntryResponse `json:"sells"`
	BestBid    *string             `json:"best_bid"`
	BestAsk    *string             `json:"best_ask"`
	SnapshotAt string              `json:"snapshot_at"`
}

// GetBook handles GET /instruments/{symbol}/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	view, err := h.marketSvc.GetBook(symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, bookResponse{
		Symbol:     view.Symbol,
		Buys:       toBookEntries(view.Buys),
		Sells:      toBookEntries(view.Sells),
		BestBid:    decimalPtrString(view.BestBid),
		BestAsk:    decimalPtrString(view.BestAsk),
		SnapshotAt: formatTime(view.SnapshotAt),
	})
}

// GetRecentFills handles GET /instruments/{symbol}/fills.
func (h *MarketHandler) GetRecentFills(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limit := queryInt(r, "limit", 50)

	fills, err := h.marketSvc.RecentFills(symbol, limit)
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

func toBookEntries(orders []engine.RestingOrder) []bookEntryResponse {
	out := make([]bookEntryResponse, 0, len(orders))
	for _, ro := range orders {
		entry := bookEntryResponse{
			OrderID:           ro.OrderID,
			Type:              string(ro.Type),
			RemainingQuantity: ro.RemainingQuantity,
			CreatedAt:         formatTime(ro.CreatedAt),
		}
		if ro.Type == domain.OrderTypeLimit {
			p := ro.Price.StringFixed(4)
			entry.Price = &p
		}
		out = append(out, entry)
	}
	return out
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(4)
	return &s
}
