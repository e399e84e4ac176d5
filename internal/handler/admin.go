package handler

import (
	"net/http"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/service"
)

// AdminHandler handles HTTP requests for the operator endpoints.
type AdminHandler struct {
	adminSvc *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc *service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// simConfigResponse is the JSON shape of the simulator configuration.
type simConfigResponse struct {
	BidAskSpreadBps   int64   `json:"bid_ask_spread_bps"`
	FeePerShare       string  `json:"fee_per_share"`
	SlippageBps       int64   `json:"slippage_bps"`
	TickIntervalMs    int64   `json:"tick_interval_ms"`
	MaxPartialFillPct float64 `json:"max_partial_fill_pct"`
	FeedRunning       bool    `json:"feed_running"`
}

func toSimConfigResponse(cfg domain.SimConfig, running bool) simConfigResponse {
	return simConfigResponse{
		BidAskSpreadBps:   cfg.BidAskSpreadBps,
		FeePerShare:       cfg.FeePerShare.String(),
		SlippageBps:       cfg.SlippageBps,
		TickIntervalMs:    cfg.TickInterval.Milliseconds(),
		MaxPartialFillPct: cfg.MaxPartialFillPct,
		FeedRunning:       running,
	}
}

// GetSimConfig handles GET /admin/simulator.
func (h *AdminHandler) GetSimConfig(w http.ResponseWriter, r *http.Request) {
	cfg, running := h.adminSvc.GetSimConfig()
	WriteJSON(w, http.StatusOK, toSimConfigResponse(cfg, running))
}

// updateSimConfigRequest is the JSON request body for PUT /admin/simulator.
type updateSimConfigRequest struct {
	BidAskSpreadBps   int64   `json:"bid_ask_spread_bps"`
	FeePerShare       float64 `json:"fee_per_share"`
	SlippageBps       int64   `json:"slippage_bps"`
	TickIntervalMs    int64   `json:"tick_interval_ms"`
	MaxPartialFillPct float64 `json:"max_partial_fill_pct"`
}

// UpdateSimConfig handles PUT /admin/simulator.
func (h *AdminHandler) UpdateSimConfig(w http.ResponseWriter, r *http.Request) {
	var req updateSimConfigRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg, err := h.adminSvc.UpdateSimConfig(service.UpdateSimConfigRequest{
		BidAskSpreadBps:   req.BidAskSpreadBps,
		FeePerShare:       req.FeePerShare,
		SlippageBps:       req.SlippageBps,
		TickIntervalMs:    req.TickIntervalMs,
		MaxPartialFillPct: req.MaxPartialFillPct,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	_, running := h.adminSvc.GetSimConfig()
	WriteJSON(w, http.StatusOK, toSimConfigResponse(cfg, running))
}

// riskConfigResponse is the JSON shape of the risk configuration.
type riskConfigResponse struct {
	MaxQuantityPerSymbol int64  `json:"max_quantity_per_symbol"`
	MaxNotionalValue     string `json:"max_notional_value"`
	MaxDailyOrders       int    `json:"max_daily_orders"`
	KillSwitch           bool   `json:"kill_switch"`
}

func toRiskConfigResponse(cfg domain.RiskConfig) riskConfigResponse {
	return riskConfigResponse{
		MaxQuantityPerSymbol: cfg.MaxQuantityPerSymbol,
		MaxNotionalValue:     cfg.MaxNotionalValue.String(),
		MaxDailyOrders:       cfg.MaxDailyOrders,
		KillSwitch:           cfg.KillSwitch,
	}
}

// GetRiskConfig handles GET /admin/risk.
func (h *AdminHandler) GetRiskConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, toRiskConfigResponse(h.adminSvc.GetRiskConfig()))
}

// updateRiskConfigRequest is the JSON request body for PUT /admin/risk.
type updateRiskConfigRequest struct {
	MaxQuantityPerSymbol int64   `json:"max_quantity_per_symbol"`
	MaxNotionalValue     float64 `json:"max_notional_value"`
	MaxDailyOrders       int     `json:"max_daily_orders"`
	KillSwitch           bool    `json:"kill_switch"`
}

// UpdateRiskConfig handles PUT /admin/risk.
func (h *AdminHandler) UpdateRiskConfig(w http.ResponseWriter, r *http.Request) {
	var req updateRiskConfigRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cfg, err := h.adminSvc.UpdateRiskConfig(service.UpdateRiskConfigRequest{
		MaxQuantityPerSymbol: req.MaxQuantityPerSymbol,
		MaxNotionalValue:     req.MaxNotionalValue,
		MaxDailyOrders:       req.MaxDailyOrders,
		KillSwitch:           req.KillSwitch,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toRiskConfigResponse(cfg))
}

// StartFeed handles POST /admin/simulator/start.
func (h *AdminHandler) StartFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.adminSvc.StartFeed(); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"running": true})
}

// StopFeed handles POST /admin/simulator/stop.
func (h *AdminHandler) StopFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.adminSvc.StopFeed(); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"running": false})
}

// resetRequest is the JSON request body for POST /admin/reset. An empty
// account_id resets every account.
type resetRequest struct {
	AccountID string `json:"account_id"`
}

type resetResultResponse struct {
	AccountID string `json:"account_id"`
	Events    int    `json:"events"`
	Fills     int    `json:"fills"`
	Orders    int    `json:"orders"`
	Positions int    `json:"positions"`
}

// Reset handles POST /admin/reset.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var results []*service.ResetResult
	if req.AccountID == "" {
		all, err := h.adminSvc.ResetAll()
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		results = all
	} else {
		result, err := h.adminSvc.ResetAccount(req.AccountID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		results = []*service.ResetResult{result}
	}

	out := make([]resetResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, resetResultResponse{
			AccountID: res.AccountID,
			Events:    res.Events,
			Fills:     res.Fills,
			Orders:    res.Orders,
			Positions: res.Positions,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reset": out})
}
