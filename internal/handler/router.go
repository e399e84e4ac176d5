package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/papervenue/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	accountSvc *service.AccountService,
	orderSvc *service.OrderService,
	marketSvc *service.MarketService,
	adminSvc *service.AdminService,
	webhookSvc *service.WebhookService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	accountH := NewAccountHandler(accountSvc, orderSvc)
	orderH := NewOrderHandler(orderSvc)
	marketH := NewMarketHandler(marketSvc)
	adminH := NewAdminHandler(adminSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Account routes.
	r.Post("/accounts", accountH.CreateAccount)
	r.Get("/accounts/{account_id}", accountH.GetAccount)
	r.Get("/accounts/{account_id}/orders", accountH.ListOrders)
	r.Get("/accounts/{account_id}/fills", accountH.ListFills)
	r.Get("/accounts/{account_id}/webhooks", webhookH.List)

	// Order routes.
	r.Post("/orders", orderH.SubmitOrder)
	r.Get("/orders/{order_id}", orderH.GetOrder)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)
	r.Get("/orders/{order_id}/events", orderH.GetOrderEvents)

	// Market data routes.
	r.Get("/instruments", marketH.ListInstruments)
	r.Get("/instruments/{symbol}/quote", marketH.GetQuote)
	r.Get("/instruments/{symbol}/book", marketH.GetBook)
	r.Get("/instruments/{symbol}/fills", marketH.GetRecentFills)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	// Admin routes.
	r.Get("/admin/simulator", adminH.GetSimConfig)
	r.Put("/admin/simulator", adminH.UpdateSimConfig)
	r.Post("/admin/simulator/start", adminH.StartFeed)
	r.Post("/admin/simulator/stop", adminH.StopFeed)
	r.Get("/admin/risk", adminH.GetRiskConfig)
	r.Put("/admin/risk", adminH.UpdateRiskConfig)
	r.Post("/admin/reset", adminH.Reset)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
