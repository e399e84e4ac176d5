package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/notify"
	"github.com/efreitasn/papervenue/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[string]bool{
	"order.updated":    true,
	"fill.executed":    true,
	"position.changed": true,
	"account.changed":  true,
	"price.tick":       true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	AccountID string
	URL       string
	Events    []string
}

// WebhookService handles webhook CRUD and implements notify.Notifier by
// fanning settlement and price events out over HTTP. Delivery is
// at-most-once and fire-and-forget: a failed POST is dropped, never
// retried, and never affects the state change that produced it.
type WebhookService struct {
	store    *store.WebhookStore
	accounts *store.AccountStore
	client   *http.Client
}

var _ notify.Notifier = (*WebhookService)(nil)

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	accounts *store.AccountStore,
	webhookTimeout time.Duration,
) *WebhookService {
	return &WebhookService{
		store:    webhookStore,
		accounts: accounts,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

// Upsert validates the request and creates or updates webhook
// subscriptions, one per (account, event) pair. Returns the resulting
// webhooks and whether any new subscriptions were created.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if !s.accounts.Exists(req.AccountID) {
		return nil, false, domain.ErrAccountNotFound
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	dedupedEvents := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: order.updated, fill.executed, position.changed, account.changed, price.tick",
			}
		}
		if !seen[event] {
			seen[event] = true
			dedupedEvents = append(dedupedEvents, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(dedupedEvents))

	for _, event := range dedupedEvents {
		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			AccountID: req.AccountID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if s.store.Upsert(w) {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else if existing := s.store.GetByAccountEvent(req.AccountID, event); existing != nil {
			webhooks = append(webhooks, existing)
		}
	}

	return webhooks, anyCreated, nil
}

// List validates the account exists and returns all subscriptions.
func (s *WebhookService) List(accountID string) ([]*domain.Webhook, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.store.ListByAccount(accountID), nil
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// orderPayload is the JSON payload for order.updated webhooks.
type orderPayload struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      orderData `json:"data"`
}

type orderData struct {
	OrderID           string  `json:"order_id"`
	AccountID         string  `json:"account_id"`
	Symbol            string  `json:"symbol"`
	Type              string  `json:"type"`
	Side              string  `json:"side"`
	Price             string  `json:"price"`
	Quantity          int64   `json:"quantity"`
	FilledQuantity    int64   `json:"filled_quantity"`
	RemainingQuantity int64   `json:"remaining_quantity"`
	Status            string  `json:"status"`
}

// OrderUpdated dispatches an order.updated webhook to the order's account.
func (s *WebhookService) OrderUpdated(order domain.Order) {
	wh := s.store.GetByAccountEvent(order.AccountID, "order.updated")
	if wh == nil {
		return
	}

	payload := orderPayload{
		Event:     "order.updated",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: orderData{
			OrderID:           order.OrderID,
			AccountID:         order.AccountID,
			Symbol:            order.Symbol,
			Type:              string(order.Type),
			Side:              string(order.Side),
			Price:             order.Price.String(),
			Quantity:          order.Quantity,
			FilledQuantity:    order.FilledQuantity,
			RemainingQuantity: order.RemainingQuantity,
			Status:            string(order.Status),
		},
	}
	go s.deliver(wh, "order.updated", payload)
}

type fillPayload struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	Data      fillData `json:"data"`
}

type fillData struct {
	FillID     string `json:"fill_id"`
	OrderID    string `json:"order_id"`
	AccountID  string `json:"account_id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Fees       string `json:"fees"`
	ExecutedAt string `json:"executed_at"`
}

// FillExecuted dispatches a fill.executed webhook to the fill's account.
func (s *WebhookService) FillExecuted(fill domain.Fill) {
	wh := s.store.GetByAccountEvent(fill.AccountID, "fill.executed")
	if wh == nil {
		return
	}

	payload := fillPayload{
		Event:     "fill.executed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: fillData{
			FillID:     fill.FillID,
			OrderID:    fill.OrderID,
			AccountID:  fill.AccountID,
			Symbol:     fill.Symbol,
			Side:       string(fill.Side),
			Quantity:   fill.Quantity,
			Price:      fill.Price.String(),
			Fees:       fill.Fees.String(),
			ExecutedAt: fill.ExecutedAt.UTC().Format(time.RFC3339),
		},
	}
	go s.deliver(wh, "fill.executed", payload)
}

type positionPayload struct {
	Event     string       `json:"event"`
	Timestamp string       `json:"timestamp"`
	Data      positionData `json:"data"`
}

type positionData struct {
	AccountID    string  `json:"account_id"`
	Symbol       string  `json:"symbol"`
	Deleted      bool    `json:"deleted"`
	Quantity     int64   `json:"quantity"`
	AvgPrice     string  `json:"avg_price"`
	MarketValue  string  `json:"market_value"`
	UnrealizedPL string  `json:"unrealized_pl"`
}

// PositionChanged dispatches a position.changed webhook. A nil position
// means the row was deleted (sold down to zero).
func (s *WebhookService) PositionChanged(accountID, symbol string, position *domain.Position) {
	wh := s.store.GetByAccountEvent(accountID, "position.changed")
	if wh == nil {
		return
	}

	data := positionData{AccountID: accountID, Symbol: symbol, Deleted: position == nil}
	if position != nil {
		data.Quantity = position.Quantity
		data.AvgPrice = position.AvgPrice.String()
		data.MarketValue = position.MarketValue.String()
		data.UnrealizedPL = position.UnrealizedPL.String()
	}

	payload := positionPayload{
		Event:     "position.changed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	go s.deliver(wh, "position.changed", payload)
}

type accountPayload struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	Data      accountData `json:"data"`
}

type accountData struct {
	AccountID   string `json:"account_id"`
	Balance     string `json:"balance"`
	BuyingPower string `json:"buying_power"`
}

// AccountChanged dispatches an account.changed webhook.
func (s *WebhookService) AccountChanged(account domain.AccountSnapshot) {
	wh := s.store.GetByAccountEvent(account.AccountID, "account.changed")
	if wh == nil {
		return
	}

	payload := accountPayload{
		Event:     "account.changed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: accountData{
			AccountID:   account.AccountID,
			Balance:     account.Balance.String(),
			BuyingPower: account.BuyingPower.String(),
		},
	}
	go s.deliver(wh, "account.changed", payload)
}

type pricePayload struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      priceData `json:"data"`
}

type priceData struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Bid           string `json:"bid"`
	Ask           string `json:"ask"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	Volume        int64  `json:"volume"`
}

// PriceTicked dispatches a price.tick webhook to every subscriber.
func (s *WebhookService) PriceTicked(update notify.PriceUpdate) {
	subs := s.store.ListByEvent("price.tick")
	if len(subs) == 0 {
		return
	}

	payload := pricePayload{
		Event:     "price.tick",
		Timestamp: update.Timestamp.UTC().Format(time.RFC3339),
		Data: priceData{
			Symbol:        update.Symbol,
			Price:         update.Price.String(),
			Bid:           update.Bid.String(),
			Ask:           update.Ask.String(),
			Change:        update.Change.String(),
			ChangePercent: update.ChangePercent.StringFixed(4),
			Volume:        update.Volume,
		},
	}
	for _, wh := range subs {
		go s.deliver(wh, "price.tick", payload)
	}
}

// deliver sends the webhook payload via HTTP POST with the delivery
// headers. Errors are silently ignored (fire-and-forget).
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
