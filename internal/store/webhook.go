package store

import (
	"sync"

	"github.com/efreitasn/papervenue/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id -> webhook.
// Secondary index: account_id -> event -> webhook.
type WebhookStore struct {
	mu        sync.RWMutex
	webhooks  map[string]*domain.Webhook
	byAccount map[string]map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:  make(map[string]*domain.Webhook),
		byAccount: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by
// (account_id, event). If a subscription already exists for that pair,
// the URL and UpdatedAt are updated and the webhook_id remains stable.
// Returns true if a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byAccount[w.AccountID]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	s.webhooks[w.WebhookID] = w

	if s.byAccount[w.AccountID] == nil {
		s.byAccount[w.AccountID] = make(map[string]*domain.Webhook)
	}
	s.byAccount[w.AccountID][w.Event] = w

	return true
}

// GetByAccountEvent returns the webhook for (account_id, event), or nil.
func (s *WebhookStore) GetByAccountEvent(accountID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.byAccount[accountID]
	if !ok {
		return nil
	}
	return events[event]
}

// ListByEvent returns every account's subscription to the given event.
func (s *WebhookStore) ListByEvent(event string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Webhook, 0)
	for _, events := range s.byAccount {
		if w, ok := events[event]; ok {
			out = append(out, w)
		}
	}
	return out
}

// ListByAccount returns all webhook subscriptions for an account.
func (s *WebhookStore) ListByAccount(accountID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Webhook, 0)
	for _, w := range s.byAccount[accountID] {
		out = append(out, w)
	}
	return out
}

// Delete removes a webhook subscription by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(webhookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[webhookID]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, webhookID)
	if events, ok := s.byAccount[w.AccountID]; ok {
		delete(events, w.Event)
	}
	return nil
}
