package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"clobengine/internal/domain"
	"clobengine/internal/engine"
)

// validWebhookEvents are the engine event types a trader may subscribe
// to: trade.executed, order.cancelled and order.filled. order.created
// and order.amended are not offered as webhook events.
var validWebhookEvents = map[string]bool{
	string(engine.EventTradeExecuted):  true,
	string(engine.EventOrderCancelled): true,
	string(engine.EventOrderFilled):    true,
}

// UpsertWebhookRequest is the input for WebhookService.Upsert.
type UpsertWebhookRequest struct {
	Account domain.Account
	Pair    string
	URL     string
	Events  []string
}

// WebhookService owns webhook subscriptions and delivers them by
// listening on the registry's shared Emitter — collapsed from the
// teacher's broker-scoped WebhookService (one subscription per
// (broker_id, event)) into one per (account, pair, event), dispatched
// over whatever pair the incoming Event names.
type WebhookService struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook            // webhook_id -> webhook
	byKey    map[string]map[string]*domain.Webhook // "pair\x00event" -> account -> webhook

	client *http.Client
}

// NewWebhookService creates a WebhookService and subscribes its delivery
// loop to events. timeout bounds each outbound HTTP POST.
func NewWebhookService(events *engine.Emitter, timeout time.Duration) *WebhookService {
	s := &WebhookService{
		webhooks: make(map[string]*domain.Webhook),
		byKey:    make(map[string]map[string]*domain.Webhook),
		client:   &http.Client{Timeout: timeout},
	}
	events.Subscribe(s.dispatch)
	return s
}

func subKey(pair, event string) string {
	return pair + "\x00" + event
}

// Upsert validates the request and creates or updates the caller's
// subscriptions for pair. Returns the resulting webhooks, whether any
// new subscription was created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
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

	seen := make(map[string]bool, len(req.Events))
	deduped := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{Message: "unknown event type: " + event}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range deduped {
		key := subKey(req.Pair, event)
		if s.byKey[key] == nil {
			s.byKey[key] = make(map[string]*domain.Webhook)
		}
		if existing, ok := s.byKey[key][string(req.Account)]; ok {
			if existing.URL != req.URL {
				existing.URL = req.URL
				existing.UpdatedAt = now
			}
			webhooks = append(webhooks, existing)
			continue
		}

		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			Account:   req.Account,
			Pair:      req.Pair,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.webhooks[w.WebhookID] = w
		s.byKey[key][string(req.Account)] = w
		webhooks = append(webhooks, w)
		anyCreated = true
	}

	return webhooks, anyCreated, nil
}

// List returns every subscription belonging to account.
func (s *WebhookService) List(account domain.Account) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Webhook
	for _, w := range s.webhooks {
		if w.Account == account {
			out = append(out, w)
		}
	}
	return out
}

// Delete removes a subscription by id.
func (s *WebhookService) Delete(webhookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.webhooks[webhookID]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, webhookID)
	key := subKey(w.Pair, w.Event)
	if accts, ok := s.byKey[key]; ok {
		delete(accts, string(w.Account))
		if len(accts) == 0 {
			delete(s.byKey, key)
		}
	}
	return nil
}

// tradeExecutedPayload and orderEventPayload mirror the teacher's
// webhook bodies, translated from dollars/quantity to asset-agnostic
// smallest units.
type tradeExecutedPayload struct {
	Event     string            `json:"event"`
	Timestamp string            `json:"timestamp"`
	Data      tradeExecutedData `json:"data"`
}

type tradeExecutedData struct {
	Pair       string `json:"pair"`
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	Price      uint64 `json:"price"`
	BaseAmount uint64 `json:"base_amount"`
}

type orderEventPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      orderEventData `json:"data"`
}

type orderEventData struct {
	Pair      string `json:"pair"`
	OrderID   uint64 `json:"order_id"`
	Trader    string `json:"trader"`
	Side      string `json:"side"`
	Amount    uint64 `json:"amount"`
	Filled    uint64 `json:"filled"`
	Remaining uint64 `json:"remaining"`
}

// dispatch is the Emitter listener: for each event type a subscription
// exists for, build the payload and deliver it fire-and-forget. Runs
// inline in the engine's critical section up to the point of spawning
// the delivery goroutine — matching the teacher's WebhookService.deliver,
// which never blocked the caller on the HTTP round trip either.
func (s *WebhookService) dispatch(evt engine.Event) {
	switch evt.Type {
	case engine.EventTradeExecuted:
		s.dispatchTo(evt.Pair, string(engine.EventTradeExecuted), string(evt.Buyer), tradeExecutedPayload{
			Event:     string(engine.EventTradeExecuted),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data: tradeExecutedData{
				Pair: evt.Pair, Buyer: string(evt.Buyer), Seller: string(evt.Seller),
				Price: evt.Price, BaseAmount: evt.BaseAmount,
			},
		})
		s.dispatchTo(evt.Pair, string(engine.EventTradeExecuted), string(evt.Seller), tradeExecutedPayload{
			Event:     string(engine.EventTradeExecuted),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data: tradeExecutedData{
				Pair: evt.Pair, Buyer: string(evt.Buyer), Seller: string(evt.Seller),
				Price: evt.Price, BaseAmount: evt.BaseAmount,
			},
		})
	case engine.EventOrderCancelled, engine.EventOrderFilled:
		s.dispatchTo(evt.Pair, string(evt.Type), string(evt.Trader), orderEventPayload{
			Event:     string(evt.Type),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Data: orderEventData{
				Pair: evt.Pair, OrderID: evt.OrderID, Trader: string(evt.Trader),
				Side: string(evt.Side), Amount: evt.Amount, Filled: evt.Filled, Remaining: evt.Remaining,
			},
		})
	}
}

func (s *WebhookService) dispatchTo(pair, event, account string, payload interface{}) {
	s.mu.RLock()
	w, ok := s.byKey[subKey(pair, event)][account]
	s.mu.RUnlock()
	if !ok {
		return
	}
	go s.deliver(w, event, payload)
}

// deliver sends the webhook payload via HTTP POST. Errors are silently
// ignored — fire-and-forget, as in the teacher.
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload interface{}) {
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
