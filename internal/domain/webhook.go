package domain

import "time"

// Webhook represents a trader's subscription to an outbound HTTP
// notification for one event kind on one pair. The engine itself never
// does the HTTP delivery — see internal/engine.Emitter and
// internal/service's WebhookService, the Emitter listener that delivers it.
type Webhook struct {
	WebhookID string
	Account   Account
	Pair      string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
