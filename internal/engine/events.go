package engine

import "clobengine/internal/domain"

// EventType names one of the engine's observable state transitions.
type EventType string

const (
	EventOrderCreated    EventType = "order.created"
	EventOrderCancelled  EventType = "order.cancelled"
	EventOrderAmended    EventType = "order.amended"
	EventOrderFilled     EventType = "order.filled"
	EventTradeExecuted   EventType = "trade.executed"
	EventPairCreated     EventType = "pair.created"
	EventQuoteTokenAdded EventType = "quote_token.added"
)

// Event is the payload delivered to every listener for a given
// transition. Only the fields relevant to Type are populated.
type Event struct {
	Type EventType

	// Pair identifies which MatchingEngine emitted the event — empty for
	// PairCreated/QuoteTokenAdded, which aren't scoped to one pair yet.
	Pair string

	// OrderCreated / OrderFilled
	OrderID   uint64
	Trader    domain.Account
	Price     uint64
	Amount    uint64
	Filled    uint64
	Remaining uint64
	Side      domain.Side

	// OrderAmended
	NewAmount uint64

	// TradeExecuted
	Buyer      domain.Account
	Seller     domain.Account
	BaseAmount uint64

	// PairCreated
	Base, Quote domain.Asset

	// QuoteTokenAdded
	Asset domain.Asset
}

// Emitter fans an Event out to every registered listener, synchronously
// and in registration order. Collapsed from the teacher's
// service/webhook.go — that dispatched each event as an HTTP POST to a
// subscriber URL on its own goroutine; this engine has no transport
// layer of its own (spec places transport out of scope), so a listener
// here is just a Go function, called inline as part of the same
// critical section that produced the event. The WebhookService in
// internal/service/webhook.go is the listener that still does an HTTP
// POST per matching subscription, one layer further out.
type Emitter struct {
	listeners []func(Event)
}

// NewEmitter creates an Emitter with no listeners.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers fn to be called for every future Emit. Not safe to
// call concurrently with Emit — callers subscribe during setup, before
// the engine starts handling operations.
func (e *Emitter) Subscribe(fn func(Event)) {
	e.listeners = append(e.listeners, fn)
}

// Emit calls every registered listener with evt, in registration order.
func (e *Emitter) Emit(evt Event) {
	for _, fn := range e.listeners {
		fn(evt)
	}
}
