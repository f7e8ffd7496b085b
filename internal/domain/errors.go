package domain

import "errors"

// Sentinel errors for domain-level error handling. The handler layer
// maps these to HTTP status codes.
var (
	// Input validation.
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrBatchSizeTooLarge   = errors.New("batch_size_too_large")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrQuoteAmountTooSmall = errors.New("quote_amount_too_small")
	ErrBaseAmountTooSmall  = errors.New("base_amount_too_small")

	// Order lifecycle.
	ErrUnauthorized         = errors.New("unauthorized")
	ErrOrderInactive        = errors.New("order_inactive")
	ErrAmountLessThanFilled = errors.New("amount_less_than_filled")
	ErrOrderNotFound        = errors.New("order_not_found")

	// Market orders.
	ErrOrderExpired              = errors.New("order_expired")
	ErrNoPricesProvided          = errors.New("no_prices_provided")
	ErrInsufficientBaseReceived  = errors.New("insufficient_base_received")
	ErrInsufficientQuoteReceived = errors.New("insufficient_quote_received")

	// Registry.
	ErrIdenticalTokens              = errors.New("identical_tokens")
	ErrInvalidBaseToken             = errors.New("invalid_base_token")
	ErrInvalidQuoteToken            = errors.New("invalid_quote_token")
	ErrPairAlreadyExists            = errors.New("pair_already_exists")
	ErrQuoteTokenNotWhitelisted     = errors.New("quote_token_not_whitelisted")
	ErrQuoteTokenAlreadyWhitelisted = errors.New("quote_token_already_whitelisted")
	ErrPairNotFound                 = errors.New("pair_not_found")

	// Ledger propagation.
	ErrInsufficientBalance = errors.New("insufficient_balance")

	// Webhooks.
	ErrWebhookNotFound  = errors.New("webhook_not_found")
	ErrUnknownEventType = errors.New("unknown_event_type")
)

// LedgerError wraps an error returned by the Ledger, per the
// LedgerError(inner) error kind.
type LedgerError struct {
	Inner error
}

func (e *LedgerError) Error() string {
	return "ledger_error: " + e.Inner.Error()
}

func (e *LedgerError) Unwrap() error {
	return e.Inner
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
