package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountAlreadyExists = errors.New("account_already_exists")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrInstrumentNotFound   = errors.New("instrument_not_found")
	ErrOrderNotFound        = errors.New("order_not_found")
	ErrOrderNotCancellable  = errors.New("order_not_cancellable")
	ErrNoQuote              = errors.New("no_quote")
	ErrWebhookNotFound      = errors.New("webhook_not_found")
	ErrFeedAlreadyRunning   = errors.New("feed_already_running")
	ErrFeedNotRunning       = errors.New("feed_not_running")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
