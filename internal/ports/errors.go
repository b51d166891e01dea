package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Data Source Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrRetriesExhausted     = errors.New("data source retries exhausted")
	ErrPriceAnomaly         = errors.New("reference price outside anomaly threshold")

	// Signal Lifecycle Errors
	ErrProducerFailed = errors.New("signal producer failed")
	ErrRiskRejected   = errors.New("signal rejected by risk controller")
	ErrSignalExists   = errors.New("a non-terminal signal already exists for this key")
	ErrNoActiveSignal = errors.New("no active signal to operate on")

	// Persistence Errors
	ErrStoreReadFailed   = errors.New("failed to read durable signal record")
	ErrStoreWriteFailed  = errors.New("failed to write durable signal record")
	ErrStoreDeleteFailed = errors.New("failed to delete durable signal record")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
