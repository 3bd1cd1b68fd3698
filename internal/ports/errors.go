package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels so the
// fetcher can decide between retrying a window and failing the pair without
// inspecting provider-specific error types.
var (
	// General errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Exchange errors — transient: a later retry of the same window may succeed.
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")

	// Exchange errors — fatal: retrying the same request cannot succeed
	// without a symbol or credential fix.
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidSymbol        = errors.New("unknown or unsupported trading symbol")

	// Archive errors
	ErrWriteFailed = errors.New("archive write failed")
)

// IsTransient reports whether err should be retried with backoff. Anything
// not explicitly classified as transient is treated as fatal so that
// misconfigured symbols or revoked credentials cannot hang the run in an
// unbounded retry loop.
func IsTransient(err error) bool {
	return errors.Is(err, ErrExchangeUnavailable) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout)
}
