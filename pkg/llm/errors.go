package llm

import "errors"

// Failure taxonomy for provider calls. Backends wrap these with %w so callers
// can branch on errors.Is without knowing which backend is active.
var (
	// ErrUnavailable indicates the backend could not be reached or refused
	// the request (connection failure, auth failure, server error).
	ErrUnavailable = errors.New("provider unavailable")

	// ErrTimeout indicates the call exceeded its deadline.
	ErrTimeout = errors.New("provider timeout")

	// ErrRateLimited indicates the backend throttled the request.
	ErrRateLimited = errors.New("provider rate limited")
)

// Retryable returns true for errors that are worth retrying: rate limits and
// timeouts. Unavailability is treated as terminal since immediate retries
// against a dead or misconfigured backend only add latency.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}
