package llm

import (
	"context"
	"time"
)

// backoffCap bounds the exponential backoff at 8x the base delay.
const backoffCap = 8

// Retry runs fn up to attempts times with capped exponential backoff between
// attempts (base, 2*base, 4*base, ... capped at 8*base). Only retryable
// errors (ErrRateLimited, ErrTimeout) trigger another attempt; any other
// error is returned immediately. Returns the last error once attempts are
// exhausted, or ctx.Err() if the context is cancelled while waiting.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := range attempts {
		err = fn()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		delay := base << i
		if limit := base * backoffCap; delay > limit {
			delay = limit
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}
