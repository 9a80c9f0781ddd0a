package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/slate/internal/providers"
)

// RetryPolicy bounds how often a failed provider call is repeated.
// Only retryable transport errors are repeated.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the delay after the given failed attempt (0-based).
	Backoff func(attempt int) time.Duration
	// OnRetry, if set, is called before each delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// ExponentialBackoff returns base × 2^attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(1<<attempt)
	}
}

// DefaultRetryPolicy makes three attempts with 1s and 2s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Second),
	}
}

// Do runs fn until it succeeds, returns a non-retryable error or the
// attempt budget is spent. The returned count is the number of calls made.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff(time.Second)
	}

	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			return fn(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			delay := backoff(attempts - 1)
			if p.OnRetry != nil {
				p.OnRetry(attempts, err, delay)
			}
			return delay
		}),
	)
	return attempts, err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	te, ok := providers.IsTransportError(err)
	return ok && te.Retryable()
}

// transportFailure wraps a provider error after the retry budget ends.
func transportFailure(attempts int, err error) error {
	if _, ok := providers.IsTransportError(err); ok {
		return fmt.Errorf("%w after %d attempts: %w", ErrTransport, attempts, err)
	}
	return err
}
