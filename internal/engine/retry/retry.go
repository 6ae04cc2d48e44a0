// Package retry provides a bounded retry executor with exponential backoff.
//
// The executor makes one initial attempt plus up to MaxRetries retries,
// doubling the delay before each retry. There is no jitter: retry timing is
// part of the engine's observable contract and is covered by tests.
package retry

import (
	"context"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
	"go.trai.ch/zerr"
)

// Config configures one executor. It is cheap to copy and reusable across
// operations.
type Config struct {
	Policy domain.RetryPolicy

	// OnRetry is invoked before each retry with the 1-based retry number
	// and the error that triggered it.
	OnRetry func(attempt int, err error)

	// OnExhausted is invoked exactly once when the final allowed attempt
	// fails. It is not invoked when the context is cancelled mid-backoff.
	OnExhausted func(err error)
}

// Do runs op until it succeeds or the policy is exhausted, and returns the
// last error in the failure case. A context cancellation during a backoff
// sleep aborts the sequence and returns the context error.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= cfg.Policy.MaxRetries {
			break
		}

		// retries are 1-based in hooks and in the delay schedule
		next := attempt + 1
		if cfg.OnRetry != nil {
			cfg.OnRetry(next, err)
		}
		if err := sleep(ctx, cfg.Policy.Delay(next)); err != nil {
			return zero, zerr.Wrap(err, "retry aborted during backoff")
		}
	}

	if cfg.OnExhausted != nil {
		cfg.OnExhausted(lastErr)
	}
	return zero, lastErr
}

// sleep waits for d or until the context is cancelled. A non-positive d
// returns immediately, which keeps zero-delay policies usable in tests.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
