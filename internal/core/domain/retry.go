package domain

import (
	"math"
	"time"
)

// backoffBase is the multiplier applied to the delay between attempts.
const backoffBase = 2

// maxDelayMilliseconds is the largest millisecond count that still fits in
// a time.Duration after conversion.
const maxDelayMilliseconds = int64(math.MaxInt64) / int64(time.Millisecond)

// RetryPolicy configures the bounded retry behavior of a load operation.
// It is created once per coordinator and reused across all loads issued
// through it.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero means exactly one attempt.
	MaxRetries int

	// InitialDelay is the delay before the first retry. Each subsequent
	// retry doubles it. Zero retries immediately.
	InitialDelay time.Duration
}

// Validate reports whether the policy fields are usable.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidRetryPolicy
	}
	if p.InitialDelay < 0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// Delay returns the backoff delay before the given retry, where attempt is
// 1-based: Delay(1) == InitialDelay, Delay(2) == 2*InitialDelay, and so on.
// The result is in whole milliseconds and is never negative: delays that
// would overflow saturate at the largest representable duration.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.InitialDelay <= 0 {
		return 0
	}

	base := p.InitialDelay.Milliseconds()
	if base == 0 {
		return 0
	}

	shift := attempt - 1
	if shift > 62 || base > maxDelayMilliseconds>>shift {
		return time.Duration(maxDelayMilliseconds) * time.Millisecond
	}
	return time.Duration(base<<shift) * time.Millisecond
}

// Attempts returns the total number of operation invocations the policy
// allows: one initial attempt plus MaxRetries.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}
