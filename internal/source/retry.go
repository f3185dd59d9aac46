package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMaxAttemptsExceeded is returned when every attempt failed
var ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

// RetryPolicy decides whether and when a failed attempt is retried.
// attempt starts at 1.
type RetryPolicy interface {
	Backoff(attempt int, err error) (time.Duration, bool)
}

// ExponentialBackoff retries up to MaxAttempts times, doubling the delay
type ExponentialBackoff struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// IsRetryable filters errors, nil retries everything
	IsRetryable func(error) bool
}

// DefaultRetryPolicy returns a three attempt policy starting at 500ms
func DefaultRetryPolicy(maxAttempts int) ExponentialBackoff {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return ExponentialBackoff{
		MaxAttempts:  maxAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Backoff implements RetryPolicy
func (p ExponentialBackoff) Backoff(attempt int, err error) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	if p.IsRetryable != nil && !p.IsRetryable(err) {
		return 0, false
	}

	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}

// retry runs fn until it succeeds, the policy gives up or ctx is done
func retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		delay, ok := policy.Backoff(attempt, err)
		if !ok {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
