// Package retry implements a bounded exponential-backoff retry policy for
// individual storage calls. The policy is orthogonal to business logic: it
// takes one operation and a retryability predicate, and never spans a
// multi-step sequence, so an already-committed step is never re-run.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior for a single operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
	// Multiplier is the exponential growth factor between retries.
	Multiplier float64
	// Jitter adds randomness to each wait (0.0 to 1.0).
	Jitter float64

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the retry parameters used for storage calls unless
// overridden by configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// Do executes op, retrying while retryable(err) reports true, up to
// MaxAttempts total attempts. The wait between attempts grows exponentially
// up to MaxBackoff and honors context cancellation. The last error is
// returned once the budget is exhausted or a non-retryable error occurs.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.wait(ctx, p.backoff(attempt)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	backoff := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		backoff += backoff * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
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
