// Package retry provides a small bounded-attempt policy with backoff.
package retry

import (
	"context"
	"time"
)

// Policy bounds how often an operation is retried and how long to wait
// between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Multiplier grows the backoff after each attempt; values below 1 mean
	// constant backoff.
	Multiplier float64
}

// Default is a conservative policy for flaky remote calls.
var Default = Policy{MaxAttempts: 3, Backoff: 500 * time.Millisecond, Multiplier: 2}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done. The
// last error is returned. A nil or exhausted policy still runs fn once.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			if p.Multiplier > 1 {
				backoff = time.Duration(float64(backoff) * p.Multiplier)
			}
		}
	}
	return err
}
