// Package retry wraps read-only connectivity checks (database ping, broker
// dial) in exponential backoff.  Write paths are never retried.
package retry

import (
	"context"
	"time"
)

// Backoff describes the retry schedule.  The delay starts at Initial and
// doubles after every failure up to Max.  Attempts <= 0 means one attempt.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// Default is used for startup pings.
var Default = Backoff{Attempts: 5, Initial: 500 * time.Millisecond, Max: 8 * time.Second}

// Delay returns the wait before attempt n (0-based) is retried.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	for i := 0; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx ends.
// It returns the last error from fn, or ctx.Err() when the context ended
// while waiting.
func Do(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(b.Delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
