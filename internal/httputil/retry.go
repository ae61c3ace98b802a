// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"time"
)

// RetryBaseDelay is the first backoff delay. Tests override it to avoid
// real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// maxRetryDelay caps the exponential backoff.
const maxRetryDelay = 10 * time.Second

// Backoff returns the delay before retry attempt n (0-based): the base
// delay doubling each attempt, capped at maxRetryDelay.
func Backoff(n int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < n && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// Retry calls fn until it returns nil or ctx ends, sleeping with Backoff
// between attempts. On cancellation it returns the last error from fn, or
// ctx.Err() when fn never ran. Conversions are never retried; this serves
// readiness polling only.
func Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}
		if last = fn(ctx); last == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return last
		case <-time.After(Backoff(attempt)):
		}
	}
}
