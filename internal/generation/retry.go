package generation

import (
	"context"
	"time"

	"assetgen/internal/providers"
)

const defaultMaxRetries = 3

// backoffDelay computes the exponential retry delay for an attempt:
// min(base * 2^attempt, ceiling).
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}

// sleepFunc waits for the given duration or until the context is done.
// Injected into adapters so tests run without real delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
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

// withRetry runs fn, retrying only rate-limited failures up to maxRetries
// additional attempts with exponential backoff. Non-retryable failures
// propagate immediately without consuming a retry.
func withRetry(ctx context.Context, maxRetries int, base, ceiling time.Duration, sleep sleepFunc, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoffDelay(attempt-1, base, ceiling)); err != nil {
				return err
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !providers.IsRateLimited(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
