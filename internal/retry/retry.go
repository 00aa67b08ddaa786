// Package retry runs an operation with exponential backoff and jitter.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config controls how often and how long Do waits between attempts.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// ShouldRetry reports whether err is transient. A nil func never retries.
	ShouldRetry func(error) bool
}

// DefaultConfig returns small delays suited to lock and optimistic-transaction conflicts.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   1 * time.Second,
	}
}

// Do calls op until it succeeds, returns a non-retryable error, the retries
// run out, or ctx is done.
func Do(ctx context.Context, cfg Config, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			delay += time.Duration(rand.Float64() * float64(delay) * 0.1)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if cfg.ShouldRetry != nil && cfg.ShouldRetry(err) {
			continue
		}
		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
