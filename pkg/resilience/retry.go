// Package resilience provides retry with backoff, a per-call timeout and a
// circuit breaker.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes Retry. Zero values take the defaults: 3 attempts,
// 100ms doubling up to 10s, 10% jitter, every error retryable.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// RetryIf reports whether err is worth another attempt.
	RetryIf func(err error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	if c.RetryIf == nil {
		c.RetryIf = func(error) bool { return true }
	}
	return c
}

// Retry calls fn until it succeeds, returns an error RetryIf rejects, the
// attempts run out, or ctx ends. The last error of fn stays in the chain.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Debug("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !cfg.RetryIf(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%s: retry aborted: %w (last error: %v)", name, ctx.Err(), err)
		}
		delay := backoff(attempt, cfg)
		logger.Warn("attempt failed",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"next_delay", delay,
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w (last error: %v)", name, ctx.Err(), err)
		}
	}
}

// backoff is InitialDelay*Multiplier^(attempt-1) with jitter, capped at
// MaxDelay.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	switch {
	case d > float64(cfg.MaxDelay):
		d = float64(cfg.MaxDelay)
	case d <= 0:
		d = float64(cfg.InitialDelay)
	}
	return time.Duration(d)
}
