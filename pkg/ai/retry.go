package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for recoverable errors.
type RetryConfig struct {
	MaxRetries    int           // Maximum number of retry attempts
	InitialDelay  time.Duration // Initial delay before first retry
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Exponential backoff multiplier
	JitterPercent float32       // Random jitter percentage (0.0-1.0)
}

// DefaultRetryConfig is used for stream setup when no retry block is configured.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:    3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      5 * time.Second,
	BackoffFactor: 2.0,
	JitterPercent: 0.1,
}

// Retry calls fn until it succeeds, returns a fatal error, or cfg.MaxRetries
// retries are exhausted. Errors that are neither recoverable nor fatal are
// retried. Waiting between attempts honors ctx.
func Retry[T any](ctx context.Context, cfg RetryConfig, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(cfg, attempt)
			logger.Info("Retrying "+op,
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("last_error", lastErr.Error()))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		v, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info(op+" succeeded after retry", slog.Int("attempts", attempt+1))
			}
			return v, nil
		}
		lastErr = err

		if IsFatal(err) {
			logger.Error("Fatal error, not retrying",
				slog.String("op", op),
				slog.String("error", err.Error()),
				slog.String("class", Classify(err)),
				slog.Int("attempt", attempt+1))
			return zero, err
		}
		logger.Warn("Provider error, retrying",
			slog.String("op", op),
			slog.String("error", err.Error()),
			slog.String("class", Classify(err)),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", cfg.MaxRetries))
	}

	return zero, fmt.Errorf("exhausted all retry attempts (%d): %w", cfg.MaxRetries, lastErr)
}

// BackoffDelay computes the delay before retry attempt (1-based).
func BackoffDelay(cfg RetryConfig, attempt int) time.Duration {
	// Exponential backoff: delay = initialDelay * (backoffFactor ^ (attempt-1))
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// Add jitter to avoid thundering herd
	if cfg.JitterPercent > 0 {
		jitterRange := delay * float64(cfg.JitterPercent)
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
	}

	if delay < 0 {
		delay = float64(cfg.InitialDelay)
	}
	return time.Duration(delay)
}
