package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy bounds how often a caller re-issues a failed provider call.
// Only errors wrapping ErrTransientFailure are retried; parse failures,
// blocked content and empty answers are returned at once.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; later delays double.
	BaseDelay time.Duration

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used at call sites: two attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: 2 * time.Second}
}

// NewRetryPolicy builds a policy from configuration values, falling back to
// defaults for non-positive inputs.
func NewRetryPolicy(maxRetries int, retryDelaySeconds int) RetryPolicy {
	policy := DefaultRetryPolicy()
	if maxRetries >= 0 {
		policy.MaxAttempts = maxRetries + 1
	}
	if retryDelaySeconds > 0 {
		policy.BaseDelay = time.Duration(retryDelaySeconds) * time.Second
	}
	return policy
}

// Complete calls c.Complete under the policy.
func (p RetryPolicy) Complete(
	ctx context.Context,
	logger *slog.Logger,
	c Completer,
	prompt string,
) (string, error) {
	var text string
	err := p.Do(ctx, logger, func(ctx context.Context) error {
		var err error
		text, err = c.Complete(ctx, prompt)
		return err
	})
	return text, err
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. Delays grow exponentially with jitter:
// delay = base * 2^attempt * (0.5 + rand(0, 0.5)).
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts-1 {
			break
		}

		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		logger.WarnContext(ctx, "transient provider error, retrying",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", lastErr)

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("cancelled during retry delay: %w", err)
		}
	}

	return fmt.Errorf("exceeded %d attempts: %w", maxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
