package resilience

import (
	"context"
	"log/slog"
	"time"
)

// Retrier re-runs a single dependency call on transient failure with
// exponential backoff. It wraps one call; the circuit breaker wraps the
// whole retrying operation, so the retries of a request count as one
// breaker decision.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a retrier. Non-positive arguments fall back to the
// production defaults (3 attempts, 4s base, 10s cap).
func NewRetrier(maxAttempts int, baseDelay, maxDelay time.Duration, logger *slog.Logger) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 4 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Do runs op up to maxAttempts times. Permanent failures are returned
// immediately; after the final attempt the last failure is returned
// unchanged. Backoff waits abort when ctx is canceled, returning the
// context error so callers can tell their own cancellation apart from a
// dependency failure.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts {
			break
		}
		if Classify(lastErr) == Permanent {
			r.logger.Warn("retry.permanent_failure", "attempt", attempt, "error", lastErr)
			return lastErr
		}
		delay := r.backoff(attempt)
		r.logger.Info("retry.backoff",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay.String(),
			"error", lastErr,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	r.logger.Error("retry.exhausted", "attempts", r.maxAttempts, "error", lastErr)
	return lastErr
}

// backoff returns base*2^(attempt-1) capped at maxDelay: 4s, 8s, 10s, ...
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	if delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
