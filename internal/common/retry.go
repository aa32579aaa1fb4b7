package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns the retry schedule used for backend calls.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// WithRetry executes an operation with exponential backoff. Errors wrapped in a
// non-retryable RetryableError stop immediately.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.InitialDelay
	expo.MaxInterval = opts.MaxDelay
	expo.Multiplier = opts.Multiplier
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(opts.MaxAttempts-1)),
		ctx,
	)

	attempt := 0
	permanent := false
	var lastErr error
	err := backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		var retryableErr *RetryableError
		if (errors.As(err, &retryableErr) && !retryableErr.Retryable) || errors.Is(err, context.Canceled) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, delay time.Duration) {
		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)
	})
	if err == nil {
		return nil
	}

	if permanent {
		return lastErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if attempt >= opts.MaxAttempts {
		return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, lastErr)
	}
	return err
}
