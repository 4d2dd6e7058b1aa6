package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/service"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

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

// DefaultRetryOptions is used for storage operations that may hit a busy database.
func DefaultRetryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// withDefaults fills unset retry options.
func withDefaults(opts service.RetryOptions) service.RetryOptions {
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
	return opts
}

// WithRetry executes an operation, retrying errors IsRetryable accepts with
// exponential backoff. Other errors are returned immediately. A busy SQLite
// database is the usual cause; the busy timeout on the connection handles
// short waits and this loop handles the rest.
func WithRetry(ctx context.Context, logger logging.Logger, operation func() error, opts service.RetryOptions) error {
	opts = withDefaults(opts)
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	delay := opts.InitialDelay
	for attempt := 1; ; attempt++ {
		err := operation()
		switch {
		case err == nil:
			return nil
		case !IsRetryable(err):
			return err
		case attempt >= opts.MaxAttempts:
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		logger.WithError(err).Warn("Storage busy, retrying",
			logging.F(logging.FieldAttempt, attempt),
			logging.F(logging.FieldMaxAttempts, opts.MaxAttempts),
			logging.F("delay", delay.String()))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
