package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/googleapis/gax-go/v2"
)

// RetryPolicy bounds a retried operation.
type RetryPolicy struct {
	Attempts int
	Backoff  gax.Backoff
}

// DefaultRetryPolicy matches the upload loop: four attempts, doubling from
// one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 4,
		Backoff:  gax.Backoff{Initial: time.Second, Max: 16 * time.Second, Multiplier: 2},
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs op until it succeeds, returns a Permanent error, the attempts
// run out or ctx is done.
func Retry(ctx context.Context, p RetryPolicy, name string, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	bo := p.Backoff
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pause := bo.Pause()
		slog.Warn(
			"Operation failed, will retry.",
			"operation", name,
			"attempt", i+1,
			"maxRetries", attempts,
			"backoff", pause.String(),
			"error", err,
		)
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "operation", name, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Operation failed after all retries.", "operation", name, "error", lastErr)
	return fmt.Errorf("%s failed after all retries: %w", name, lastErr)
}
