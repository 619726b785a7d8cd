package env

import (
	"context"
	"errors"
)

// RetryActuation invokes fn up to attempts times, returning nil on the
// first success. Only timeout failures are retried; any other error stops
// the loop immediately. The final timeout is wrapped in an ActuationError
// so callers can still match ErrActuationTimeout with errors.Is.
func RetryActuation(ctx context.Context, op string, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, ErrActuationTimeout) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return &ActuationError{Op: op, Attempts: attempts, Err: err}
}
