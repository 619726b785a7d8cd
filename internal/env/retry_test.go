package env

import (
	"context"
	"errors"
	"testing"
)

func TestRetryActuationSucceedsEarly(t *testing.T) {
	calls := 0
	err := RetryActuation(context.Background(), "arm", 3, func(context.Context) error {
		calls++
		if calls < 2 {
			return ErrActuationTimeout
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryActuationExhaustsAttempts(t *testing.T) {
	calls := 0
	err := RetryActuation(context.Background(), "takeoff", 3, func(context.Context) error {
		calls++
		return ErrActuationTimeout
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, ErrActuationTimeout) {
		t.Errorf("err = %v, want ErrActuationTimeout through the wrapper", err)
	}
	var ae *ActuationError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %T, want *ActuationError", err)
	}
	if ae.Op != "takeoff" || ae.Attempts != 3 {
		t.Errorf("wrapper = %+v, want op takeoff with 3 attempts", ae)
	}
}

func TestRetryActuationStopsOnOtherErrors(t *testing.T) {
	fault := errors.New("hardware fault")
	calls := 0
	err := RetryActuation(context.Background(), "arm", 5, func(context.Context) error {
		calls++
		return fault
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on non-timeout errors)", calls)
	}
	if !errors.Is(err, fault) {
		t.Errorf("err = %v, want the original fault", err)
	}
}

func TestRetryActuationHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryActuation(ctx, "arm", 5, func(context.Context) error {
		calls++
		cancel()
		return ErrActuationTimeout
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
