package env

import (
	"errors"
	"fmt"
)

// Engine errors.
var (
	// ErrSimulatorUnavailable indicates the world-control endpoints are
	// unreachable. Surfaced to the caller immediately, never retried.
	ErrSimulatorUnavailable = errors.New("env: simulator unavailable")

	// ErrActuationTimeout indicates an arming or takeoff command was not
	// acknowledged within its bounded wait.
	ErrActuationTimeout = errors.New("env: actuation not acknowledged in time")

	// ErrEpisodeDone indicates Step was called after the episode reached
	// DONE without an intervening Reset.
	ErrEpisodeDone = errors.New("env: episode done, reset required")

	// ErrNotRunning indicates Step was called before the first Reset.
	ErrNotRunning = errors.New("env: episode not running, reset required")

	// ErrClosed indicates use of a controller after Close.
	ErrClosed = errors.New("env: controller closed")
)

// ActuationError reports a command that kept timing out after retries.
type ActuationError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("env: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ActuationError) Unwrap() error {
	return e.Err
}
