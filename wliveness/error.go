package wliveness

import (
	"errors"
	"fmt"
)

// ErrNotInitialized indicates an operation that requires a successful
// [*Registry.Initialize] was called before one happened.
var ErrNotInitialized = errors.New("liveness registry not initialized")

// ErrNoTaskIdentity indicates a context-sensitive operation was invoked
// from a context with no resolvable task identity.
// See [wtask.WithID].
var ErrNoTaskIdentity = errors.New("no task identity in calling context")

// InvalidTimeoutError indicates an out-of-range global timeout
// passed to [*Registry.Initialize].
type InvalidTimeoutError struct {
	Seconds uint32
}

func (e InvalidTimeoutError) Error() string {
	return fmt.Sprintf(
		"invalid global timeout: %d seconds (must be in [%d, %d])",
		e.Seconds, MinTimeoutSeconds, MaxTimeoutSeconds,
	)
}

// InitializationFailedError indicates the deadline adapter rejected arming
// for a reason other than already being armed.
type InitializationFailedError struct {
	Err error
}

func (e InitializationFailedError) Error() string {
	return "failed to initialize liveness registry: " + e.Err.Error()
}

func (e InitializationFailedError) Unwrap() error {
	return e.Err
}

// AdapterInconsistentError indicates the deadline adapter returned neither
// a definite answer nor a recognized failure on an operation that is
// expected to be total.
type AdapterInconsistentError struct {
	Op  string
	Err error
}

func (e AdapterInconsistentError) Error() string {
	return "deadline adapter inconsistent during " + e.Op + ": " + e.Err.Error()
}

func (e AdapterInconsistentError) Unwrap() error {
	return e.Err
}
