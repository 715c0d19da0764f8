package wdeadline

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyArmed is returned by [Adapter.Arm] when the global deadline
// has already been armed, whether by this process or another owner.
var ErrAlreadyArmed = errors.New("deadline already armed")

// ErrNotArmed is returned by participant operations invoked before
// the deadline has been armed.
var ErrNotArmed = errors.New("deadline not armed")

// ErrParticipantNotFound is returned by [Adapter.Ping] and
// [Adapter.RemoveParticipant] for a task the deadline is not tracking.
var ErrParticipantNotFound = errors.New("participant not found")

// IsExpiration reports whether the context was cancelled by the deadline,
// either because the global deadline elapsed or because
// [*SoftwareDeadline.Terminate] was called.
func IsExpiration(ctx context.Context) bool {
	e := context.Cause(ctx)
	if e == nil {
		return false
	}

	var exp ExpiredError
	if errors.As(e, &exp) {
		return true
	}

	var ft ForcedTerminationError
	return errors.As(e, &ft)
}

// ExpiredError indicates the global deadline elapsed without any
// participant pinging in time.
type ExpiredError struct {
	Timeout time.Duration
}

func (e ExpiredError) Error() string {
	return "global deadline of " + e.Timeout.String() + " elapsed without a participant ping"
}

// ForcedTerminationError indicates that [*SoftwareDeadline.Terminate] was called.
type ForcedTerminationError struct {
	Reason string
}

func (e ForcedTerminationError) Error() string {
	return "deadline forced termination: " + e.Reason
}
