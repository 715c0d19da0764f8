package wdeadline

import (
	"time"

	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// Status is an adapter's view of a single participant.
type Status int

const (
	// StatusNotArmed means the participant is not currently covered
	// by the deadline mechanism.
	StatusNotArmed Status = iota

	// StatusArmed means the deadline mechanism is tracking the participant,
	// and the participant is expected to ping before the global deadline elapses.
	StatusArmed
)

func (s Status) String() string {
	switch s {
	case StatusNotArmed:
		return "not-armed"
	case StatusArmed:
		return "armed"
	default:
		return "unknown"
	}
}

// Adapter is the fixed contract between the liveness registry and the
// platform deadline mechanism.
//
// Adapters hold no liveness bookkeeping of their own beyond what the
// platform requires; all per-task liveness state lives in the registry.
type Adapter interface {
	// Arm starts the single global deadline.
	// If the deadline has already been armed, possibly by an unrelated
	// owner before this process got involved, Arm returns [ErrAlreadyArmed].
	Arm(timeout time.Duration, panicOnTimeout bool) error

	// AddParticipant begins tracking the given task.
	// Adding a participant that is already tracked is a no-op.
	// Returns [ErrNotArmed] if the deadline is not armed.
	AddParticipant(id wtask.ID) error

	// RemoveParticipant stops tracking the given task.
	// Returns [ErrParticipantNotFound] if the task is not tracked,
	// and [ErrNotArmed] if the deadline is not armed.
	RemoveParticipant(id wtask.ID) error

	// Ping records proof of progress for the given task,
	// deferring the global deadline.
	// Returns [ErrParticipantNotFound] if the task is not tracked,
	// and [ErrNotArmed] if the deadline is not armed.
	//
	// Pinging for an untracked task is an error at this layer;
	// callers that want "ping if tracked" semantics must consult
	// ParticipantStatus first, as the registry does.
	Ping(id wtask.ID) error

	// ParticipantStatus reports whether the given task is tracked.
	// It is total: an unarmed deadline or an unknown task both report
	// [StatusNotArmed] without error.
	ParticipantStatus(id wtask.ID) (Status, error)
}
