// Package wtask models the scheduler-facing view of a task:
// an opaque identity that is stable for the task's lifetime,
// and helpers to carry that identity through a [context.Context].
//
// The watchdog packages never resolve "the current task" on their own.
// A spawner allocates an ID with [NextID], attaches it to the context it
// hands the task with [WithID], and context-sensitive operations such as
// registering or feeding resolve it back out with [FromContext].
// This keeps the "must be called by the task being described" contract
// checkable without any real scheduler involvement.
package wtask

import (
	"context"
	"strconv"
	"sync/atomic"
)

// ID is an opaque handle uniquely identifying a task.
// The zero ID is never returned by [NextID] and is treated as "no task".
type ID uint64

func (id ID) String() string {
	return "task-" + strconv.FormatUint(uint64(id), 10)
}

var lastID atomic.Uint64

// NextID allocates a process-unique task identity.
func NextID() ID {
	return ID(lastID.Add(1))
}

type idContextKey struct{}

// WithID returns a copy of ctx carrying the given task identity.
// The spawner of a task is expected to call this exactly once,
// before handing the context to the task's main function.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, idContextKey{}, id)
}

// FromContext reports the task identity carried by ctx, if any.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(idContextKey{}).(ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
