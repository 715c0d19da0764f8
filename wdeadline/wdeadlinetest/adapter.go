// Package wdeadlinetest provides an in-memory [wdeadline.Adapter]
// for tests that need to observe or script adapter behavior
// without running a real deadline.
package wdeadlinetest

import (
	"sync"
	"time"

	"github.com/packerlschupfer/ESP32-Watchdog/wdeadline"
	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// Adapter records every call made against it and never enforces anything.
//
// The error fields, when set, are returned by the corresponding method
// to script adapter failures. They are consulted before any state change.
type Adapter struct {
	// Scripted failures.
	ArmErr    error
	AddErr    error
	RemoveErr error
	PingErr   error
	StatusErr error

	mu             sync.Mutex
	armed          bool
	timeout        time.Duration
	panicOnTimeout bool
	participants   map[wtask.ID]struct{}
	pings          map[wtask.ID]int
}

var _ wdeadline.Adapter = (*Adapter)(nil)

func NewAdapter() *Adapter {
	return &Adapter{
		participants: make(map[wtask.ID]struct{}),
		pings:        make(map[wtask.ID]int),
	}
}

// Arm implements [wdeadline.Adapter].
// Arming twice returns [wdeadline.ErrAlreadyArmed],
// so a test can simulate "armed by another owner"
// simply by calling Arm before the code under test does.
func (a *Adapter) Arm(timeout time.Duration, panicOnTimeout bool) error {
	if a.ArmErr != nil {
		return a.ArmErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.armed {
		return wdeadline.ErrAlreadyArmed
	}
	a.armed = true
	a.timeout = timeout
	a.panicOnTimeout = panicOnTimeout
	return nil
}

// AddParticipant implements [wdeadline.Adapter].
func (a *Adapter) AddParticipant(id wtask.ID) error {
	if a.AddErr != nil {
		return a.AddErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.armed {
		return wdeadline.ErrNotArmed
	}
	a.participants[id] = struct{}{}
	return nil
}

// RemoveParticipant implements [wdeadline.Adapter].
func (a *Adapter) RemoveParticipant(id wtask.ID) error {
	if a.RemoveErr != nil {
		return a.RemoveErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.armed {
		return wdeadline.ErrNotArmed
	}
	if _, ok := a.participants[id]; !ok {
		return wdeadline.ErrParticipantNotFound
	}
	delete(a.participants, id)
	return nil
}

// Ping implements [wdeadline.Adapter].
func (a *Adapter) Ping(id wtask.ID) error {
	if a.PingErr != nil {
		return a.PingErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.armed {
		return wdeadline.ErrNotArmed
	}
	if _, ok := a.participants[id]; !ok {
		return wdeadline.ErrParticipantNotFound
	}
	a.pings[id]++
	return nil
}

// ParticipantStatus implements [wdeadline.Adapter].
func (a *Adapter) ParticipantStatus(id wtask.ID) (wdeadline.Status, error) {
	if a.StatusErr != nil {
		return wdeadline.StatusNotArmed, a.StatusErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.participants[id]; ok && a.armed {
		return wdeadline.StatusArmed, nil
	}
	return wdeadline.StatusNotArmed, nil
}

// Armed reports whether Arm has been called successfully.
func (a *Adapter) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// Timeout reports the timeout passed to the successful Arm call.
func (a *Adapter) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeout
}

// PanicOnTimeout reports the policy flag passed to the successful Arm call.
func (a *Adapter) PanicOnTimeout() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.panicOnTimeout
}

// HasParticipant reports whether id is currently tracked.
func (a *Adapter) HasParticipant(id wtask.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.participants[id]
	return ok
}

// ParticipantCount reports the number of tracked participants.
func (a *Adapter) ParticipantCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.participants)
}

// Pings reports how many times id has successfully pinged.
func (a *Adapter) Pings(id wtask.ID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pings[id]
}
