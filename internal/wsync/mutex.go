// Package wsync contains small synchronization helpers
// shared by the watchdog packages.
package wsync

import "time"

// Mutex is an exclusive lock supporting bounded-wait acquisition.
//
// The hot-path liveness operations (feeding and health scans) must never
// block a task indefinitely just because the lock is contended,
// so in addition to the usual blocking [Mutex.Lock] there is
// [Mutex.TryLockFor], which gives up after a timeout.
//
// It is built on a capacity-one channel rather than [sync.Mutex],
// since sync.Mutex offers no acquire-with-timeout.
type Mutex struct {
	ch chan struct{}
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Lock blocks until the lock is acquired.
func (m *Mutex) Lock() {
	m.ch <- struct{}{}
}

// TryLockFor attempts to acquire the lock, giving up after d.
// It reports whether the lock was acquired.
func (m *Mutex) TryLockFor(d time.Duration) bool {
	// Fast path without a timer allocation.
	select {
	case m.ch <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case m.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Unlock releases the lock.
// Unlocking an unlocked Mutex panics, matching [sync.Mutex] behavior.
func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
		panic("wsync: unlock of unlocked Mutex")
	}
}
