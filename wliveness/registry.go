package wliveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/packerlschupfer/ESP32-Watchdog/internal/wlog"
	"github.com/packerlschupfer/ESP32-Watchdog/internal/wsync"
	"github.com/packerlschupfer/ESP32-Watchdog/wdeadline"
	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

const (
	// MinTimeoutSeconds and MaxTimeoutSeconds bound the global timeout
	// accepted by [*Registry.Initialize].
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 3600

	// DefaultTimeoutSeconds is a reasonable global timeout
	// for callers with no stronger opinion.
	DefaultTimeoutSeconds = 30

	// A feed interval not supplied at registration defaults to
	// the global timeout divided by this.
	defaultFeedDivisor = 5

	// Stale means elapsed time since last feed exceeds
	// this multiple of the entry's feed interval.
	staleGraceMultiplier = 2

	// How long the hot-path operations wait for the registry lock
	// before degrading gracefully.
	boundedLockWait = 10 * time.Millisecond
)

// Config carries the collaborators a [Registry] depends on.
type Config struct {
	// Adapter enforces the global deadline. Required.
	Adapter wdeadline.Adapter

	// Clock is the monotonic time source for feed timestamps
	// and staleness math. Nil defaults to the real clock.
	Clock clock.Clock
}

// Registry is the process-wide liveness table.
//
// Lifecycle operations ([*Registry.Initialize], [*Registry.Deinitialize],
// [*Registry.RegisterTask], [*Registry.UnregisterTask]) acquire the
// registry lock unconditionally; the hot-path operations
// ([*Registry.Feed], [*Registry.CheckHealth], [*Registry.Lookup],
// [*Registry.Count]) use a bounded wait and degrade gracefully under
// contention, so that liveness reporting can never itself hang a task.
type Registry struct {
	log *slog.Logger

	adapter wdeadline.Adapter
	clock   clock.Clock

	// Guards entries, timeout, and panicOnTimeout,
	// and serializes initialized transitions.
	mu *wsync.Mutex

	// Readable without the lock.
	initialized atomic.Bool

	timeout        time.Duration
	panicOnTimeout bool

	// Small bounded population; lookup is a linear scan.
	entries []*taskEntry
}

var _ Supervisor = (*Registry)(nil)

// New returns a Registry using the given collaborators.
// It panics if cfg.Adapter is nil.
func New(log *slog.Logger, cfg Config) *Registry {
	if cfg.Adapter == nil {
		panic(errors.New("wliveness.New: Config.Adapter must not be nil"))
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Registry{
		log:     log,
		adapter: cfg.Adapter,
		clock:   clk,
		mu:      wsync.NewMutex(),
	}
}

// Initialize arms the global deadline and marks the registry ready
// for task registration.
//
// timeoutSeconds must be in [MinTimeoutSeconds, MaxTimeoutSeconds];
// otherwise an [InvalidTimeoutError] is returned with no side effect.
// Initializing an already-initialized registry succeeds as a no-op.
// The adapter reporting "already armed" is also success: the deadline is a
// singleton resource another owner may have claimed first, and the registry
// keeps cooperative bookkeeping, not exclusive hardware access.
// Any other arming failure surfaces as an [InitializationFailedError].
func (r *Registry) Initialize(timeoutSeconds uint32, panicOnTimeout bool) error {
	if r.initialized.Load() {
		r.log.Warn("Liveness registry already initialized; ignoring new settings")
		return nil
	}

	if timeoutSeconds < MinTimeoutSeconds || timeoutSeconds > MaxTimeoutSeconds {
		return InvalidTimeoutError{Seconds: timeoutSeconds}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock; another goroutine may have raced us here.
	if r.initialized.Load() {
		r.log.Warn("Liveness registry already initialized; ignoring new settings")
		return nil
	}

	timeout := time.Duration(timeoutSeconds) * time.Second

	err := r.adapter.Arm(timeout, panicOnTimeout)
	switch {
	case err == nil:
		// Armed by us.
	case errors.Is(err, wdeadline.ErrAlreadyArmed):
		r.log.Debug("Global deadline was already armed by another owner")
	default:
		return InitializationFailedError{Err: err}
	}

	r.timeout = timeout
	r.panicOnTimeout = panicOnTimeout
	r.initialized.Store(true)

	r.log.Info("Liveness registry initialized", "timeout", timeout, "panic_on_timeout", panicOnTimeout)
	return nil
}

// Deinitialize removes every tracked task from the deadline adapter
// and clears the registry. It is a no-op if the registry is not initialized.
//
// The contract is "no tasks are tracked after this call";
// the underlying deadline mechanism may not support retracting the arming
// itself, and the registry does not attempt to.
func (r *Registry) Deinitialize() error {
	if !r.initialized.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		err := r.adapter.RemoveParticipant(e.id)
		if err != nil &&
			!errors.Is(err, wdeadline.ErrParticipantNotFound) &&
			!errors.Is(err, wdeadline.ErrNotArmed) {
			wlog.TaskE(r.log, e.name, e.id, err).Warn("Failed to remove task from deadline adapter during deinitialize")
		}
	}
	r.entries = nil
	r.timeout = 0
	r.panicOnTimeout = false
	r.initialized.Store(false)

	r.log.Info("Liveness registry deinitialized")
	return nil
}

// RegisterTask registers the calling task for liveness tracking.
// It must be invoked by the task being registered: the identity is
// resolved from ctx via [wtask.FromContext], and [ErrNoTaskIdentity]
// is returned when none is present.
//
// The name is a diagnostic label, truncated to [MaxTaskNameLen] bytes.
// A zero feedInterval defaults to one-fifth of the global timeout.
// Registering an already-registered task succeeds as a no-op and does
// not reset its feed timestamp. If the deadline adapter already tracks
// the identity, such as a pre-existing platform registration,
// the registration is merged silently.
func (r *Registry) RegisterTask(ctx context.Context, name string, critical bool, feedInterval time.Duration) error {
	if !r.initialized.Load() {
		return ErrNotInitialized
	}

	id, ok := wtask.FromContext(ctx)
	if !ok {
		return ErrNoTaskIdentity
	}

	name = boundName(name)

	st, err := r.adapter.ParticipantStatus(id)
	if err != nil {
		return AdapterInconsistentError{Op: "participant status", Err: err}
	}
	switch st {
	case wdeadline.StatusArmed:
		// Already known to the platform; merge without re-validating.
		wlog.Task(r.log, name, id).Debug("Task already armed on deadline adapter; merging")
	case wdeadline.StatusNotArmed:
		if err := r.adapter.AddParticipant(id); err != nil {
			return fmt.Errorf("failed to add task %q to deadline adapter: %w", name, err)
		}
	default:
		return AdapterInconsistentError{
			Op:  "participant status",
			Err: fmt.Errorf("unexpected status %v", st),
		}
	}

	r.mu.Lock()
	if e := r.findByID(id); e != nil {
		r.mu.Unlock()
		wlog.Task(r.log, e.name, id).Warn("Task already registered with liveness registry")
		return nil
	}

	if feedInterval <= 0 {
		feedInterval = r.timeout / defaultFeedDivisor
	}
	r.entries = append(r.entries, &taskEntry{
		id:           id,
		name:         name,
		lastFeed:     r.clock.Now(),
		feedInterval: feedInterval,
		critical:     critical,
	})
	r.mu.Unlock()

	// Feed immediately so registration itself cannot produce
	// a false-positive staleness report.
	if err := r.adapter.Ping(id); err != nil {
		wlog.TaskE(r.log, name, id, err).Debug("Initial deadline ping failed after registration")
	}

	wlog.Task(r.log, name, id).Info("Task registered", "critical", critical, "feed_interval", feedInterval)
	return nil
}

// UnregisterTask removes the given task from the deadline adapter and
// from the registry. Unlike [*Registry.RegisterTask] it is callable from
// any context, supporting cleanup by a supervisor after the task has
// already terminated.
//
// An identity with no matching entry is not an error; cleanup paths
// may unregister a task that was never registered. nameHint, which may
// be empty, is used only for diagnostics in that case.
func (r *Registry) UnregisterTask(id wtask.ID, nameHint string) error {
	err := r.adapter.RemoveParticipant(id)
	if err != nil &&
		!errors.Is(err, wdeadline.ErrParticipantNotFound) &&
		!errors.Is(err, wdeadline.ErrNotArmed) {
		return fmt.Errorf("failed to remove task from deadline adapter: %w", err)
	}

	r.mu.Lock()
	idx := slices.IndexFunc(r.entries, func(e *taskEntry) bool { return e.id == id })
	if idx < 0 {
		r.mu.Unlock()
		wlog.Task(r.log, nameHint, id).Debug("Task not found in liveness registry during unregister")
		return nil
	}

	name := r.entries[idx].name
	r.entries = slices.Delete(r.entries, idx, idx+1)
	r.mu.Unlock()

	wlog.Task(r.log, name, id).Info("Task unregistered")
	return nil
}

// Feed records proof of progress for the calling task,
// resolved from ctx via [wtask.FromContext].
//
// A task with no registry entry may still feed; the bookkeeping update is
// skipped silently, since feeding is advisory and must not produce noisy
// failures. The deadline adapter is pinged only when it reports the
// identity as armed, because pinging an unarmed identity is an error in
// the underlying mechanism that must not surface to the caller.
//
// Feed uses a bounded wait on the registry lock; under contention it
// skips the bookkeeping update but still attempts the adapter ping.
func (r *Registry) Feed(ctx context.Context) error {
	id, ok := wtask.FromContext(ctx)
	if !ok {
		return ErrNoTaskIdentity
	}

	if r.mu.TryLockFor(boundedLockWait) {
		if e := r.findByID(id); e != nil {
			e.lastFeed = r.clock.Now()
			e.missedFeeds = 0
		}
		r.mu.Unlock()
	}

	st, err := r.adapter.ParticipantStatus(id)
	if err != nil {
		r.log.Debug("Skipping deadline ping; participant status unavailable", "task_id", id, "err", err)
		return nil
	}
	if st != wdeadline.StatusArmed {
		return nil
	}

	if err := r.adapter.Ping(id); err != nil {
		r.log.Warn("Deadline ping failed", "task_id", id, "err", err)
	}
	return nil
}

// CheckHealth scans every entry and returns how many are stale:
// elapsed time since last feed greater than twice the entry's feed
// interval. Each stale entry's missed-feed counter is incremented
// (saturating) and a diagnostic is emitted. No remediation is performed.
//
// CheckHealth uses a bounded wait on the registry lock and reports 0
// for a pass it had to skip under contention.
func (r *Registry) CheckHealth() int {
	if !r.mu.TryLockFor(boundedLockWait) {
		r.log.Debug("Skipping health scan; registry lock contended")
		return 0
	}
	defer r.mu.Unlock()

	now := r.clock.Now()
	stale := 0
	for _, e := range r.entries {
		elapsed := now.Sub(e.lastFeed)
		if elapsed <= staleGraceMultiplier*e.feedInterval {
			continue
		}

		if e.missedFeeds < math.MaxUint32 {
			e.missedFeeds++
		}
		stale++

		wlog.Task(r.log, e.name, e.id).Warn(
			"Task has not fed within expected interval",
			"elapsed", elapsed,
			"expected", e.feedInterval,
			"missed_feeds", e.missedFeeds,
			"critical", e.critical,
		)
	}
	return stale
}

// Lookup returns a snapshot of the entry with the given name.
// The snapshot is a copy; callers cannot mutate registry state through it.
func (r *Registry) Lookup(name string) (TaskSnapshot, bool) {
	if !r.mu.TryLockFor(boundedLockWait) {
		return TaskSnapshot{}, false
	}
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.name == name {
			return e.snapshot(), true
		}
	}
	return TaskSnapshot{}, false
}

// Count reports the number of registered entries,
// or 0 if the registry lock could not be acquired within the bounded wait.
func (r *Registry) Count() int {
	if !r.mu.TryLockFor(boundedLockWait) {
		return 0
	}
	defer r.mu.Unlock()
	return len(r.entries)
}

// Initialized reports whether the registry has been initialized.
// It does not take the registry lock.
func (r *Registry) Initialized() bool {
	return r.initialized.Load()
}

// Timeout reports the global deadline duration set at initialization,
// or zero if the registry is not initialized.
func (r *Registry) Timeout() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeout
}

// findByID must be called with the registry lock held.
func (r *Registry) findByID(id wtask.ID) *taskEntry {
	for _, e := range r.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}
