package wliveness

import (
	"time"

	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// MaxTaskNameLen bounds task names stored by the registry.
// Longer names are truncated at registration, for diagnostics only.
const MaxTaskNameLen = 32

// taskEntry is the registry's private bookkeeping for one registered task.
// Entries are owned exclusively by the registry and only touched
// while holding its lock.
type taskEntry struct {
	id   wtask.ID
	name string

	lastFeed     time.Time
	feedInterval time.Duration

	// Incremented each time a health scan finds the entry stale;
	// reset to zero on any subsequent feed. Saturates, never wraps.
	missedFeeds uint32

	critical bool
}

// TaskSnapshot is a point-in-time copy of a registered task's state,
// returned by [*Registry.Lookup]. Mutating a snapshot has no effect
// on registry state.
type TaskSnapshot struct {
	ID   wtask.ID
	Name string

	// LastFeed is the time of the most recent successful feed,
	// or of registration if the task has never fed.
	LastFeed time.Time

	// FeedInterval is the expected maximum gap between feeds.
	FeedInterval time.Duration

	// MissedFeeds counts consecutive health scans that found the task stale.
	MissedFeeds uint32

	// Critical marks staleness of this task as a fatal condition
	// for whatever policy consumes health results;
	// the registry itself does not act on it beyond reporting.
	Critical bool
}

func (e *taskEntry) snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:           e.id,
		Name:         e.name,
		LastFeed:     e.lastFeed,
		FeedInterval: e.feedInterval,
		MissedFeeds:  e.missedFeeds,
		Critical:     e.critical,
	}
}

func boundName(name string) string {
	if len(name) > MaxTaskNameLen {
		return name[:MaxTaskNameLen]
	}
	return name
}
