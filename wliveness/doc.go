// Package wliveness provides a Registry that tracks whether independently
// scheduled tasks are periodically proving liveness by "feeding",
// and reports the ones that have stopped doing so.
//
// Each task registers itself with an expected feed interval and then feeds
// at least that often. A health scan flags any entry whose elapsed time
// since its last feed exceeds twice its interval, incrementing a per-entry
// missed-feed counter. The registry detects and reports only; deciding how
// a stale task is punished is left to the caller, and the fatal global
// deadline is delegated to a [wdeadline.Adapter].
package wliveness
