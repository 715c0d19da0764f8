// Package wlog has shorthands for common logging patterns
// in the watchdog packages.
package wlog

import (
	"log/slog"

	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// Task returns a copy of log that includes fields for the given task name and identity.
//
// This is a convenient shorthand in many log calls where
// the affected task is the pertinent detail.
func Task(log *slog.Logger, name string, id wtask.ID) *slog.Logger {
	return log.With("task", name, "task_id", id)
}

// TaskE returns a copy of log that includes fields for the given task name, identity, and error.
func TaskE(log *slog.Logger, name string, id wtask.ID, e error) *slog.Logger {
	return log.With("task", name, "task_id", id, "err", e)
}
