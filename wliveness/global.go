package wliveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// The package-level default supervisor is a thin convenience layer for
// programs that want watchdog calls sprinkled through task loops without
// threading a Supervisor value everywhere. It starts as [NopSupervisor];
// a program that wants real supervision installs a [Registry] with
// [SetDefault] during startup.

var defaultSupervisor atomic.Pointer[Supervisor]

func init() {
	SetDefault(NopSupervisor{})
}

// SetDefault installs s as the process-wide default supervisor.
func SetDefault(s Supervisor) {
	defaultSupervisor.Store(&s)
}

// Default returns the process-wide default supervisor.
func Default() Supervisor {
	return *defaultSupervisor.Load()
}

// Initialize calls Initialize on the default supervisor.
func Initialize(timeoutSeconds uint32, panicOnTimeout bool) error {
	return Default().Initialize(timeoutSeconds, panicOnTimeout)
}

// RegisterTask calls RegisterTask on the default supervisor.
func RegisterTask(ctx context.Context, name string, critical bool, feedInterval time.Duration) error {
	return Default().RegisterTask(ctx, name, critical, feedInterval)
}

// UnregisterTask calls UnregisterTask on the default supervisor.
func UnregisterTask(id wtask.ID, nameHint string) error {
	return Default().UnregisterTask(id, nameHint)
}

// Feed calls Feed on the default supervisor.
func Feed(ctx context.Context) error {
	return Default().Feed(ctx)
}

// CheckHealth calls CheckHealth on the default supervisor.
func CheckHealth() int {
	return Default().CheckHealth()
}
