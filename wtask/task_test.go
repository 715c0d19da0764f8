package wtask_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

func TestFromContext_roundTrip(t *testing.T) {
	t.Parallel()

	id := wtask.NextID()
	ctx := wtask.WithID(context.Background(), id)

	got, ok := wtask.FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)
}

func TestFromContext_absent(t *testing.T) {
	t.Parallel()

	_, ok := wtask.FromContext(context.Background())
	require.False(t, ok)
}

func TestFromContext_zeroIDTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	ctx := wtask.WithID(context.Background(), 0)
	_, ok := wtask.FromContext(ctx)
	require.False(t, ok)
}

func TestNextID_unique(t *testing.T) {
	t.Parallel()

	seen := make(map[wtask.ID]struct{})
	for i := 0; i < 100; i++ {
		id := wtask.NextID()
		require.NotZero(t, id)

		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestID_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "task-7", wtask.ID(7).String())
}
