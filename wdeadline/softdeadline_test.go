package wdeadline_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/packerlschupfer/ESP32-Watchdog/internal/wtest"
	"github.com/packerlschupfer/ESP32-Watchdog/wdeadline"
	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

func TestSoftwareDeadline_expiry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewMock()
	d, dCtx := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clk)
	defer d.Wait()
	defer cancel()

	require.NoError(t, d.Arm(5*time.Second, false))

	id := wtask.NextID()
	require.NoError(t, d.AddParticipant(id))

	require.NoError(t, dCtx.Err())
	require.False(t, wdeadline.IsExpiration(dCtx))

	clk.Add(5 * time.Second)

	wtest.ReceiveSoon(t, dCtx.Done())
	require.True(t, wdeadline.IsExpiration(dCtx))
	require.Equal(t, wdeadline.ExpiredError{Timeout: 5 * time.Second}, context.Cause(dCtx))

	// The kernel keeps serving requests after the deadline fires,
	// so late unregistrations still resolve.
	st, err := d.ParticipantStatus(id)
	require.NoError(t, err)
	require.Equal(t, wdeadline.StatusArmed, st)
	require.NoError(t, d.RemoveParticipant(id))
}

func TestSoftwareDeadline_pingDefersExpiry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewMock()
	d, dCtx := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clk)
	defer d.Wait()
	defer cancel()

	require.NoError(t, d.Arm(5*time.Second, false))

	id := wtask.NextID()
	require.NoError(t, d.AddParticipant(id))

	// Ping at t=3s resets the deadline to t=8s.
	clk.Add(3 * time.Second)
	require.NoError(t, d.Ping(id))

	// At t=6s the original deadline has passed but the reset one has not.
	clk.Add(3 * time.Second)
	wtest.Sleep(wtest.ScaleMs(20))
	wtest.NotSending(t, dCtx.Done())

	clk.Add(2 * time.Second)
	wtest.ReceiveSoon(t, dCtx.Done())
	require.True(t, wdeadline.IsExpiration(dCtx))
}

func TestSoftwareDeadline_doubleArm(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, _ := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clock.NewMock())
	defer d.Wait()
	defer cancel()

	require.NoError(t, d.Arm(5*time.Second, false))
	require.ErrorIs(t, d.Arm(10*time.Second, true), wdeadline.ErrAlreadyArmed)
}

func TestSoftwareDeadline_invalidTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, _ := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clock.NewMock())
	defer d.Wait()
	defer cancel()

	require.Error(t, d.Arm(0, false))

	// The failed arm does not consume the singleton.
	require.NoError(t, d.Arm(time.Second, false))
}

func TestSoftwareDeadline_operationsBeforeArm(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, _ := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clock.NewMock())
	defer d.Wait()
	defer cancel()

	id := wtask.NextID()

	require.ErrorIs(t, d.AddParticipant(id), wdeadline.ErrNotArmed)
	require.ErrorIs(t, d.RemoveParticipant(id), wdeadline.ErrNotArmed)
	require.ErrorIs(t, d.Ping(id), wdeadline.ErrNotArmed)

	// Status is total: unarmed is an answer, not an error.
	st, err := d.ParticipantStatus(id)
	require.NoError(t, err)
	require.Equal(t, wdeadline.StatusNotArmed, st)
}

func TestSoftwareDeadline_participantLifecycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, _ := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clock.NewMock())
	defer d.Wait()
	defer cancel()

	require.NoError(t, d.Arm(5*time.Second, false))

	id := wtask.NextID()

	require.ErrorIs(t, d.Ping(id), wdeadline.ErrParticipantNotFound)
	require.ErrorIs(t, d.RemoveParticipant(id), wdeadline.ErrParticipantNotFound)

	require.NoError(t, d.AddParticipant(id))
	// Re-adding a tracked participant is a no-op.
	require.NoError(t, d.AddParticipant(id))

	st, err := d.ParticipantStatus(id)
	require.NoError(t, err)
	require.Equal(t, wdeadline.StatusArmed, st)

	require.NoError(t, d.Ping(id))

	require.NoError(t, d.RemoveParticipant(id))
	st, err = d.ParticipantStatus(id)
	require.NoError(t, err)
	require.Equal(t, wdeadline.StatusNotArmed, st)

	require.ErrorIs(t, d.Ping(id), wdeadline.ErrParticipantNotFound)
}

func TestSoftwareDeadline_Terminate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, dCtx := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), nil)
	defer d.Wait()
	defer cancel()

	require.NoError(t, dCtx.Err())

	d.Terminate("testing purposes")
	require.Error(t, dCtx.Err())
	require.True(t, wdeadline.IsExpiration(dCtx))
	require.Equal(t, wdeadline.ForcedTerminationError{
		Reason: "testing purposes",
	}, context.Cause(dCtx))

	// Calling a second time does not change the cause.
	d.Terminate("again")
	require.Equal(t, wdeadline.ForcedTerminationError{
		Reason: "testing purposes",
	}, context.Cause(dCtx))
}

func TestSoftwareDeadline_parentCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	d, dCtx := wdeadline.NewSoftwareDeadline(ctx, wtest.NewLogger(t), clock.NewMock())

	cancel()
	d.Wait()

	// The deadline context is cancelled but this is not an expiration.
	require.Error(t, dCtx.Err())
	require.False(t, wdeadline.IsExpiration(dCtx))

	// Requests against the stopped kernel fail rather than hang.
	require.Error(t, d.Arm(time.Second, false))
	_, err := d.ParticipantStatus(wtask.NextID())
	require.Error(t, err)
}
