package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestRunFlags_bind(t *testing.T) {
	t.Parallel()

	cfg := new(runConfig)
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(fs, cfg)

	require.NoError(t, fs.Parse([]string{
		"--timeout=25",
		"--panic",
		"--workers=5",
		"--feed-every=250ms",
		"--wedge-all",
		"--health-every=2s",
	}))

	require.Equal(t, uint32(25), cfg.timeoutSeconds)
	require.True(t, cfg.panicOnExpiry)
	require.Equal(t, 5, cfg.workers)
	require.Equal(t, 250*time.Millisecond, cfg.feedEvery)
	require.True(t, cfg.wedgeAll)
	require.Equal(t, 2*time.Second, cfg.healthEvery)
}

func TestRunFlags_defaults(t *testing.T) {
	t.Parallel()

	cfg := new(runConfig)
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(fs, cfg)

	require.NoError(t, fs.Parse(nil))

	require.Equal(t, uint32(10), cfg.timeoutSeconds)
	require.False(t, cfg.panicOnExpiry)
	require.Equal(t, 3, cfg.workers)
	require.Equal(t, 3*time.Second, cfg.wedgeAfter)
	require.False(t, cfg.wedgeAll)
}
