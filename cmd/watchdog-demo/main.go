// Command watchdog-demo runs a small simulated workload under the
// liveness supervisor: a set of workers register and feed on an interval,
// some can be wedged on demand, a health loop reports stale tasks,
// and the software deadline fires if every worker stops feeding.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/packerlschupfer/ESP32-Watchdog/wdeadline"
	"github.com/packerlschupfer/ESP32-Watchdog/wliveness"
	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

func main() {
	if err := mainE(); err != nil {
		os.Exit(1)
	}
}

func mainE() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := NewRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Info("Failure", "err", err)
		return err
	}

	return nil
}

func NewRootCmd(log *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "watchdog-demo SUBCOMMAND",

		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},

		Long: `watchdog-demo exercises the task liveness supervisor end to end.

Workers register with the liveness registry and feed it periodically.
Wedging a worker stops its feeds, so health scans begin reporting it stale;
wedging all workers stops every deadline ping, so the global software
deadline eventually fires and shuts the process down.
`,
	}

	rootCmd.AddCommand(
		newRunCmd(log),
	)

	return rootCmd
}

type runConfig struct {
	timeoutSeconds uint32
	panicOnExpiry  bool

	workers   int
	feedEvery time.Duration

	wedgeAfter time.Duration
	wedgeAll   bool

	healthEvery time.Duration
}

func addRunFlags(fs *pflag.FlagSet, cfg *runConfig) {
	fs.Uint32Var(&cfg.timeoutSeconds, "timeout", 10, "global deadline in seconds before the watchdog fires")
	fs.BoolVar(&cfg.panicOnExpiry, "panic", false, "panic the process when the deadline fires, instead of an orderly shutdown")
	fs.IntVar(&cfg.workers, "workers", 3, "number of worker tasks to run")
	fs.DurationVar(&cfg.feedEvery, "feed-every", 500*time.Millisecond, "feed interval for each worker")
	fs.DurationVar(&cfg.wedgeAfter, "wedge-after", 3*time.Second, "wedge the first worker after this long (0 = never)")
	fs.BoolVar(&cfg.wedgeAll, "wedge-all", false, "wedge every worker instead of only the first, so the deadline fires")
	fs.DurationVar(&cfg.healthEvery, "health-every", time.Second, "interval between health scans")
}

func newRunCmd(log *slog.Logger) *cobra.Command {
	cfg := new(runConfig)

	cmd := &cobra.Command{
		Use: "run",

		Short: "Run the demo workload under liveness supervision",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), log, *cfg)
		},
	}
	addRunFlags(cmd.Flags(), cfg)

	return cmd
}

func run(ctx context.Context, log *slog.Logger, cfg runConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sd, dCtx := wdeadline.NewSoftwareDeadline(ctx, log.With("sys", "deadline"), nil)
	defer sd.Wait()
	defer cancel()

	reg := wliveness.New(log.With("sys", "liveness"), wliveness.Config{Adapter: sd})
	if err := reg.Initialize(cfg.timeoutSeconds, cfg.panicOnExpiry); err != nil {
		return fmt.Errorf("failed to initialize liveness registry: %w", err)
	}
	wliveness.SetDefault(reg)

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		name := fmt.Sprintf("worker-%d", i)

		wedge := time.Duration(0)
		if cfg.wedgeAll || i == 0 {
			wedge = cfg.wedgeAfter
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(dCtx, log.With("worker", name), reg, name, cfg.feedEvery, wedge)
		}()
	}

	healthTicker := time.NewTicker(cfg.healthEvery)
	defer healthTicker.Stop()

	for {
		select {
		case <-dCtx.Done():
			cause := context.Cause(dCtx)

			// Stop the workers before tearing down the registry.
			cancel()
			wg.Wait()
			_ = reg.Deinitialize()

			if wdeadline.IsExpiration(dCtx) {
				log.Error("Watchdog fired", "cause", cause)
				return cause
			}
			log.Info("Shutting down", "cause", cause)
			return nil

		case <-healthTicker.C:
			if n := reg.CheckHealth(); n > 0 {
				log.Warn("Health scan found stale tasks", "stale", n)
			}
		}
	}
}

func runWorker(
	ctx context.Context,
	log *slog.Logger,
	sup wliveness.Supervisor,
	name string,
	feedEvery, wedgeAfter time.Duration,
) {
	id := wtask.NextID()
	ctx = wtask.WithID(ctx, id)

	if err := sup.RegisterTask(ctx, name, true, feedEvery); err != nil {
		log.Warn("Failed to register worker", "err", err)
		return
	}
	defer func() {
		_ = sup.UnregisterTask(id, name)
	}()

	var wedgeC <-chan time.Time
	if wedgeAfter > 0 {
		wedgeTimer := time.NewTimer(wedgeAfter)
		defer wedgeTimer.Stop()
		wedgeC = wedgeTimer.C
	}

	ticker := time.NewTicker(feedEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-wedgeC:
			log.Warn("Worker wedging; no further feeds")
			<-ctx.Done()
			return

		case <-ticker.C:
			// Pretend work happened since the last tick.
			_ = sup.Feed(ctx)
		}
	}
}
