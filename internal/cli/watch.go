package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-watch/vigil/internal/app"
	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/watch"
)

var (
	watchDuration  time.Duration
	idleFPS        float64
	activeFPS      float64
	threshold      float64
	quietPeriod    time.Duration
	heartbeat      time.Duration
	maxFrames      int
	maxMegabytes   float64
	highlight      bool
	strategy       string
	diffBudget     time.Duration
	captureBackend string
	jsonOutput     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [scope]",
	Short: "Watch a scope and keep frames under the configured caps",
	Long: `Watch captures a scope for a bounded time, diffing successive frames and
adapting the sampling rate to observed activity. Scopes:

  frontmost                      the frontmost window (default)
  screen:<index>                 a whole display
  window:<app>[:<index>]         an application window
  region:<x>,<y>,<w>,<h>         an absolute screen rectangle
  page:<url>                     a web page rendered headlessly`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 30*time.Second, "How long to watch (1s to 180s)")
	watchCmd.Flags().Float64Var(&idleFPS, "idle-fps", 1, "Sampling rate while the scene is calm")
	watchCmd.Flags().Float64Var(&activeFPS, "active-fps", 6, "Sampling rate while changes are observed")
	watchCmd.Flags().Float64Var(&threshold, "threshold", 2.0, "Changed-area percent that counts as activity")
	watchCmd.Flags().DurationVar(&quietPeriod, "quiet", 1500*time.Millisecond, "Calm time before returning to the idle rate")
	watchCmd.Flags().DurationVar(&heartbeat, "heartbeat", 0, "Liveness signal cadence (0 disables)")
	watchCmd.Flags().IntVar(&maxFrames, "max-frames", 60, "Kept-frame cap")
	watchCmd.Flags().Float64Var(&maxMegabytes, "max-mb", 0, "Output byte budget in MB (0 disables)")
	watchCmd.Flags().BoolVar(&highlight, "highlight", false, "Overlay changed-region boxes on kept frames")
	watchCmd.Flags().StringVar(&strategy, "strategy", "fast", "Diff strategy: fast|quality")
	watchCmd.Flags().DurationVar(&diffBudget, "diff-budget", 0, "Time budget per quality diff (0 uses the default)")
	watchCmd.Flags().StringVar(&captureBackend, "backend", "", "Force a capture backend (default chosen by scope)")
	watchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the session result as JSON")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	scope := "frontmost"
	if len(args) > 0 {
		scope = args[0]
	}

	cfg := app.DefaultConfig()
	cfg.StorageRoot = storageRoot
	cfg.CaptureCfg.Backend = captureBackend
	cfg.WatchOpts = watch.Options{
		Duration:               watchDuration,
		IdleFPS:                idleFPS,
		ActiveFPS:              activeFPS,
		ChangeThresholdPercent: threshold,
		Heartbeat:              heartbeat,
		QuietPeriod:            quietPeriod,
		MaxFrames:              maxFrames,
		MaxMegabytes:           maxMegabytes,
		HighlightChanges:       highlight,
		ResolutionCap:          1280,
		Strategy:               diff.Strategy(strategy),
		DiffBudget:             diffBudget,
	}

	orch, cleanup, err := openOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	onHeartbeat := func(hb watch.Heartbeat) {
		fmt.Fprintf(os.Stderr, "[%6.1fs] %s, %d frames kept\n",
			hb.Elapsed.Seconds(), hb.State, hb.FramesKept)
	}
	if heartbeat <= 0 {
		onHeartbeat = nil
	}

	res, runErr := orch.RunWatch(ctx, scope, cfg.WatchOpts, onHeartbeat)
	if res == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
	} else {
		fmt.Printf("session %s: kept %d frames (%d dropped), %d bytes in %s\n",
			res.SessionID, res.Stats.FramesKept, res.Stats.FramesDropped,
			res.Stats.TotalBytes, res.OutputDir)
		if res.Sheet != nil {
			fmt.Printf("contact sheet: %s (%dx%d tiles)\n",
				res.Sheet.Path, res.Sheet.Columns, res.Sheet.Rows)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: session ended early: %v\n", runErr)
		os.Exit(1)
	}
}
