package watch

import (
	"fmt"
	"time"

	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/sheet"
)

// Options configures one watch session. Values outside their allowed
// ranges are clamped once at session construction; only an impossible
// frame cap or an unknown strategy is rejected outright.
type Options struct {
	// Duration is the session wall-clock bound, clamped to [1s, 180s].
	Duration time.Duration

	// IdleFPS is the capture rate while calm, clamped to [0.1, 5].
	IdleFPS float64

	// ActiveFPS is the capture rate during activity, clamped to [0.5, 15].
	ActiveFPS float64

	// ChangeThresholdPercent is the changed-area percentage at or above
	// which a frame counts as a qualifying change, clamped to [0, 100].
	ChangeThresholdPercent float64

	// Heartbeat is the liveness-signal cadence; 0 disables heartbeats.
	Heartbeat time.Duration

	// QuietPeriod is the calm duration required before returning to the
	// idle rate.
	QuietPeriod time.Duration

	// MaxFrames is the kept-frame soft cap; must be at least 1.
	MaxFrames int

	// MaxMegabytes is the optional output byte budget in units of
	// 1_000_000 bytes; 0 disables it.
	MaxMegabytes float64

	// HighlightChanges overlays changed-region boxes on kept frames.
	HighlightChanges bool

	// ResolutionCap bounds the longest frame dimension before diffing
	// and storage.
	ResolutionCap int

	// Strategy selects the diff algorithm.
	Strategy diff.Strategy

	// DiffBudget bounds one quality comparison; 0 uses the engine
	// default. The fast strategy ignores it.
	DiffBudget time.Duration

	// SheetCapacity and SheetTileWidth tune the contact sheet; zero
	// values use the sheet defaults.
	SheetCapacity  int
	SheetTileWidth int
}

// DefaultOptions returns the defaults the CLI and server start from.
func DefaultOptions() Options {
	return Options{
		Duration:               30 * time.Second,
		IdleFPS:                1,
		ActiveFPS:              6,
		ChangeThresholdPercent: 2.0,
		QuietPeriod:            1500 * time.Millisecond,
		MaxFrames:              60,
		ResolutionCap:          1280,
		Strategy:               diff.StrategyFast,
		SheetCapacity:          sheet.DefaultCapacity,
		SheetTileWidth:         sheet.DefaultTileWidth,
	}
}

// validate rejects configurations that clamping cannot repair.
func (o Options) validate() error {
	if o.MaxFrames < 1 {
		return fmt.Errorf("maxFrames must be >= 1, got %d", o.MaxFrames)
	}
	switch o.Strategy {
	case diff.StrategyFast, diff.StrategyQuality, "":
	default:
		return fmt.Errorf("unknown diff strategy %q", o.Strategy)
	}
	return nil
}

// normalized clamps every field into its allowed range.
func (o Options) normalized() Options {
	o.Duration = clampDuration(o.Duration, time.Second, 180*time.Second)
	o.IdleFPS = clampFloat(o.IdleFPS, 0.1, 5)
	o.ActiveFPS = clampFloat(o.ActiveFPS, 0.5, 15)
	o.ChangeThresholdPercent = clampFloat(o.ChangeThresholdPercent, 0, 100)
	if o.Heartbeat < 0 {
		o.Heartbeat = 0
	}
	if o.QuietPeriod < 0 {
		o.QuietPeriod = 0
	}
	if o.MaxMegabytes < 0 {
		o.MaxMegabytes = 0
	}
	if o.ResolutionCap <= 0 {
		o.ResolutionCap = 1280
	}
	if o.Strategy == "" {
		o.Strategy = diff.StrategyFast
	}
	if o.SheetCapacity <= 0 {
		o.SheetCapacity = sheet.DefaultCapacity
	}
	if o.SheetTileWidth <= 0 {
		o.SheetTileWidth = sheet.DefaultTileWidth
	}
	return o
}

// maxBytes converts the megabyte budget into bytes; 0 means unlimited.
func (o Options) maxBytes() int64 {
	if o.MaxMegabytes <= 0 {
		return 0
	}
	return int64(o.MaxMegabytes * 1_000_000)
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
