// Package diff quantifies visual change between two frames. Two strategies
// are available: a coarse block comparison that always completes quickly,
// and a fine per-pixel comparison that runs under a time budget and falls
// back to the coarse strategy when the budget is exceeded.
package diff

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/logging"
)

// Strategy names a comparison algorithm.
type Strategy string

const (
	StrategyFast    Strategy = "fast"
	StrategyQuality Strategy = "quality"
)

// DefaultQualityBudget applies when a quality engine is configured without
// an explicit budget. The fast strategy is never budgeted; it is the
// fallback target and must always run to completion.
const DefaultQualityBudget = 50 * time.Millisecond

// errBudgetExceeded aborts a quality pass internally. It never escapes
// Compare; callers observe the fallback through Result.Algorithm.
var errBudgetExceeded = errors.New("diff budget exceeded")

// Result is the outcome of one frame comparison.
type Result struct {
	// ChangedFraction is the proportion of the compared area considered
	// changed, always within [0, 1].
	ChangedFraction float64

	// Regions are changed-area bounding boxes in the coordinate space of
	// the newer frame. Nil unless region collection was requested.
	Regions []image.Rectangle

	// Algorithm is the strategy that actually produced this result. It
	// differs from the requested strategy when a budget fallback occurred.
	Algorithm Strategy

	// Elapsed is the wall time of the pass that produced the result.
	Elapsed time.Duration
}

// Config tunes an Engine.
type Config struct {
	// Strategy selects the requested comparison algorithm.
	Strategy Strategy

	// Budget bounds one quality comparison. Zero means
	// DefaultQualityBudget; it is ignored by the fast strategy.
	Budget time.Duration

	// ResolutionCap bounds the longest dimension quality comparisons
	// operate at. Zero means 1280.
	ResolutionCap int

	// CollectRegions requests changed-region bounding boxes.
	CollectRegions bool
}

// DefaultConfig returns a fast engine without region collection.
func DefaultConfig() Config {
	return Config{Strategy: StrategyFast, ResolutionCap: 1280}
}

// Engine compares successive frames under one strategy.
type Engine struct {
	cfg    Config
	logger logging.Logger

	fastRuns    atomic.Uint64
	qualityRuns atomic.Uint64
	fallbacks   atomic.Uint64
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config, logger logging.Logger) (*Engine, error) {
	switch cfg.Strategy {
	case StrategyFast, StrategyQuality:
	case "":
		cfg.Strategy = StrategyFast
	default:
		return nil, fmt.Errorf("unknown diff strategy %q", cfg.Strategy)
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultQualityBudget
	}
	if cfg.ResolutionCap <= 0 {
		cfg.ResolutionCap = 1280
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Strategy returns the requested strategy.
func (e *Engine) Strategy() Strategy { return e.cfg.Strategy }

// ComparisonScale returns the longest-side resolution comparisons run at
// under the requested strategy.
func (e *Engine) ComparisonScale() int { return e.ScaleFor(e.cfg.Strategy) }

// ScaleFor returns the longest-side resolution the given strategy
// compares at. Callers reporting a session's effective scale should pass
// the strategy that actually ran, which differs from the requested one
// after budget fallbacks.
func (e *Engine) ScaleFor(st Strategy) int {
	if st == StrategyQuality {
		return e.cfg.ResolutionCap
	}
	return fastScale
}

// Fallbacks reports how many quality passes were aborted for budget and
// re-run under the fast strategy.
func (e *Engine) Fallbacks() uint64 { return e.fallbacks.Load() }

// Compare computes the change magnitude between prev and next. The only
// error it returns is context cancellation; budget exhaustion is handled
// internally by re-running the pair under the fast strategy.
func (e *Engine) Compare(ctx context.Context, prev, next *capture.Frame) (*Result, error) {
	if e.cfg.Strategy == StrategyQuality {
		res, err := e.compareQuality(ctx, prev, next)
		if err == nil {
			e.qualityRuns.Add(1)
			return res, nil
		}
		if !errors.Is(err, errBudgetExceeded) {
			return nil, err
		}
		// Budget blown: discard the partial pass entirely, including any
		// region boxes it accumulated, and redo the pair the cheap way.
		e.fallbacks.Add(1)
		if e.logger != nil {
			e.logger.Debug("quality diff exceeded budget, falling back to fast",
				logging.Field{Key: "budget", Value: e.cfg.Budget.String()},
				logging.Field{Key: "seq", Value: next.Seq})
		}
	}

	res, err := e.compareFast(ctx, prev, next)
	if err != nil {
		return nil, err
	}
	e.fastRuns.Add(1)
	return res, nil
}
