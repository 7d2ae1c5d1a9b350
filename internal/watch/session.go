// Package watch orchestrates one bounded capture session: a single
// cooperative loop that samples the frame source, diffs each capture
// against the last kept frame, lets the governor gate what is stored, and
// assembles a contact sheet at the end.
package watch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/govern"
	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/sampling"
	"github.com/vigil-watch/vigil/internal/sheet"
	"github.com/vigil-watch/vigil/internal/store"
)

// maxConsecutiveCaptureFailures is how many transient capture failures in
// a row escalate to a fatal capture condition.
const maxConsecutiveCaptureFailures = 3

// ErrCaptureFailed reports that the frame source failed repeatedly and the
// session ended early.
var ErrCaptureFailed = errors.New("frame source failed repeatedly")

// Session runs one watch over a scope. Construct with NewSession; a
// Session is good for exactly one Run.
type Session struct {
	id     string
	scope  capture.Scope
	opts   Options
	src    capture.FrameSource
	store  store.FrameStore
	engine *diff.Engine
	logger logging.Logger

	// OnHeartbeat, when set, receives liveness signals at the configured
	// cadence. It is called from the session loop and must not block.
	OnHeartbeat func(Heartbeat)
}

// NewSession validates and clamps opts and wires the diff engine. The
// frame source and store are injected so tests and alternative transports
// can substitute their own. The session takes its identity from the
// store's directory name, keeping the on-disk layout and any external
// index keyed the same way.
func NewSession(scope capture.Scope, opts Options, src capture.FrameSource, st store.FrameStore, logger logging.Logger) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid watch options: %w", err)
	}
	opts = opts.normalized()

	engine, err := diff.NewEngine(diff.Config{
		Strategy:       opts.Strategy,
		Budget:         opts.DiffBudget,
		ResolutionCap:  opts.ResolutionCap,
		CollectRegions: opts.HighlightChanges,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:     filepath.Base(st.Dir()),
		scope:  scope,
		opts:   opts,
		src:    src,
		store:  st,
		engine: engine,
		logger: logger,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run executes the capture loop until the duration elapses, a resource cap
// is reached, the context is canceled, or a fatal failure occurs. It
// always returns a Result; on fatal failure the Result holds the partial
// progress alongside the error.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(s.opts.Duration)

	ctrl := sampling.NewController(sampling.Config{
		IdleFPS:          s.opts.IdleFPS,
		ActiveFPS:        s.opts.ActiveFPS,
		ThresholdPercent: s.opts.ChangeThresholdPercent,
		QuietPeriod:      s.opts.QuietPeriod,
		Heartbeat:        s.opts.Heartbeat,
	}, start)

	gov, err := govern.New(s.opts.MaxFrames, s.opts.maxBytes())
	if err != nil {
		return nil, err
	}

	var (
		lastKept   *capture.Frame
		kept       []KeptFrame
		thumbs     = &thumbFrames{cap: s.opts.SheetTileWidth}
		algoCounts = map[diff.Strategy]int{}
		consFails  = 0
		fatalErr   error
	)

loop:
	for {
		if ctx.Err() != nil {
			break
		}
		iterStart := time.Now()
		if !iterStart.Before(deadline) {
			break
		}

		frame, err := s.src.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			consFails++
			if s.logger != nil {
				s.logger.Warn("transient capture failure",
					logging.Field{Key: "session_id", Value: s.id},
					logging.Field{Key: "consecutive", Value: consFails},
					logging.Field{Key: "error", Value: err.Error()})
			}
			if consFails >= maxConsecutiveCaptureFailures {
				fatalErr = fmt.Errorf("%w after %d attempts: %v", ErrCaptureFailed, consFails, err)
				break
			}
			// Failed ticks count toward neither kept nor dropped.
			if !s.sleep(ctx, ctrl, gov, iterStart, start) {
				break
			}
			continue
		}
		consFails = 0

		frame = capture.ScaleToCap(frame, s.opts.ResolutionCap)

		if lastKept == nil {
			// The first frame is always kept: it establishes the diff
			// baseline for the whole session.
			path, size, err := s.store.StoreFrame(frame, nil)
			if err != nil {
				fatalErr = fmt.Errorf("storing baseline frame: %w", err)
				break
			}
			capReached := gov.CommitBaseline(size)
			lastKept = frame
			kept = append(kept, KeptFrame{
				Seq: frame.Seq, Path: path, Bytes: size, Timestamp: frame.Timestamp,
			})
			thumbs.add(frame)
			if capReached {
				break loop
			}
		} else {
			res, err := s.engine.Compare(ctx, lastKept, frame)
			if err != nil {
				// Compare only fails on cancellation.
				break
			}
			algoCounts[res.Algorithm]++
			ctrl.Observe(res, time.Now())

			verdict := gov.Admit(estimatedEncodedSize(frame))
			if verdict.Keep {
				var regions []image.Rectangle
				if s.opts.HighlightChanges {
					regions = res.Regions
				}
				path, size, err := s.store.StoreFrame(frame, regions)
				if err != nil {
					fatalErr = fmt.Errorf("storing frame %d: %w", frame.Seq, err)
					break
				}
				// Settle the admitted estimate against the real encoded
				// size; a commit rejection means the byte budget would be
				// breached and the file has to go.
				verdict = gov.Commit(size)
				if verdict.Keep {
					lastKept = frame
					kept = append(kept, KeptFrame{
						Seq:             frame.Seq,
						Path:            path,
						Bytes:           size,
						ChangedFraction: res.ChangedFraction,
						Timestamp:       frame.Timestamp,
					})
					thumbs.add(frame)
				} else if derr := s.store.Discard(path); derr != nil && s.logger != nil {
					s.logger.Warn("failed to discard over-budget frame",
						logging.Field{Key: "session_id", Value: s.id},
						logging.Field{Key: "path", Value: path},
						logging.Field{Key: "error", Value: derr.Error()})
				}
			}
			if verdict.Stop {
				break loop
			}
		}

		if !s.sleep(ctx, ctrl, gov, iterStart, start) {
			break
		}
	}

	return s.finish(start, ctrl, gov, kept, thumbs, algoCounts, fatalErr)
}

// sleep waits out the sampling interval, waking early to emit heartbeats.
// It returns false when the context was canceled.
func (s *Session) sleep(ctx context.Context, ctrl *sampling.Controller, gov *govern.Governor, iterStart, start time.Time) bool {
	captureAt := iterStart.Add(ctrl.NextDelay(iterStart, iterStart))
	for {
		now := time.Now()
		if ctrl.HeartbeatDue(now) {
			s.emitHeartbeat(ctrl, gov, now.Sub(start))
		}
		remain := captureAt.Sub(now)
		if remain <= 0 {
			return true
		}
		wait := remain
		if hb, ok := ctrl.NextHeartbeatIn(now); ok && hb < wait {
			wait = hb
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (s *Session) emitHeartbeat(ctrl *sampling.Controller, gov *govern.Governor, elapsed time.Duration) {
	if s.OnHeartbeat == nil {
		return
	}
	s.OnHeartbeat(Heartbeat{
		SessionID:  s.id,
		FramesKept: gov.Stats().FramesKept,
		State:      ctrl.State(),
		Elapsed:    elapsed,
	})
}

// finish assembles the contact sheet and builds the terminal Result. It
// runs on every exit path, fatal or not, so callers always receive a
// usable record of whatever was kept.
func (s *Session) finish(start time.Time, ctrl *sampling.Controller, gov *govern.Governor,
	kept []KeptFrame, thumbs *thumbFrames, algoCounts map[diff.Strategy]int, fatalErr error) (*Result, error) {

	govStats := gov.Stats()
	algo := dominantAlgorithm(algoCounts, s.engine.Strategy())
	result := &Result{
		SessionID: s.id,
		Scope:     s.scope.String(),
		Kept:      kept,
		Stats: Stats{
			FramesKept:    govStats.FramesKept,
			FramesDropped: govStats.FramesDropped,
			TotalBytes:    govStats.TotalBytes,
		},
		StartedAt:     start,
		EndedAt:       time.Now(),
		DiffAlgorithm: algo,
		DiffScale:     s.engine.ScaleFor(algo),
		OutputDir:     s.store.Dir(),
	}

	if sh := sheet.Assemble(thumbs.frames, sheet.Config{
		Capacity:  s.opts.SheetCapacity,
		TileWidth: s.opts.SheetTileWidth,
	}); sh != nil {
		path, size, err := s.store.StoreSheet(sh.Image)
		if err != nil {
			if fatalErr == nil {
				fatalErr = fmt.Errorf("storing contact sheet: %w", err)
			} else if s.logger != nil {
				s.logger.Error("failed to store contact sheet after fatal error",
					logging.Field{Key: "session_id", Value: s.id},
					logging.Field{Key: "error", Value: err.Error()})
			}
		} else {
			result.Sheet = &SheetInfo{
				Path:           path,
				Columns:        sh.Columns,
				Rows:           sh.Rows,
				SampledIndexes: sh.SampledIndexes,
				Bytes:          size,
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("watch session finished",
			logging.Field{Key: "session_id", Value: s.id},
			logging.Field{Key: "frames_kept", Value: result.Stats.FramesKept},
			logging.Field{Key: "frames_dropped", Value: result.Stats.FramesDropped},
			logging.Field{Key: "total_bytes", Value: result.Stats.TotalBytes},
			logging.Field{Key: "state", Value: string(ctrl.State())},
			logging.Field{Key: "diff_algorithm", Value: string(result.DiffAlgorithm)})
	}

	return result, fatalErr
}

// estimatedEncodedSize approximates the stored size of a frame before
// encoding. PNG typically compresses screen content well below a quarter
// of the raw RGBA bytes; the governor re-checks against real sizes after
// each store, so the byte ceiling holds even when the estimate is off.
func estimatedEncodedSize(f *capture.Frame) int64 {
	return int64(len(f.Data)) / 4
}
