// Package testutil provides shared test doubles for use across package
// tests. All dummies implement the corresponding interfaces from the
// production code, allowing injection into components under test without
// real displays, browsers, or disk I/O.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Frames ────────────────────────────────────────────────────────────

// SolidFrame returns a w x h frame filled with one color.
func SolidFrame(w, h int, c color.RGBA, seq uint64) *capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, &image.Uniform{c}, image.Point{}, draw.Src)
	f := capture.FromImage(img, time.Now(), seq)
	return f
}

// FrameWithBlock returns a dark frame with a bright block covering the
// given rectangle, useful for producing a known changed fraction.
func FrameWithBlock(w, h int, block image.Rectangle, seq uint64) *capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, &image.Uniform{color.RGBA{A: 255}}, image.Point{}, draw.Src)
	draw.Draw(img, block, &image.Uniform{color.RGBA{R: 255, G: 255, B: 255, A: 255}}, image.Point{}, draw.Src)
	f := capture.FromImage(img, time.Now(), seq)
	return f
}

// ─── FrameSource ───────────────────────────────────────────────────────

// ScriptedSource implements capture.FrameSource from a render function.
// Render receives the capture sequence number and the time since the
// first capture; returning nil makes that tick fail.
type ScriptedSource struct {
	Render func(seq uint64, elapsed time.Duration) *capture.Frame

	// FailAll makes every capture fail.
	FailAll bool

	mu    sync.Mutex
	seq   uint64
	start time.Time

	Captures int
	Closed   bool
}

// NewStaticSource returns a source producing identical frames forever.
func NewStaticSource(w, h int) *ScriptedSource {
	base := color.RGBA{R: 30, G: 30, B: 30, A: 255}
	return &ScriptedSource{
		Render: func(seq uint64, _ time.Duration) *capture.Frame {
			return SolidFrame(w, h, base, seq)
		},
	}
}

// NewActivatingSource returns a source whose frames start changing after
// the given offset: a bright block moves on every capture from then on.
func NewActivatingSource(w, h int, after time.Duration) *ScriptedSource {
	return &ScriptedSource{
		Render: func(seq uint64, elapsed time.Duration) *capture.Frame {
			if elapsed < after {
				return SolidFrame(w, h, color.RGBA{R: 30, G: 30, B: 30, A: 255}, seq)
			}
			side := w / 3
			x := (int(seq) * side / 2) % (w - side)
			return FrameWithBlock(w, h, image.Rect(x, 0, x+side, side), seq)
		},
	}
}

func (s *ScriptedSource) Capture(ctx context.Context) (*capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.start.IsZero() {
		s.start = time.Now()
	}
	s.Captures++

	if s.FailAll {
		return nil, errors.New("scripted capture failure")
	}

	f := s.Render(s.seq, time.Since(s.start))
	if f == nil {
		return nil, fmt.Errorf("scripted capture failure at seq %d", s.seq)
	}
	f.Seq = s.seq
	s.seq++
	return f, nil
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// ─── FrameStore ────────────────────────────────────────────────────────

// StoredFrame records one StoreFrame call.
type StoredFrame struct {
	Seq     uint64
	Regions int
}

// RecordingStore implements store.FrameStore in memory. Every frame
// reports FrameSize bytes (default 1000).
type RecordingStore struct {
	FrameSize int64

	// FailWrites makes every store call fail, for exercising the
	// session-fatal write path.
	FailWrites bool

	mu        sync.Mutex
	Frames    []StoredFrame
	Sheets    int
	Discarded int
}

func (r *RecordingStore) size() int64 {
	if r.FrameSize > 0 {
		return r.FrameSize
	}
	return 1000
}

func (r *RecordingStore) StoreFrame(f *capture.Frame, regions []image.Rectangle) (string, int64, error) {
	if r.FailWrites {
		return "", 0, errors.New("recording store write failure")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, StoredFrame{Seq: f.Seq, Regions: len(regions)})
	return fmt.Sprintf("/dev/null/frame_%06d.png", f.Seq), r.size(), nil
}

func (r *RecordingStore) Discard(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Discarded++
	if n := len(r.Frames); n > 0 {
		r.Frames = r.Frames[:n-1]
	}
	return nil
}

func (r *RecordingStore) StoreSheet(img image.Image) (string, int64, error) {
	if r.FailWrites {
		return "", 0, errors.New("recording store write failure")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sheets++
	return "/dev/null/sheet.png", r.size(), nil
}

func (r *RecordingStore) Dir() string { return "/dev/null" }
