package capture

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"
	"time"
)

// SyntheticSource generates deterministic frames without touching any
// display. It renders a flat background and, once ActiveAfter has elapsed,
// a block that moves a little on every capture. It backs demos and tests
// the way a fixture page would.
type SyntheticSource struct {
	Width  int
	Height int

	// ActiveAfter is the offset from the first capture at which frames
	// start changing. Zero means the scene never changes.
	ActiveAfter time.Duration

	start time.Time
	seq   atomic.Uint64
}

// NewSyntheticSource returns a source producing w x h frames.
func NewSyntheticSource(w, h int, activeAfter time.Duration) *SyntheticSource {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 400
	}
	return &SyntheticSource{Width: w, Height: h, ActiveAfter: activeAfter}
}

func (s *SyntheticSource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	if s.start.IsZero() {
		s.start = now
	}
	seq := s.seq.Add(1) - 1

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Rect, &image.Uniform{color.RGBA{R: 40, G: 40, B: 48, A: 255}}, image.Point{}, draw.Src)

	if s.ActiveAfter > 0 && now.Sub(s.start) >= s.ActiveAfter {
		side := s.Width / 5
		step := int(seq) * side / 2
		x := step % (s.Width - side)
		y := (step / 3) % (s.Height - side)
		block := image.Rect(x, y, x+side, y+side)
		draw.Draw(img, block, &image.Uniform{color.RGBA{R: 220, G: 90, B: 40, A: 255}}, image.Point{}, draw.Src)
	}

	f := FromImage(img, now, seq)
	f.Label = "synthetic"
	return f, nil
}

func (s *SyntheticSource) Close() error { return nil }
