package diff

import (
	"context"
	"image"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
)

const (
	// qualityPixelDelta is the perceptual luma difference (0..255) at
	// which a pixel counts as changed.
	qualityPixelDelta = 20.0

	// qualityTile is the tile edge used for region-box accumulation.
	qualityTile = 16

	// deadlineCheckRows is how many scan lines are processed between
	// budget and cancellation checks.
	deadlineCheckRows = 16
)

// compareQuality runs a per-pixel perceptually weighted comparison at up to
// the configured resolution cap. The scan checks its deadline every few
// rows so a blown budget aborts mid-computation instead of after the fact;
// on abort everything accumulated so far is thrown away.
func (e *Engine) compareQuality(ctx context.Context, prev, next *capture.Frame) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	deadline := start.Add(e.cfg.Budget)

	w, h := scaledDims(next.Width, next.Height, e.cfg.ResolutionCap)
	a := resampleIfNeeded(prev.RGBA(), w, h)
	b := resampleIfNeeded(next.RGBA(), w, h)

	tileCols := (w + qualityTile - 1) / qualityTile
	tileRows := (h + qualityTile - 1) / qualityTile

	var marked []bool
	if e.cfg.CollectRegions {
		marked = make([]bool, tileCols*tileRows)
	}

	var changed int64
	for y := 0; y < h; y++ {
		if y%deadlineCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if time.Now().After(deadline) {
				return nil, errBudgetExceeded
			}
		}

		offA := a.PixOffset(0, y)
		offB := b.PixOffset(0, y)
		tileRow := (y / qualityTile) * tileCols
		for x := 0; x < w; x++ {
			// Perceptual weighting: green dominates perceived change.
			lumaA := 0.299*float64(a.Pix[offA]) + 0.587*float64(a.Pix[offA+1]) + 0.114*float64(a.Pix[offA+2])
			lumaB := 0.299*float64(b.Pix[offB]) + 0.587*float64(b.Pix[offB+1]) + 0.114*float64(b.Pix[offB+2])
			offA += 4
			offB += 4

			delta := lumaA - lumaB
			if delta < 0 {
				delta = -delta
			}
			if delta >= qualityPixelDelta {
				changed++
				if marked != nil {
					marked[tileRow+x/qualityTile] = true
				}
			}
		}
	}

	res := &Result{
		ChangedFraction: float64(changed) / float64(int64(w)*int64(h)),
		Algorithm:       StrategyQuality,
		Elapsed:         time.Since(start),
	}
	if marked != nil {
		boxes := tilesToBoxes(marked, tileCols, tileRows, qualityTile, w, h)
		for i, box := range boxes {
			boxes[i] = scaleRect(box, w, h, next.Width, next.Height)
		}
		res.Regions = boxes
	}
	return res, nil
}

func resampleIfNeeded(img *image.RGBA, w, h int) *image.RGBA {
	if img.Rect.Dx() == w && img.Rect.Dy() == h {
		return img
	}
	return capture.Resample(img, w, h)
}
