package diff

import (
	"context"
	"image"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
)

const (
	// fastScale is the longest side both frames are downsampled to
	// before the block comparison.
	fastScale = 128

	// fastBlock is the comparison block edge in downsampled pixels.
	fastBlock = 8

	// fastBlockDelta is the mean-intensity difference (0..255) at which
	// a block counts as changed.
	fastBlockDelta = 12.0
)

// compareFast downsamples both frames to a small common scale and flags
// 8x8 blocks whose mean intensity moved. It has no budget; its cost is
// fixed by fastScale regardless of frame size.
func (e *Engine) compareFast(ctx context.Context, prev, next *capture.Frame) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	w, h := scaledDims(next.Width, next.Height, fastScale)
	a := capture.Resample(prev.RGBA(), w, h)
	b := capture.Resample(next.RGBA(), w, h)

	cols := (w + fastBlock - 1) / fastBlock
	rows := (h + fastBlock - 1) / fastBlock

	var changed int
	var marked []bool
	if e.cfg.CollectRegions {
		marked = make([]bool, cols*rows)
	}

	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			x0, y0 := bx*fastBlock, by*fastBlock
			x1, y1 := min(x0+fastBlock, w), min(y0+fastBlock, h)

			var sumA, sumB, n int64
			for y := y0; y < y1; y++ {
				offA := a.PixOffset(x0, y)
				offB := b.PixOffset(x0, y)
				for x := x0; x < x1; x++ {
					sumA += int64(a.Pix[offA]) + int64(a.Pix[offA+1]) + int64(a.Pix[offA+2])
					sumB += int64(b.Pix[offB]) + int64(b.Pix[offB+1]) + int64(b.Pix[offB+2])
					offA += 4
					offB += 4
					n++
				}
			}

			delta := float64(sumA-sumB) / float64(3*n)
			if delta < 0 {
				delta = -delta
			}
			if delta >= fastBlockDelta {
				changed++
				if marked != nil {
					marked[by*cols+bx] = true
				}
			}
		}
	}

	res := &Result{
		ChangedFraction: float64(changed) / float64(cols*rows),
		Algorithm:       StrategyFast,
		Elapsed:         time.Since(start),
	}

	if marked != nil && changed > 0 {
		// Cheap accumulation: one bounding box over all flagged blocks.
		box := image.Rectangle{}
		first := true
		for by := 0; by < rows; by++ {
			for bx := 0; bx < cols; bx++ {
				if !marked[by*cols+bx] {
					continue
				}
				r := image.Rect(bx*fastBlock, by*fastBlock,
					min((bx+1)*fastBlock, w), min((by+1)*fastBlock, h))
				if first {
					box = r
					first = false
				} else {
					box = box.Union(r)
				}
			}
		}
		res.Regions = []image.Rectangle{scaleRect(box, w, h, next.Width, next.Height)}
	}

	return res, nil
}

// scaledDims shrinks (w, h) so the longest side equals cap, preserving
// aspect ratio. Dimensions already within cap are returned unchanged.
func scaledDims(w, h, cap int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= cap {
		return w, h
	}
	sw, sh := w*cap/longest, h*cap/longest
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// scaleRect maps r from a (sw, sh) space back into (dw, dh) frame
// coordinates.
func scaleRect(r image.Rectangle, sw, sh, dw, dh int) image.Rectangle {
	out := image.Rect(
		r.Min.X*dw/sw,
		r.Min.Y*dh/sh,
		(r.Max.X*dw+sw-1)/sw,
		(r.Max.Y*dh+sh-1)/sh,
	)
	return out.Intersect(image.Rect(0, 0, dw, dh))
}
