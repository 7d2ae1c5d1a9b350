// Package sheet composes a session's kept frames into one contact-sheet
// grid image for quick visual review.
package sheet

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/vigil-watch/vigil/internal/capture"
)

// DefaultCapacity is the maximum number of tiles on a sheet.
const DefaultCapacity = 36

// DefaultTileWidth is the tile width in pixels; tile height follows the
// first frame's aspect ratio.
const DefaultTileWidth = 320

// Config tunes the assembler.
type Config struct {
	Capacity  int
	TileWidth int
}

// DefaultConfig returns a 36-tile sheet with 320px tiles.
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, TileWidth: DefaultTileWidth}
}

// Sheet is the composed grid image plus the selection that produced it.
type Sheet struct {
	Image   *image.RGBA
	Columns int
	Rows    int

	// SampledIndexes are the positions (within the kept-frame sequence)
	// of the frames composited onto the sheet, in capture order.
	SampledIndexes []int
}

// SampleIndexes picks which of n kept frames go onto a sheet of the given
// capacity. Within capacity every frame is used; beyond it the sequence is
// sampled evenly, always including the first and last frame so temporal
// coverage is preserved instead of truncating to the earliest frames.
func SampleIndexes(n, capacity int) []int {
	if n <= 0 {
		return nil
	}
	if capacity < 1 {
		capacity = 1
	}
	if n <= capacity {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	out := make([]int, 0, capacity)
	last := -1
	for i := 0; i < capacity; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(capacity-1)))
		if idx == last {
			continue
		}
		out = append(out, idx)
		last = idx
	}
	return out
}

// GridShape returns the (columns, rows) for n tiles, keeping the grid as
// square as practical.
func GridShape(n int) (int, int) {
	if n <= 0 {
		return 0, 0
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	return cols, rows
}

// Assemble builds the contact sheet from the kept frames, in capture
// order, left-to-right then top-to-bottom. Zero frames yields nil (absent
// sheet, not an error); one frame yields a 1x1 grid.
func Assemble(frames []*capture.Frame, cfg Config) *Sheet {
	if len(frames) == 0 {
		return nil
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.TileWidth <= 0 {
		cfg.TileWidth = DefaultTileWidth
	}

	indexes := SampleIndexes(len(frames), cfg.Capacity)
	cols, rows := GridShape(len(indexes))

	tileW := cfg.TileWidth
	first := frames[indexes[0]]
	tileH := tileW * first.Height / first.Width
	if tileH < 1 {
		tileH = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, cols*tileW, rows*tileH))
	draw.Draw(img, img.Rect, &image.Uniform{color.Black}, image.Point{}, draw.Src)

	for i, idx := range indexes {
		f := frames[idx]
		cell := image.Rect(
			(i%cols)*tileW,
			(i/cols)*tileH,
			(i%cols+1)*tileW,
			(i/cols+1)*tileH,
		)
		// Letterbox frames whose aspect differs from the tile.
		fw, fh := fitWithin(f.Width, f.Height, tileW, tileH)
		dst := image.Rect(0, 0, fw, fh).Add(image.Point{
			X: cell.Min.X + (tileW-fw)/2,
			Y: cell.Min.Y + (tileH-fh)/2,
		})
		src := f.RGBA()
		xdraw.ApproxBiLinear.Scale(img, dst, src, src.Rect, xdraw.Src, nil)
	}

	return &Sheet{
		Image:          img,
		Columns:        cols,
		Rows:           rows,
		SampledIndexes: indexes,
	}
}

func fitWithin(w, h, maxW, maxH int) (int, int) {
	fw, fh := maxW, h*maxW/w
	if fh > maxH {
		fh = maxH
		fw = w * maxH / h
	}
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	return fw, fh
}
