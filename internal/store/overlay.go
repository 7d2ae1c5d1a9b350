package store

import (
	"image"
	"image/color"
)

var overlayColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}

// overlayRegions copies the image and draws a 2px box around each changed
// region. The copy keeps the caller's frame pixels untouched, since kept
// frames are still the diff baseline for later iterations.
func overlayRegions(src *image.RGBA, regions []image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)

	for _, r := range regions {
		r = r.Intersect(dst.Rect)
		if r.Empty() {
			continue
		}
		for t := 0; t < 2; t++ {
			drawHLine(dst, r.Min.X, r.Max.X, r.Min.Y+t)
			drawHLine(dst, r.Min.X, r.Max.X, r.Max.Y-1-t)
			drawVLine(dst, r.Min.X+t, r.Min.Y, r.Max.Y)
			drawVLine(dst, r.Max.X-1-t, r.Min.Y, r.Max.Y)
		}
	}
	return dst
}

func drawHLine(img *image.RGBA, x0, x1, y int) {
	if y < img.Rect.Min.Y || y >= img.Rect.Max.Y {
		return
	}
	for x := x0; x < x1; x++ {
		img.SetRGBA(x, y, overlayColor)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int) {
	if x < img.Rect.Min.X || x >= img.Rect.Max.X {
		return
	}
	for y := y0; y < y1; y++ {
		img.SetRGBA(x, y, overlayColor)
	}
}
