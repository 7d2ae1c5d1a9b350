// Package capture defines the frame model, the watch scope, and the
// pluggable frame sources that retrieve raw pixels for a scope.
package capture

import (
	"image"
	"image/draw"
	"time"
)

// Frame is one captured image. Data holds RGBA pixels, row-major with a
// stride of 4*Width. Whoever produced a Frame must not modify Data after
// handing it to the next stage.
type Frame struct {
	Data   []byte
	Width  int
	Height int

	// Timestamp is the capture time reported by the source.
	Timestamp time.Time

	// Seq increases monotonically per source, including for frames that
	// are later discarded, so a dropped frame leaves a visible gap.
	Seq uint64

	// Label is an optional human-readable tag for the frame origin
	// (display number, page title).
	Label string
}

// RGBA wraps the frame pixels as an *image.RGBA without copying.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Data,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Bounds returns the pixel rectangle of the frame.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// FromImage converts any image into a Frame, copying pixels only when the
// source is not already a zero-origin RGBA image.
func FromImage(img image.Image, at time.Time, seq uint64) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*w {
		return &Frame{Data: rgba.Pix, Width: w, Height: h, Timestamp: at, Seq: seq}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return &Frame{Data: dst.Pix, Width: w, Height: h, Timestamp: at, Seq: seq}
}
