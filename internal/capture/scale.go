package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// Resample scales src to w x h using a bilinear kernel. The kernel is cheap
// enough to run per tick yet avoids the blockiness of nearest-neighbor,
// which matters because diff results are computed on resampled pixels.
func Resample(src *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return dst
}

// ScaleToCap downsizes the frame so its longest dimension does not exceed
// maxDim, preserving aspect ratio. Frames already within the cap are
// returned unchanged. maxDim <= 0 disables capping.
func ScaleToCap(f *Frame, maxDim int) *Frame {
	if maxDim <= 0 {
		return f
	}
	longest := f.Width
	if f.Height > longest {
		longest = f.Height
	}
	if longest <= maxDim {
		return f
	}

	w := f.Width * maxDim / longest
	h := f.Height * maxDim / longest
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	scaled := Resample(f.RGBA(), w, h)
	return &Frame{
		Data:      scaled.Pix,
		Width:     w,
		Height:    h,
		Timestamp: f.Timestamp,
		Seq:       f.Seq,
		Label:     f.Label,
	}
}
