// Package store persists kept frames and the contact sheet for one
// session. The encoding format is the store's business, not the engine's;
// this implementation writes PNG.
package store

import (
	"image"

	"github.com/vigil-watch/vigil/internal/capture"
)

// FrameStore is the persistence collaborator for a watch session. A write
// failure is session-fatal: the loop aborts with a partial result.
type FrameStore interface {
	// StoreFrame persists a kept frame, optionally overlaying the given
	// changed-region boxes, and returns the path and encoded size.
	StoreFrame(f *capture.Frame, regions []image.Rectangle) (path string, size int64, err error)

	// StoreSheet persists the contact-sheet image.
	StoreSheet(img image.Image) (path string, size int64, err error)

	// Discard removes a frame previously written by StoreFrame, for when
	// its real encoded size loses against the byte budget.
	Discard(path string) error

	// Dir returns the session output directory.
	Dir() string
}
