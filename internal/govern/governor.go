// Package govern enforces the session's soft resource caps: a maximum
// kept-frame count and an optional total byte budget. Breaching a cap ends
// the session gracefully, never with an error.
package govern

import (
	"fmt"
)

// Verdict is the governor's decision for one candidate frame.
type Verdict struct {
	// Keep reports whether the candidate may be stored.
	Keep bool

	// Stop signals that a cap has been reached and the capture loop
	// should terminate gracefully after this iteration.
	Stop bool
}

// Stats is a read-only view of the governor's accounting.
type Stats struct {
	FramesKept    int
	FramesDropped int
	TotalBytes    int64
}

// Governor tracks cumulative frame count and byte size. It is mutated only
// by the session loop; it is not safe for concurrent use.
type Governor struct {
	maxFrames int
	maxBytes  int64 // 0 = unlimited

	framesKept    int
	framesDropped int
	totalBytes    int64
}

// New returns a Governor. maxFrames must be at least 1; maxBytes of 0
// disables the byte budget.
func New(maxFrames int, maxBytes int64) (*Governor, error) {
	if maxFrames < 1 {
		return nil, fmt.Errorf("maxFrames must be >= 1, got %d", maxFrames)
	}
	if maxBytes < 0 {
		return nil, fmt.Errorf("maxBytes must be >= 0, got %d", maxBytes)
	}
	return &Governor{maxFrames: maxFrames, maxBytes: maxBytes}, nil
}

// Admit decides whether a candidate frame with the given estimated encoded
// size may be kept. A rejected candidate is counted as dropped and raises
// the stop signal, since a full cap can only stay full.
func (g *Governor) Admit(estimatedSize int64) Verdict {
	if g.framesKept >= g.maxFrames {
		g.framesDropped++
		return Verdict{Stop: true}
	}
	if g.maxBytes > 0 && g.totalBytes+estimatedSize > g.maxBytes {
		g.framesDropped++
		return Verdict{Stop: true}
	}
	return Verdict{Keep: true}
}

// Commit settles an admitted frame once its real stored size is known.
// The estimate that passed Admit can undershoot the encoded size, so the
// byte budget is checked again here: a frame whose real size would push
// the total past the budget is not kept after all, and the verdict tells
// the caller to discard the stored file. A kept frame raises the stop
// signal once it fills the frame cap.
func (g *Governor) Commit(actualSize int64) Verdict {
	if g.maxBytes > 0 && g.totalBytes+actualSize > g.maxBytes {
		g.framesDropped++
		return Verdict{Stop: true}
	}
	g.framesKept++
	g.totalBytes += actualSize
	return Verdict{Keep: true, Stop: g.framesKept >= g.maxFrames}
}

// CommitBaseline records the unconditional first frame. The baseline
// bypasses Admit and the byte budget: it establishes the reference every
// later diff is computed against, so it is kept even under a zero-sized
// byte budget. It returns true when the baseline alone fills the frame
// cap.
func (g *Governor) CommitBaseline(actualSize int64) bool {
	g.framesKept++
	g.totalBytes += actualSize
	return g.framesKept >= g.maxFrames
}

// Stats returns the current accounting.
func (g *Governor) Stats() Stats {
	return Stats{
		FramesKept:    g.framesKept,
		FramesDropped: g.framesDropped,
		TotalBytes:    g.totalBytes,
	}
}
