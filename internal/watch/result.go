package watch

import (
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/sampling"
)

// Stats is the per-session accounting surfaced to callers. Dropped frames
// are candidates the governor rejected; ticks where capture failed
// transiently count toward neither.
type Stats struct {
	FramesKept    int   `json:"frames_kept"`
	FramesDropped int   `json:"frames_dropped"`
	TotalBytes    int64 `json:"total_bytes"`
}

// KeptFrame references one stored frame.
type KeptFrame struct {
	Seq             uint64    `json:"seq"`
	Path            string    `json:"path"`
	Bytes           int64     `json:"bytes"`
	ChangedFraction float64   `json:"changed_fraction"`
	Timestamp       time.Time `json:"timestamp"`
}

// SheetInfo describes the stored contact sheet.
type SheetInfo struct {
	Path           string `json:"path"`
	Columns        int    `json:"columns"`
	Rows           int    `json:"rows"`
	SampledIndexes []int  `json:"sampled_indexes"`
	Bytes          int64  `json:"bytes"`
}

// Result is the terminal record of a session. It is created once, at
// normal or early termination, and never mutated afterward. Even a fatal
// session produces one, holding whatever was kept before the failure.
type Result struct {
	SessionID string        `json:"session_id"`
	Scope     string        `json:"scope"`
	Kept      []KeptFrame   `json:"kept"`
	Sheet     *SheetInfo    `json:"sheet,omitempty"`
	Stats     Stats         `json:"stats"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`

	// DiffAlgorithm is the algorithm that produced the most results over
	// the session; DiffScale is the longest-side resolution comparisons
	// ran at.
	DiffAlgorithm diff.Strategy `json:"diff_algorithm"`
	DiffScale     int           `json:"diff_scale"`

	// OutputDir is where frames and the sheet were written.
	OutputDir string `json:"output_dir"`
}

// Heartbeat is the periodic liveness signal emitted while a session runs.
type Heartbeat struct {
	SessionID  string         `json:"session_id"`
	FramesKept int            `json:"frames_kept"`
	State      sampling.State `json:"state"`
	Elapsed    time.Duration  `json:"elapsed"`
}

// dominantAlgorithm picks the strategy that produced the most diff
// results, falling back to the requested one when no diffs ran.
func dominantAlgorithm(counts map[diff.Strategy]int, requested diff.Strategy) diff.Strategy {
	best := requested
	bestCount := 0
	for algo, n := range counts {
		if n > bestCount {
			best, bestCount = algo, n
		}
	}
	return best
}

// thumbFrames is a helper bundling the downsized copies retained for the
// contact sheet so full-resolution kept frames do not pile up in memory.
type thumbFrames struct {
	frames []*capture.Frame
	cap    int
}

func (t *thumbFrames) add(f *capture.Frame) {
	t.frames = append(t.frames, capture.ScaleToCap(f, t.cap))
}
