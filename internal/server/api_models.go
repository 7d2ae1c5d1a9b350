package server

import (
	"time"

	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/watch"
)

// WatchRequest is the body of POST /watch and the query surface of the
// watch websocket. Zero-valued fields fall back to the server's session
// defaults; out-of-range values are clamped by the session itself.
type WatchRequest struct {
	// Scope is the capture target, e.g. "frontmost", "screen:0",
	// "region:0,0,800,600" or "page:https://example.com".
	Scope string `json:"scope"`

	DurationSeconds        float64 `json:"duration_seconds,omitempty"`
	IdleFPS                float64 `json:"idle_fps,omitempty"`
	ActiveFPS              float64 `json:"active_fps,omitempty"`
	ChangeThresholdPercent float64 `json:"change_threshold_percent,omitempty"`
	HeartbeatSeconds       float64 `json:"heartbeat_seconds,omitempty"`
	QuietPeriodSeconds     float64 `json:"quiet_period_seconds,omitempty"`
	MaxFrames              int     `json:"max_frames,omitempty"`
	MaxMegabytes           float64 `json:"max_megabytes,omitempty"`
	HighlightChanges       bool    `json:"highlight_changes,omitempty"`
	Strategy               string  `json:"strategy,omitempty"`
	DiffBudgetMS           int     `json:"diff_budget_ms,omitempty"`
}

// toOptions merges the request over the configured defaults.
func (r WatchRequest) toOptions(defaults watch.Options) watch.Options {
	opts := defaults
	if r.DurationSeconds > 0 {
		opts.Duration = time.Duration(r.DurationSeconds * float64(time.Second))
	}
	if r.IdleFPS > 0 {
		opts.IdleFPS = r.IdleFPS
	}
	if r.ActiveFPS > 0 {
		opts.ActiveFPS = r.ActiveFPS
	}
	if r.ChangeThresholdPercent > 0 {
		opts.ChangeThresholdPercent = r.ChangeThresholdPercent
	}
	if r.HeartbeatSeconds > 0 {
		opts.Heartbeat = time.Duration(r.HeartbeatSeconds * float64(time.Second))
	}
	if r.QuietPeriodSeconds > 0 {
		opts.QuietPeriod = time.Duration(r.QuietPeriodSeconds * float64(time.Second))
	}
	if r.MaxFrames > 0 {
		opts.MaxFrames = r.MaxFrames
	}
	if r.MaxMegabytes > 0 {
		opts.MaxMegabytes = r.MaxMegabytes
	}
	if r.HighlightChanges {
		opts.HighlightChanges = true
	}
	if r.Strategy != "" {
		opts.Strategy = diff.Strategy(r.Strategy)
	}
	if r.DiffBudgetMS > 0 {
		opts.DiffBudget = time.Duration(r.DiffBudgetMS) * time.Millisecond
	}
	return opts
}

// CleanRequest is the body of POST /clean.
type CleanRequest struct {
	MaxAgeHours float64 `json:"max_age_hours,omitempty"`
	DryRun      bool    `json:"dry_run,omitempty"`
}
