// Package sampling drives the capture cadence. A tiny two-state machine
// switches between a slow idle rate and a fast active rate based on diff
// results, and schedules the next capture so the configured rate is held
// regardless of how long capturing and diffing took.
package sampling

import (
	"time"

	"github.com/vigil-watch/vigil/internal/diff"
)

// State is the sampling cadence state.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Config tunes a Controller. Idle and active rates are independent
// targets; the controller behaves correctly even if IdleFPS > ActiveFPS.
type Config struct {
	// IdleFPS is the capture rate while the scene is calm.
	IdleFPS float64

	// ActiveFPS is the capture rate while changes are being observed.
	ActiveFPS float64

	// ThresholdPercent is the changed percentage (0..100) at or above
	// which a frame counts as a qualifying change.
	ThresholdPercent float64

	// QuietPeriod is the calm duration required before dropping back
	// from active to idle.
	QuietPeriod time.Duration

	// Heartbeat is the cadence for liveness signals, independent of
	// sampling state. Zero disables heartbeats.
	Heartbeat time.Duration
}

// Controller owns the idle/active state for one session. It is mutated
// only by the session loop; it is not safe for concurrent use.
type Controller struct {
	cfg           Config
	state         State
	lastChangeAt  time.Time
	lastHeartbeat time.Time
}

// NewController starts a controller in the idle state. startedAt anchors
// the heartbeat schedule.
func NewController(cfg Config, startedAt time.Time) *Controller {
	return &Controller{
		cfg:           cfg,
		state:         StateIdle,
		lastHeartbeat: startedAt,
	}
}

// State returns the current sampling state.
func (c *Controller) State() State { return c.state }

// LastSignificantChangeAt returns when the last qualifying change was
// observed; zero if none has been.
func (c *Controller) LastSignificantChangeAt() time.Time { return c.lastChangeAt }

// Observe feeds one diff result into the state machine and returns the
// resulting state. The threshold comparison is inclusive: a frame exactly
// at threshold counts as changed.
func (c *Controller) Observe(res *diff.Result, at time.Time) State {
	if res != nil && res.ChangedFraction >= c.cfg.ThresholdPercent/100.0 {
		c.state = StateActive
		c.lastChangeAt = at
		return c.state
	}

	if c.state == StateActive && !c.lastChangeAt.IsZero() &&
		at.Sub(c.lastChangeAt) >= c.cfg.QuietPeriod {
		c.state = StateIdle
	}
	return c.state
}

// Interval returns the full sampling interval for the current state.
func (c *Controller) Interval() time.Duration {
	fps := c.cfg.IdleFPS
	if c.state == StateActive {
		fps = c.cfg.ActiveFPS
	}
	if fps <= 0 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}

// NextDelay returns how long to sleep before the next capture, given when
// the current capture began. Time already spent this iteration is
// subtracted; the result never goes negative, so an over-budget iteration
// means "capture immediately".
func (c *Controller) NextDelay(iterStart, now time.Time) time.Duration {
	delay := c.Interval() - now.Sub(iterStart)
	if delay < 0 {
		return 0
	}
	return delay
}

// NextHeartbeatIn returns how long until the next heartbeat is due. The
// second return is false when heartbeats are disabled.
func (c *Controller) NextHeartbeatIn(now time.Time) (time.Duration, bool) {
	if c.cfg.Heartbeat <= 0 {
		return 0, false
	}
	d := c.cfg.Heartbeat - now.Sub(c.lastHeartbeat)
	if d < 0 {
		d = 0
	}
	return d, true
}

// HeartbeatDue reports whether a liveness signal should be emitted now,
// and advances the heartbeat schedule when it is. Heartbeats fire at their
// own cadence regardless of sampling state or kept frames.
func (c *Controller) HeartbeatDue(now time.Time) bool {
	if c.cfg.Heartbeat <= 0 {
		return false
	}
	if now.Sub(c.lastHeartbeat) >= c.cfg.Heartbeat {
		c.lastHeartbeat = now
		return true
	}
	return false
}
