package capture

import "time"

// Config selects and tunes the capture backend for a session.
type Config struct {
	// Backend forces a specific backend name. Empty selects by scope
	// (page scopes use "page", everything else "screen").
	Backend string

	// PageIdleAfter is how long the page backend waits for network
	// silence after navigation before considering the page settled.
	PageIdleAfter time.Duration

	// Headless controls whether the page backend runs the browser
	// without a visible window.
	Headless bool
}

// DefaultConfig returns capture defaults suitable for unattended use.
func DefaultConfig() Config {
	return Config{
		PageIdleAfter: 2 * time.Second,
		Headless:      true,
	}
}
