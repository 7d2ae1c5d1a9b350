package app

import (
	"os"
	"path/filepath"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/retention"
	"github.com/vigil-watch/vigil/internal/watch"
)

// Config contains the runtime configuration shared by the CLI and the API
// server. Per-session knobs live in WatchOpts and can be overridden per
// job; everything else is process-wide.
type Config struct {
	// StorageRoot is the base path where session directories and the
	// registry database are kept. A leading ~ expands to the home dir.
	StorageRoot string

	// CaptureCfg selects and tunes the capture backend.
	CaptureCfg capture.Config

	// WatchOpts are the session defaults jobs start from.
	WatchOpts watch.Options

	// RetentionCfg tunes the clean sweep over old sessions.
	RetentionCfg retention.Config
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StorageRoot:  "~/.local/share/vigil",
		CaptureCfg:   capture.DefaultConfig(),
		WatchOpts:    watch.DefaultOptions(),
		RetentionCfg: retention.DefaultConfig(),
	}
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
