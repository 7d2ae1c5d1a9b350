// Package retention sweeps old session output directories. It operates
// outside any session's lifetime: a time-based pass over the storage root
// that removes directories (and their registry rows) older than a cutoff.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/registry"
)

// Config tunes a sweep.
type Config struct {
	// MaxAge is how old a session directory may be before it is removed.
	MaxAge time.Duration

	// DryRun reports what would be removed without touching anything.
	DryRun bool
}

// DefaultConfig keeps a week of sessions.
func DefaultConfig() Config {
	return Config{MaxAge: 7 * 24 * time.Hour}
}

// Report summarizes one sweep.
type Report struct {
	RemovedDirs int   `json:"removed_dirs"`
	FreedBytes  int64 `json:"freed_bytes"`
}

// Sweep removes session directories under root whose newest file is older
// than cfg.MaxAge. When reg is non-nil the matching registry rows are
// deleted too. Entries that are not directories (the registry database
// itself) are left alone.
func Sweep(ctx context.Context, root string, cfg Config, reg *registry.Registry, logger logging.Logger) (*Report, error) {
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("maxAge must be positive, got %s", cfg.MaxAge)
	}
	cutoff := time.Now().Add(-cfg.MaxAge)

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read storage root %s: %w", root, err)
	}

	report := &Report{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		newest, size, err := dirStats(dir)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unreadable session directory",
					logging.Field{Key: "dir", Value: dir},
					logging.Field{Key: "error", Value: err.Error()})
			}
			continue
		}
		if !newest.Before(cutoff) {
			continue
		}

		if !cfg.DryRun {
			if err := os.RemoveAll(dir); err != nil {
				return report, fmt.Errorf("remove %s: %w", dir, err)
			}
			if reg != nil {
				if err := reg.DeleteSession(ctx, entry.Name()); err != nil && err != registry.ErrSessionNotFound {
					return report, fmt.Errorf("delete registry row for %s: %w", entry.Name(), err)
				}
			}
		}
		report.RemovedDirs++
		report.FreedBytes += size

		if logger != nil {
			logger.Info("swept session directory",
				logging.Field{Key: "dir", Value: dir},
				logging.Field{Key: "bytes", Value: size},
				logging.Field{Key: "dry_run", Value: cfg.DryRun})
		}
	}
	return report, nil
}

// dirStats walks a directory returning its newest mod time and total size.
func dirStats(dir string) (time.Time, int64, error) {
	var newest time.Time
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if !d.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return newest, size, err
}
