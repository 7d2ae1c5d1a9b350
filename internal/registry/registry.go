// Package registry indexes watch sessions and their kept frames in SQLite
// so past sessions can be listed, inspected, and cleaned up.
package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/watch"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrSessionNotFound = errors.New("session not found")

// Session is one registry row.
type Session struct {
	ID            string    `json:"id"`
	Scope         string    `json:"scope"`
	OutputDir     string    `json:"output_dir"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	FramesKept    int       `json:"frames_kept"`
	FramesDropped int       `json:"frames_dropped"`
	TotalBytes    int64     `json:"total_bytes"`
	SheetPath     string    `json:"sheet_path,omitempty"`
	DiffAlgorithm string    `json:"diff_algorithm,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// FrameRow is one kept frame as recorded in the registry.
type FrameRow struct {
	SessionID       string    `json:"session_id"`
	Seq             uint64    `json:"seq"`
	Path            string    `json:"path"`
	Bytes           int64     `json:"bytes"`
	ChangedFraction float64   `json:"changed_fraction"`
	CapturedAt      time.Time `json:"captured_at"`
}

// Registry manages session metadata in SQLite plus the filesystem layout
// under rootDir:
//
//	rootDir/
//	  vigil.db
//	  <session-id>/
//	    frame_*.png
//	    sheet.png
type Registry struct {
	db      *sql.DB
	rootDir string
	logger  logging.Logger
}

// NewRegistry returns a Registry, runs the schema from schema.sql, and
// remembers rootDir for the filesystem layout. db should typically be the
// SQLite DB at rootDir/vigil.db.
func NewRegistry(db *sql.DB, rootDir string, logger logging.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if rootDir == "" {
		return nil, fmt.Errorf("rootDir is required")
	}
	rootDir = filepath.Clean(rootDir)
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure rootDir %s: %w", rootDir, err)
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Registry{db: db, rootDir: rootDir, logger: logger}, nil
}

// RootDir returns the storage root the registry manages.
func (r *Registry) RootDir() string { return r.rootDir }

// CreateSession records a session that is about to run.
func (r *Registry) CreateSession(ctx context.Context, id, scope, outputDir string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, scope, output_dir, started_at) VALUES (?, ?, ?, ?)`,
		id, scope, outputDir, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// AddFrame records one kept frame.
func (r *Registry) AddFrame(ctx context.Context, sessionID string, f watch.KeptFrame) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO frames (session_id, seq, path, bytes, changed_fraction, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, f.Seq, f.Path, f.Bytes, f.ChangedFraction, f.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert frame %d for session %s: %w", f.Seq, sessionID, err)
	}
	return nil
}

// FinishSession writes the terminal result onto the session row. errMsg is
// empty for clean terminations.
func (r *Registry) FinishSession(ctx context.Context, res *watch.Result, errMsg string) error {
	sheetPath := ""
	if res.Sheet != nil {
		sheetPath = res.Sheet.Path
	}
	out, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, frames_kept = ?, frames_dropped = ?,
		 total_bytes = ?, sheet_path = ?, diff_algorithm = ?, error = ? WHERE id = ?`,
		res.EndedAt.UTC(), res.Stats.FramesKept, res.Stats.FramesDropped,
		res.Stats.TotalBytes, sheetPath, string(res.DiffAlgorithm), errMsg, res.SessionID)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", res.SessionID, err)
	}
	n, _ := out.RowsAffected()
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession returns one session by ID.
func (r *Registry) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, scope, output_dir, started_at, COALESCE(ended_at, started_at),
		 frames_kept, frames_dropped, total_bytes, sheet_path, diff_algorithm, error
		 FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// ListSessions returns sessions, newest first. limit <= 0 means no limit.
func (r *Registry) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	q := `SELECT id, scope, output_dir, started_at, COALESCE(ended_at, started_at),
	      frames_kept, frames_dropped, total_bytes, sheet_path, diff_algorithm, error
	      FROM sessions ORDER BY started_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListFrames returns the kept frames for a session in sequence order.
func (r *Registry) ListFrames(ctx context.Context, sessionID string) ([]FrameRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, seq, path, bytes, changed_fraction, captured_at
		 FROM frames WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list frames for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []FrameRow
	for rows.Next() {
		var f FrameRow
		if err := rows.Scan(&f.SessionID, &f.Seq, &f.Path, &f.Bytes, &f.ChangedFraction, &f.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteSession removes the session row and its frame rows. The caller is
// responsible for the session directory (see the retention package).
func (r *Registry) DeleteSession(ctx context.Context, id string) error {
	out, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM frames WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete frames for %s: %w", id, err)
	}
	n, _ := out.RowsAffected()
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Close closes the underlying database.
func (r *Registry) Close() error { return r.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.Scope, &s.OutputDir, &s.StartedAt, &s.EndedAt,
		&s.FramesKept, &s.FramesDropped, &s.TotalBytes, &s.SheetPath, &s.DiffAlgorithm, &s.Error)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
