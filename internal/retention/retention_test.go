package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeSessionDir(t *testing.T, root, name string, age time.Duration, size int) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Now().Add(-age)
	for _, p := range []string{path, dir} {
		if err := os.Chtimes(p, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return dir
}

func TestSweepRemovesOldDirs(t *testing.T) {
	root := t.TempDir()
	oldDir := makeSessionDir(t, root, "old-session", 48*time.Hour, 500)
	freshDir := makeSessionDir(t, root, "fresh-session", time.Hour, 500)

	// Non-directory entries like the registry database stay untouched.
	dbPath := filepath.Join(root, "vigil.db")
	if err := os.WriteFile(dbPath, []byte("db"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}

	report, err := Sweep(context.Background(), root, Config{MaxAge: 24 * time.Hour}, nil, nil)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.RemovedDirs != 1 {
		t.Errorf("removed %d dirs, want 1", report.RemovedDirs)
	}
	if report.FreedBytes != 500 {
		t.Errorf("freed %d bytes, want 500", report.FreedBytes)
	}

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old session directory survived the sweep")
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Error("fresh session directory was removed")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Error("registry database was removed")
	}
}

func TestSweepDryRun(t *testing.T) {
	root := t.TempDir()
	oldDir := makeSessionDir(t, root, "old-session", 48*time.Hour, 300)

	report, err := Sweep(context.Background(), root, Config{MaxAge: 24 * time.Hour, DryRun: true}, nil, nil)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.RemovedDirs != 1 || report.FreedBytes != 300 {
		t.Errorf("dry-run report = %+v, want 1 dir / 300 bytes", report)
	}
	if _, err := os.Stat(oldDir); err != nil {
		t.Error("dry run removed the directory")
	}
}

func TestSweepRecentWriteKeepsDir(t *testing.T) {
	root := t.TempDir()
	dir := makeSessionDir(t, root, "session", 48*time.Hour, 100)

	// One fresh file inside makes the whole directory recent.
	if err := os.WriteFile(filepath.Join(dir, "sheet.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := Sweep(context.Background(), root, Config{MaxAge: 24 * time.Hour}, nil, nil)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if report.RemovedDirs != 0 {
		t.Errorf("removed %d dirs, want 0", report.RemovedDirs)
	}
}

func TestSweepRejectsNonPositiveMaxAge(t *testing.T) {
	if _, err := Sweep(context.Background(), t.TempDir(), Config{}, nil, nil); err == nil {
		t.Error("expected error for zero MaxAge")
	}
}
