package store

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/logging"
)

// FSStore writes frames and the contact sheet as PNG files into one
// session directory. Files are written atomically via temp file + rename
// so an aborted session never leaves a partially-written frame behind.
type FSStore struct {
	dir    string
	logger logging.Logger
}

// NewFSStore creates the session directory under root and returns a store
// rooted there.
func NewFSStore(root, sessionID string, logger logging.Logger) (*FSStore, error) {
	dir := filepath.Join(root, SanitizeName(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FSStore{dir: dir, logger: logger}, nil
}

func (s *FSStore) Dir() string { return s.dir }

// StoreFrame encodes the frame as PNG and writes it as
// frame_<seq>_<timestamp>.png. When regions are given they are overlaid as
// boxes before encoding.
func (s *FSStore) StoreFrame(f *capture.Frame, regions []image.Rectangle) (string, int64, error) {
	img := f.RGBA()
	if len(regions) > 0 {
		img = overlayRegions(img, regions)
	}

	name := fmt.Sprintf("frame_%06d_%s.png", f.Seq, f.Timestamp.UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	size, err := s.writePNG(path, img)
	if err != nil {
		return "", 0, err
	}
	return path, size, nil
}

// Discard removes a stored frame. Only paths inside the session directory
// are removable.
func (s *FSStore) Discard(path string) error {
	if filepath.Dir(filepath.Clean(path)) != s.dir {
		return fmt.Errorf("refusing to remove %s: outside the session directory", path)
	}
	return os.Remove(path)
}

// StoreSheet writes the contact sheet as sheet.png.
func (s *FSStore) StoreSheet(img image.Image) (string, int64, error) {
	path := filepath.Join(s.dir, "sheet.png")
	size, err := s.writePNG(path, img)
	if err != nil {
		return "", 0, err
	}
	return path, size, nil
}

func (s *FSStore) writePNG(path string, img image.Image) (int64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("failed to encode png: %w", err)
	}
	if err := AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return int64(buf.Len()), nil
}

// AtomicWriteFile writes data to a file atomically using a temp file +
// rename strategy, so the file is either fully written or absent.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path contains '..' which is not allowed")
	}

	dir := filepath.Dir(cleaned)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, cleaned); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// SanitizeName makes a string safe to use as a file or directory name.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') ||
			(r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._-")
	if out == "" {
		return "unnamed"
	}
	return out
}
