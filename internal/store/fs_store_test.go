package store

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vigil-watch/vigil/internal/testutil"
)

func TestStoreFrameWritesPNG(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "session-1", nil)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	f := testutil.SolidFrame(32, 24, color.RGBA{R: 10, G: 20, B: 30, A: 255}, 3)
	path, size, err := s.StoreFrame(f, nil)
	if err != nil {
		t.Fatalf("StoreFrame failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "frame_000003_") {
		t.Errorf("frame filename %q does not carry the sequence number", filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stored frame missing: %v", err)
	}
	if info.Size() != size {
		t.Errorf("reported size %d, file is %d", size, info.Size())
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open stored frame: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("stored frame is not a valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("decoded size = %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestDiscardRemovesStoredFrame(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "session-d", nil)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	f := testutil.SolidFrame(16, 16, color.RGBA{A: 255}, 0)
	path, _, err := s.StoreFrame(f, nil)
	if err != nil {
		t.Fatalf("StoreFrame failed: %v", err)
	}

	if err := s.Discard(path); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("discarded frame still present: %v", err)
	}

	// Paths outside the session directory are refused.
	outside := filepath.Join(t.TempDir(), "other.png")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatalf("writing outside file: %v", err)
	}
	if err := s.Discard(outside); err == nil {
		t.Error("Discard accepted a path outside the session directory")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("outside file was touched: %v", err)
	}
}

func TestStoreFrameWithRegionsDrawsOverlay(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "session-2", nil)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	f := testutil.SolidFrame(64, 64, color.RGBA{A: 255}, 0)
	path, _, err := s.StoreFrame(f, []image.Rectangle{image.Rect(10, 10, 40, 40)})
	if err != nil {
		t.Fatalf("StoreFrame failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open stored frame: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode stored frame: %v", err)
	}

	// A pixel on the box edge must be the overlay color, not the black
	// background.
	r, _, _, _ := img.At(10, 20).RGBA()
	if r>>8 < 200 {
		t.Error("expected a bright overlay box on the region edge")
	}
	// The original frame data must be untouched.
	if f.Data[0] != 0 {
		t.Error("overlay modified the source frame in place")
	}
}

func TestStoreSheet(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "session-3", nil)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	path, size, err := s.StoreSheet(img)
	if err != nil {
		t.Fatalf("StoreSheet failed: %v", err)
	}
	if filepath.Base(path) != "sheet.png" {
		t.Errorf("sheet filename = %q, want sheet.png", filepath.Base(path))
	}
	if size <= 0 {
		t.Errorf("sheet size = %d, want > 0", size)
	}
}

func TestNewFSStoreSanitizesSessionID(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "weird/..id with spaces", nil)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	rel, err := filepath.Rel(root, s.Dir())
	if err != nil || strings.Contains(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		t.Errorf("session dir %q escaped the storage root", s.Dir())
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	if err := AtomicWriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}

	// Overwrite goes through the same path.
	if err := AtomicWriteFile(path, []byte("world"), 0644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("content after overwrite = %q, want world", data)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %q", e.Name())
		}
	}
}

func TestAtomicWriteFileRejectsDotDot(t *testing.T) {
	if err := AtomicWriteFile(filepath.Join("..", "escape.bin"), []byte("x"), 0644); err == nil {
		t.Error("expected error for path containing ..")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"session-1", "session-1"},
		{"has spaces", "has_spaces"},
		{"../../etc", "etc"},
		{"", "unnamed"},
		{"///", "unnamed"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
