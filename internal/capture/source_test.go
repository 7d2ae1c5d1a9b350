package capture

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/vigil-watch/vigil/internal/logging"
)

func TestRegisterAndConstructBackend(t *testing.T) {
	RegisterBackend("TestDummy", func(cfg Config, scope Scope, _ logging.Logger) (FrameSource, error) {
		return NewSyntheticSource(64, 64, 0), nil
	})

	if !slices.Contains(ListBackends(), "testdummy") {
		t.Fatalf("registered backend not listed: %v", ListBackends())
	}

	src, err := NewFrameSource(Config{Backend: "testdummy"}, Scope{Kind: ScopeFrontmost}, nil)
	if err != nil {
		t.Fatalf("NewFrameSource failed: %v", err)
	}
	defer src.Close()

	f, err := src.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if f.Width != 64 || f.Height != 64 {
		t.Errorf("frame dims = %dx%d, want 64x64", f.Width, f.Height)
	}
}

func TestNewFrameSourceUnknownBackend(t *testing.T) {
	_, err := NewFrameSource(Config{Backend: "does-not-exist"}, Scope{Kind: ScopeFrontmost}, nil)
	if err == nil {
		t.Fatal("expected error for unregistered backend")
	}
}

func TestNewFrameSourceDefaultsByScope(t *testing.T) {
	RegisterDefaultBackends()

	// A page scope without an explicit backend must resolve to "page", so
	// construction should at least get past backend lookup.
	scope := Scope{Kind: ScopePage, URL: "https://example.com"}
	src, err := NewFrameSource(Config{PageIdleAfter: time.Second, Headless: true}, scope, nil)
	if err != nil {
		t.Fatalf("page scope did not resolve to page backend: %v", err)
	}
	src.Close()
}

func TestSyntheticSourceStaticAndActive(t *testing.T) {
	ctx := context.Background()

	static := NewSyntheticSource(80, 60, 0)
	a, err := static.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	b, err := static.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if a.Seq != 0 || b.Seq != 1 {
		t.Errorf("sequence numbers = %d, %d, want 0, 1", a.Seq, b.Seq)
	}
	if !slices.Equal(a.Data, b.Data) {
		t.Error("static synthetic source produced differing frames")
	}

	active := NewSyntheticSource(80, 60, time.Nanosecond)
	time.Sleep(time.Millisecond)
	c, _ := active.Capture(ctx)
	d, _ := active.Capture(ctx)
	if slices.Equal(c.Data, d.Data) {
		t.Error("active synthetic source produced identical frames")
	}
}

func TestSyntheticSourceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSyntheticSource(10, 10, 0).Capture(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
