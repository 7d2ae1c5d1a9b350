package capture

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/vigil-watch/vigil/internal/logging"
)

// ScreenSource captures a fixed rectangle of a display. It serves screen,
// region, window and frontmost scopes; window and frontmost scopes resolve
// to display 0 because this backend has no window enumeration.
type ScreenSource struct {
	bounds image.Rectangle
	label  string
	seq    atomic.Uint64
	logger logging.Logger
}

// NewScreenSource resolves the scope against the active displays and
// returns a source bound to the resulting rectangle. Scope resolution
// happens once; displays are not re-enumerated per capture.
func NewScreenSource(scope Scope, logger logging.Logger) (*ScreenSource, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}

	s := &ScreenSource{logger: logger}

	switch scope.Kind {
	case ScopeScreen:
		if scope.ScreenIndex >= n {
			return nil, fmt.Errorf("screen index %d out of range (have %d displays)", scope.ScreenIndex, n)
		}
		s.bounds = screenshot.GetDisplayBounds(scope.ScreenIndex)
		s.label = fmt.Sprintf("display %d", scope.ScreenIndex)

	case ScopeRegion:
		s.bounds = scope.Region
		s.label = fmt.Sprintf("region %dx%d", scope.Region.Dx(), scope.Region.Dy())

	case ScopeWindow:
		// No portable window query on this backend; capture the primary
		// display and carry the app identifier in the label.
		s.bounds = screenshot.GetDisplayBounds(0)
		s.label = scope.App
		if logger != nil {
			logger.Warn("window scope resolved to primary display",
				logging.Field{Key: "app", Value: scope.App})
		}

	case ScopeFrontmost:
		s.bounds = screenshot.GetDisplayBounds(0)
		s.label = "display 0"

	default:
		return nil, fmt.Errorf("screen backend cannot serve scope kind %q", scope.Kind)
	}

	if s.bounds.Empty() {
		return nil, fmt.Errorf("resolved capture bounds are empty for scope %s", scope)
	}
	return s, nil
}

func (s *ScreenSource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", s.label, err)
	}

	f := FromImage(img, time.Now(), s.seq.Add(1)-1)
	f.Label = s.label
	return f, nil
}

func (s *ScreenSource) Close() error { return nil }
