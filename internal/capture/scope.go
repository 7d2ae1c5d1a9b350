package capture

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ScopeKind identifies the kind of capture target.
type ScopeKind string

const (
	ScopeScreen    ScopeKind = "screen"
	ScopeWindow    ScopeKind = "window"
	ScopeRegion    ScopeKind = "region"
	ScopeFrontmost ScopeKind = "frontmost"
	ScopePage      ScopeKind = "page"
)

// Scope is the capture target for a session. It is constructed once,
// validated, and never mutated afterward.
type Scope struct {
	Kind ScopeKind

	// ScreenIndex is the 0-based display index for screen scopes.
	ScreenIndex int

	// App and WindowIndex identify a window scope (0 = frontmost window).
	App         string
	WindowIndex int

	// Region is the absolute capture rectangle for region scopes.
	Region image.Rectangle

	// URL is the page address for page scopes.
	URL string
}

// ParseScope parses a scope string of one of the forms:
//
//	frontmost
//	screen:<index>
//	window:<app>[:<window-index>]
//	region:<x>,<y>,<width>,<height>
//	page:<url>
func ParseScope(raw string) (Scope, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == string(ScopeFrontmost) {
		return Scope{Kind: ScopeFrontmost}, nil
	}

	kind, rest, found := strings.Cut(raw, ":")
	if !found {
		return Scope{}, fmt.Errorf("malformed scope %q", raw)
	}

	switch ScopeKind(kind) {
	case ScopeScreen:
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 {
			return Scope{}, fmt.Errorf("malformed screen index %q", rest)
		}
		return Scope{Kind: ScopeScreen, ScreenIndex: idx}, nil

	case ScopeWindow:
		app, idxStr, hasIdx := strings.Cut(rest, ":")
		if app == "" {
			return Scope{}, fmt.Errorf("window scope requires an app identifier")
		}
		idx := 0
		if hasIdx {
			v, err := strconv.Atoi(idxStr)
			if err != nil || v < 0 {
				return Scope{}, fmt.Errorf("malformed window index %q", idxStr)
			}
			idx = v
		}
		return Scope{Kind: ScopeWindow, App: app, WindowIndex: idx}, nil

	case ScopeRegion:
		parts := strings.Split(rest, ",")
		if len(parts) != 4 {
			return Scope{}, fmt.Errorf("region scope requires x,y,width,height, got %q", rest)
		}
		vals := make([]int, 4)
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Scope{}, fmt.Errorf("malformed region component %q", p)
			}
			vals[i] = v
		}
		if vals[2] <= 0 || vals[3] <= 0 {
			return Scope{}, fmt.Errorf("region must have positive width and height")
		}
		r := image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3])
		return Scope{Kind: ScopeRegion, Region: r}, nil

	case ScopePage:
		if !strings.HasPrefix(rest, "http://") && !strings.HasPrefix(rest, "https://") {
			return Scope{}, fmt.Errorf("page scope requires an http(s) url, got %q", rest)
		}
		return Scope{Kind: ScopePage, URL: rest}, nil
	}

	return Scope{}, fmt.Errorf("unknown scope kind %q", kind)
}

// String renders the scope back into its canonical parseable form.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeScreen:
		return fmt.Sprintf("screen:%d", s.ScreenIndex)
	case ScopeWindow:
		return fmt.Sprintf("window:%s:%d", s.App, s.WindowIndex)
	case ScopeRegion:
		return fmt.Sprintf("region:%d,%d,%d,%d",
			s.Region.Min.X, s.Region.Min.Y, s.Region.Dx(), s.Region.Dy())
	case ScopePage:
		return "page:" + s.URL
	default:
		return string(ScopeFrontmost)
	}
}

// DefaultBackend returns the backend name that serves this scope kind when
// the configuration does not force one.
func (s Scope) DefaultBackend() string {
	if s.Kind == ScopePage {
		return "page"
	}
	return "screen"
}
