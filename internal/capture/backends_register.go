package capture

import (
	"github.com/vigil-watch/vigil/internal/logging"
)

// RegisterDefaultBackends registers the screen, page and synthetic
// backends. Call this from init() or early in main() to make backends
// available to NewFrameSource.
func RegisterDefaultBackends() {
	RegisterBackend("screen", func(cfg Config, scope Scope, logger logging.Logger) (FrameSource, error) {
		src, err := NewScreenSource(scope, logger)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Debug("created screen frame source",
				logging.Field{Key: "scope", Value: scope.String()})
		}
		return src, nil
	})

	RegisterBackend("page", func(cfg Config, scope Scope, logger logging.Logger) (FrameSource, error) {
		src, err := NewPageSource(cfg, scope, logger)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Debug("created page frame source",
				logging.Field{Key: "url", Value: scope.URL},
				logging.Field{Key: "idle_after", Value: cfg.PageIdleAfter.String()})
		}
		return src, nil
	})

	RegisterBackend("synthetic", func(cfg Config, scope Scope, logger logging.Logger) (FrameSource, error) {
		w, h := 0, 0
		if scope.Kind == ScopeRegion {
			w, h = scope.Region.Dx(), scope.Region.Dy()
		}
		return NewSyntheticSource(w, h, 0), nil
	})
}
