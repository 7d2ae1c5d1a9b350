package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vigil-watch/vigil/internal/logging"
)

// FrameSource produces one frame of the configured scope on demand.
// Implementations may fail transiently; the session retries per its policy.
type FrameSource interface {
	Capture(ctx context.Context) (*Frame, error)

	// Close releases any resources held by the source.
	Close() error
}

// BackendConstructor constructs a FrameSource for a scope given the config
// and logger.
type BackendConstructor func(cfg Config, scope Scope, logger logging.Logger) (FrameSource, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Registering the same name again overwrites the previous
// constructor.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[strings.ToLower(name)] = ctor
}

// NewFrameSource constructs the configured backend for the scope. When
// cfg.Backend is empty the scope's default backend is used. It returns an
// error if the named backend has not been registered.
func NewFrameSource(cfg Config, scope Scope, logger logging.Logger) (FrameSource, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = scope.DefaultBackend()
	}

	backendsMu.RLock()
	ctor, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("capture backend %q not registered: available backends=%v", backend, ListBackends())
	}

	src, err := ctor(cfg, scope, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct capture backend %q: %w", backend, err)
	}
	if src == nil {
		return nil, errors.New("capture backend constructor returned nil")
	}
	return src, nil
}

// ListBackends returns the list of registered backend names.
func ListBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	return out
}
