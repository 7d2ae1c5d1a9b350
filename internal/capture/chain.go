package capture

import (
	"context"
	"errors"

	"github.com/vigil-watch/vigil/internal/logging"
)

// ChainDecision reports whether the chain should continue to the next
// source after err. Returning false makes err final.
type ChainDecision func(err error) bool

// SourceChain tries an ordered list of frame sources until one succeeds.
// It models the try-modern-fall-back-to-legacy pattern around platform
// capture APIs: each Capture walks the list in order and a decision
// function over the error decides whether the next source gets a turn.
type SourceChain struct {
	sources []FrameSource
	next    ChainDecision
	logger  logging.Logger
}

// NewSourceChain builds a chain over sources. A nil decision continues on
// every error.
func NewSourceChain(next ChainDecision, logger logging.Logger, sources ...FrameSource) *SourceChain {
	if next == nil {
		next = func(error) bool { return true }
	}
	return &SourceChain{sources: sources, next: next, logger: logger}
}

func (c *SourceChain) Capture(ctx context.Context) (*Frame, error) {
	if len(c.sources) == 0 {
		return nil, errors.New("source chain is empty")
	}

	var lastErr error
	for i, src := range c.sources {
		f, err := src.Capture(ctx)
		if err == nil {
			return f, nil
		}
		lastErr = err
		if !c.next(err) {
			return nil, err
		}
		if c.logger != nil && i < len(c.sources)-1 {
			c.logger.Warn("frame source failed, trying next in chain",
				logging.Field{Key: "source_index", Value: i},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
	return nil, lastErr
}

func (c *SourceChain) Close() error {
	var firstErr error
	for _, src := range c.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
