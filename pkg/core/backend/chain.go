package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
)

// Entry is one provider in a fallback order, with its own timeout.
type Entry[I, O any] struct {
	Name    string
	Timeout time.Duration
	Invoke  func(ctx context.Context, in I) (O, error)
}

// Chain tries providers sequentially. A provider that fails is not retried
// within the same invocation; the next provider in the order is attempted
// instead, bounding worst-case turn latency. No state is carried between
// attempts.
type Chain[I, O any] struct {
	capability string
	entries    []Entry[I, O]
	logger     *slog.Logger
	observe    AttemptObserver
}

// NewChain builds a fallback chain for one capability.
func NewChain[I, O any](capability string, entries []Entry[I, O], logger *slog.Logger, observe AttemptObserver) *Chain[I, O] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain[I, O]{
		capability: capability,
		entries:    entries,
		logger:     logger,
		observe:    observe,
	}
}

// Extend returns a new chain whose order continues into extra after this
// chain's own entries. Used to build open-policy selections that overflow
// into another tier.
func (c *Chain[I, O]) Extend(extra []Entry[I, O]) *Chain[I, O] {
	merged := make([]Entry[I, O], 0, len(c.entries)+len(extra))
	merged = append(merged, c.entries...)
	merged = append(merged, extra...)
	return &Chain[I, O]{
		capability: c.capability,
		entries:    merged,
		logger:     c.logger,
		observe:    c.observe,
	}
}

// Providers returns the provider names in attempt order.
func (c *Chain[I, O]) Providers() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Name)
	}
	return names
}

// Len returns the number of providers in the order.
func (c *Chain[I, O]) Len() int { return len(c.entries) }

// Invoke runs the fallback order and returns the first success together
// with the name of the provider that produced it. When every provider
// fails it returns a providers exhausted error.
func (c *Chain[I, O]) Invoke(ctx context.Context, in I) (O, string, error) {
	var zero O
	attempts := 0

	for _, e := range c.entries {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		attempts++

		actx := ctx
		cancel := func() {}
		if e.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, e.Timeout)
		}
		start := time.Now()
		out, err := e.Invoke(actx, in)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			if c.observe != nil {
				c.observe(c.capability, e.Name, OutcomeSuccess, elapsed)
			}
			return out, e.Name, nil
		}

		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		if c.observe != nil {
			c.observe(c.capability, e.Name, outcome, elapsed)
		}
		c.logger.Warn("provider attempt failed",
			"capability", c.capability,
			"provider", e.Name,
			"outcome", outcome,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
	}

	return zero, "", core.NewProvidersExhaustedError(c.capability, attempts)
}
