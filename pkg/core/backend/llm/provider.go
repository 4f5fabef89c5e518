// Package llm implements reply generation providers and their fallback
// wiring. A provider takes the full conversation history and returns the
// assistant's next reply as plain text.
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// Provider generates the next assistant reply from conversation history.
// History always begins with the system entry.
type Provider interface {
	Name() string
	Complete(ctx context.Context, history []types.Message) (string, error)
}

// Chain is an ordered fallback over reply providers.
type Chain = backend.Chain[[]types.Message, string]

// ChainEntry is one provider slot in the fallback order.
type ChainEntry = backend.Entry[[]types.Message, string]

// Entry adapts a provider into a fallback chain entry with a per-attempt
// timeout.
func Entry(p Provider, timeout time.Duration) ChainEntry {
	return ChainEntry{
		Name:    p.Name(),
		Timeout: timeout,
		Invoke:  p.Complete,
	}
}

// NewChain builds the fallback order for reply generation.
func NewChain(entries []ChainEntry, logger *slog.Logger, observe backend.AttemptObserver) *Chain {
	return backend.NewChain(backend.CapabilityLLM, entries, logger, observe)
}
