// Package tts implements text-to-speech providers and their fallback
// wiring. A successful synthesis becomes a cached audio artifact served
// back to the telephony platform via a play instruction.
package tts

import (
	"context"
	"log/slog"
	"time"

	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// Provider converts reply text to audio.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice    string // provider-specific voice or speaker id
	Language string
	Format   string // output format hint: wav, mp3, pcm
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio  []byte
	Format string
}

// Input bundles the invoke arguments for the fallback chain.
type Input struct {
	Text string
	Opts SynthesizeOptions
}

// Chain is an ordered fallback over synthesis providers.
type Chain = backend.Chain[Input, *Synthesis]

// ChainEntry is one provider slot in the fallback order.
type ChainEntry = backend.Entry[Input, *Synthesis]

// Entry adapts a provider into a fallback chain entry with a per-attempt
// timeout.
func Entry(p Provider, timeout time.Duration) ChainEntry {
	return ChainEntry{
		Name:    p.Name(),
		Timeout: timeout,
		Invoke: func(ctx context.Context, in Input) (*Synthesis, error) {
			return p.Synthesize(ctx, in.Text, in.Opts)
		},
	}
}

// NewChain builds the fallback order for synthesis.
func NewChain(entries []ChainEntry, logger *slog.Logger, observe backend.AttemptObserver) *Chain {
	return backend.NewChain(backend.CapabilityTTS, entries, logger, observe)
}

func formatOr(format, fallback string) string {
	if format == "" {
		return fallback
	}
	return format
}
