// Package stt implements speech-to-text providers and their fallback
// wiring. The webhook platform usually delivers a transcript directly;
// these providers cover raw-audio turns and re-recognition.
package stt

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// Provider converts caller audio to text.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Language string // ISO language code (default: "en")
	Format   string // Audio format hint (wav, mp3, webm)
}

// Transcript is the result of transcription.
type Transcript struct {
	Text       string
	Language   string
	Confidence float64
}

// Input bundles the invoke arguments so a chain attempt can re-read the
// audio on fallback.
type Input struct {
	Audio []byte
	Opts  TranscribeOptions
}

// Chain is an ordered fallback over transcription providers.
type Chain = backend.Chain[Input, *Transcript]

// ChainEntry is one provider slot in the fallback order.
type ChainEntry = backend.Entry[Input, *Transcript]

// Entry adapts a provider into a fallback chain entry. The audio bytes
// are rewound for every attempt.
func Entry(p Provider, timeout time.Duration) ChainEntry {
	return ChainEntry{
		Name:    p.Name(),
		Timeout: timeout,
		Invoke: func(ctx context.Context, in Input) (*Transcript, error) {
			return p.Transcribe(ctx, bytes.NewReader(in.Audio), in.Opts)
		},
	}
}

// NewChain builds the fallback order for transcription.
func NewChain(entries []ChainEntry, logger *slog.Logger, observe backend.AttemptObserver) *Chain {
	return backend.NewChain(backend.CapabilitySTT, entries, logger, observe)
}
