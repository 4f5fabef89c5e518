package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// OpenAIConfig configures the hosted Whisper transcription provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

// OpenAI transcribes via the hosted Whisper API.
type OpenAI struct {
	cfg    OpenAIConfig
	client openai.Client
}

// NewOpenAI creates a Whisper provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = string(openai.AudioModelWhisper1)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{cfg: cfg, client: openai.NewClient(opts...)}
}

func (o *OpenAI) Name() string { return "whisper" }

// Transcribe uploads the audio and returns the recognized text.
func (o *OpenAI) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModel(o.cfg.Model),
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, o.Name(), err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, core.NewProviderError(backend.CapabilitySTT, o.Name(),
			fmt.Errorf("empty transcript"))
	}
	return &Transcript{Text: text, Language: opts.Language}, nil
}
