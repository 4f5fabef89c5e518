package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// ChatterboxConfig configures a local Chatterbox TTS server.
type ChatterboxConfig struct {
	BaseURL    string
	Voice      string
	HTTPClient *http.Client
}

// Chatterbox synthesizes speech via a locally hosted Chatterbox server
// exposing the OpenAI-compatible speech endpoint.
type Chatterbox struct {
	cfg    ChatterboxConfig
	client *http.Client
}

// NewChatterbox creates a Chatterbox provider.
func NewChatterbox(cfg ChatterboxConfig) *Chatterbox {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Chatterbox{cfg: cfg, client: client}
}

func (c *Chatterbox) Name() string { return "chatterbox" }

// Synthesize posts the text to the speech endpoint and returns the audio.
func (c *Chatterbox) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	voice := opts.Voice
	if voice == "" {
		voice = c.cfg.Voice
	}
	body, err := json.Marshal(map[string]any{
		"input":           text,
		"voice":           voice,
		"response_format": formatOr(opts.Format, "wav"),
	})
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(),
			fmt.Errorf("speech status %d: %s", resp.StatusCode, errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}
	if len(audio) == 0 {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(),
			fmt.Errorf("empty audio"))
	}
	return &Synthesis{Audio: audio, Format: formatOr(opts.Format, "wav")}, nil
}
