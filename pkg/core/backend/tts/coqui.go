package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// CoquiConfig configures a local Coqui TTS server.
type CoquiConfig struct {
	BaseURL    string
	SpeakerID  string
	HTTPClient *http.Client
}

// Coqui synthesizes speech via a locally hosted Coqui TTS server.
type Coqui struct {
	cfg    CoquiConfig
	client *http.Client
}

// NewCoqui creates a Coqui provider.
func NewCoqui(cfg CoquiConfig) *Coqui {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Coqui{cfg: cfg, client: client}
}

func (c *Coqui) Name() string { return "coqui" }

// Synthesize fetches wav audio from the tts endpoint.
func (c *Coqui) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	q := url.Values{}
	q.Set("text", text)
	speaker := opts.Voice
	if speaker == "" {
		speaker = c.cfg.SpeakerID
	}
	if speaker != "" {
		q.Set("speaker_id", speaker)
	}
	if opts.Language != "" {
		q.Set("language_id", opts.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tts?"+q.Encode(), nil)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(),
			fmt.Errorf("tts status %d: %s", resp.StatusCode, errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(), err)
	}
	if len(audio) == 0 {
		return nil, core.NewProviderError(backend.CapabilityTTS, c.Name(),
			fmt.Errorf("empty audio"))
	}
	return &Synthesis{Audio: audio, Format: "wav"}, nil
}
