package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// FasterWhisperConfig configures a local faster-whisper ASR server.
type FasterWhisperConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// FasterWhisper transcribes via a locally hosted faster-whisper webservice.
type FasterWhisper struct {
	cfg    FasterWhisperConfig
	client *http.Client
}

// NewFasterWhisper creates a faster-whisper provider.
func NewFasterWhisper(cfg FasterWhisperConfig) *FasterWhisper {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FasterWhisper{cfg: cfg, client: client}
}

func (f *FasterWhisper) Name() string { return "faster-whisper" }

// Transcribe posts the audio as a multipart form to the /asr endpoint.
func (f *FasterWhisper) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio_file", "utterance."+formatOr(opts.Format, "wav"))
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}
	if err := mw.Close(); err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}

	url := f.cfg.BaseURL + "/asr?output=json"
	if opts.Language != "" {
		url += "&language=" + opts.Language
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(),
			fmt.Errorf("asr status %d: %s", resp.StatusCode, errBody))
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(), err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return nil, core.NewProviderError(backend.CapabilitySTT, f.Name(),
			fmt.Errorf("empty transcript"))
	}
	return &Transcript{Text: text, Language: out.Language}, nil
}

func formatOr(format, fallback string) string {
	if format == "" {
		return fallback
	}
	return format
}
