package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

const elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

// ElevenLabsConfig configures the hosted ElevenLabs provider.
type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
	// WSBaseURL overrides the stream-input endpoint, used in tests. The
	// {voice_id} placeholder is substituted when present.
	WSBaseURL string
}

// ElevenLabs synthesizes speech over the stream-input websocket API. The
// whole reply is sent as one chunk and audio frames are collected until
// the final marker.
type ElevenLabs struct {
	cfg ElevenLabsConfig
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_flash_v2_5"
	}
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = elevenLabsDefaultWSBase
	}
	return &ElevenLabs{cfg: cfg}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize streams the text through the websocket and returns the
// concatenated audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e.cfg.APIKey == "" {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(),
			fmt.Errorf("api key is required"))
	}
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = e.cfg.VoiceID
	}
	if voiceID == "" {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(),
			fmt.Errorf("voice id is required"))
	}

	wsURL, err := e.buildWSURL(voiceID, opts)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
	}

	header := http.Header{}
	header.Set("xi-api-key", e.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
	}
	defer conn.Close()

	// Closing the connection on context expiry unblocks ReadMessage.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(map[string]any{"text": " ", "voice_id": voiceID}); err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
	}
	if !strings.HasSuffix(text, " ") {
		text += " "
	}
	if err := conn.WriteJSON(map[string]any{"text": text}); err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
	}
	if err := conn.WriteJSON(map[string]any{"text": "", "flush": true}); err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(), err)
		}
		var msg struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(),
				fmt.Errorf("stream error: %s", msg.Error))
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err == nil {
				audio = append(audio, chunk...)
			}
		}
		if msg.IsFinal {
			break
		}
	}

	if len(audio) == 0 {
		return nil, core.NewProviderError(backend.CapabilityTTS, e.Name(),
			fmt.Errorf("empty audio"))
	}
	return &Synthesis{Audio: audio, Format: formatOr(opts.Format, "mp3")}, nil
}

func (e *ElevenLabs) buildWSURL(voiceID string, opts SynthesizeOptions) (string, error) {
	base := strings.ReplaceAll(e.cfg.WSBaseURL, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid stream-input url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", e.cfg.ModelID)
	}
	if q.Get("output_format") == "" {
		switch formatOr(opts.Format, "mp3") {
		case "pcm":
			q.Set("output_format", "pcm_24000")
		default:
			q.Set("output_format", "mp3_44100_128")
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
