package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend/stt"
)

const maxAudioBody = 10 << 20 // 10 MiB

// Transcribe converts posted caller audio to text through the speech
// recognition fallback chain. The conversation webhook normally carries a
// platform transcript already; this route serves raw-audio turns and
// offline re-recognition.
type Transcribe struct {
	Chain  *stt.Chain
	Logger *slog.Logger
}

type transcribeResponse struct {
	Transcript string  `json:"transcript"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Provider   string  `json:"provider"`
}

func (h Transcribe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Chain == nil || h.Chain.Len() == 0 {
		http.Error(w, "transcription not configured", http.StatusServiceUnavailable)
		return
	}

	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBody))
	if err != nil {
		http.Error(w, "read audio", http.StatusBadRequest)
		return
	}
	if len(audio) == 0 {
		http.Error(w, "empty audio body", http.StatusBadRequest)
		return
	}

	in := stt.Input{
		Audio: audio,
		Opts: stt.TranscribeOptions{
			Language: r.URL.Query().Get("language"),
			Format:   formatFromContentType(r.Header.Get("Content-Type")),
		},
	}
	tr, provider, err := h.Chain.Invoke(r.Context(), in)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("transcription failed", "error", err)
		}
		status := http.StatusBadGateway
		if !core.IsProvidersExhausted(err) {
			status = http.StatusInternalServerError
		}
		http.Error(w, "transcription failed", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(transcribeResponse{
		Transcript: tr.Text,
		Language:   tr.Language,
		Confidence: tr.Confidence,
		Provider:   provider,
	})
}

func formatFromContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	switch strings.TrimSpace(ct) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/webm":
		return "webm"
	default:
		return ""
	}
}
