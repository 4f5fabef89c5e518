package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

// Audio streams generated audio artifacts to the telephony platform.
type Audio struct {
	Orc    *orchestrator.Orchestrator
	Logger *slog.Logger
}

func (h Audio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	rc, art, err := h.Orc.ResolveArtifact(id)
	if err != nil {
		if core.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("artifact resolve failed", "artifact_id", id, "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentTypeFor(art.Format))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func contentTypeFor(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}
