package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mvp-scale/talkline/pkg/gateway/lifecycle"
	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

// Health reports process liveness, the live call count, and draining
// state during shutdown.
type Health struct {
	Orc       *orchestrator.Orchestrator
	Lifecycle *lifecycle.Lifecycle
}

func (h Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type healthResp struct {
		Status          string  `json:"status"`
		ActiveCalls     int     `json:"active_calls"`
		DrainingSeconds float64 `json:"draining_seconds,omitempty"`
	}

	resp := healthResp{Status: "ok", ActiveCalls: h.Orc.ActiveCalls()}
	code := http.StatusOK
	if h.Lifecycle.Draining() {
		resp.Status = "draining"
		code = http.StatusServiceUnavailable
		if since, ok := h.Lifecycle.DrainingSince(); ok {
			resp.DrainingSeconds = time.Since(since).Seconds()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
