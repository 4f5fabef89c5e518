// Package handlers translates telephony webhook payloads into
// orchestrator events and instruction responses.
package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/types"
	"github.com/mvp-scale/talkline/pkg/gateway/schema"
	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// webhookPayload is the platform's webhook body. Only the fields the
// orchestrator consumes are decoded.
type webhookPayload struct {
	CallSID    string `json:"call_sid"`
	CallStatus string `json:"call_status"`
	From       string `json:"from"`
	To         string `json:"to"`
	Direction  string `json:"direction"`
	Reason     string `json:"reason"`
	Speech     *struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"speech"`
}

// transcript returns the best recognition alternative, empty when the
// platform delivered none.
func (p *webhookPayload) transcript() (string, float64) {
	if p.Speech == nil || len(p.Speech.Alternatives) == 0 {
		return "", 0
	}
	alt := p.Speech.Alternatives[0]
	return strings.TrimSpace(alt.Transcript), alt.Confidence
}

// Webhook serves the telephony webhook endpoints.
type Webhook struct {
	Orc       *orchestrator.Orchestrator
	Validator *schema.Validator
	Logger    *slog.Logger
}

func (h Webhook) decode(r *http.Request) (*webhookPayload, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, core.NewInternalError("read webhook body", err)
	}
	if err := h.Validator.Validate(raw); err != nil {
		return nil, core.NewInvalidEventError(err.Error())
	}
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, core.NewInvalidEventError("malformed webhook json")
	}
	return &p, nil
}

// reject maps a decode failure to its HTTP status: invalid events are the
// sender's fault, anything else is ours.
func (h Webhook) reject(w http.ResponseWriter, err error) {
	if h.Logger != nil {
		h.Logger.Warn("webhook payload rejected", "error", err)
	}
	if core.IsType(err, core.ErrInvalidEvent) {
		http.Error(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// Call handles the incoming-call webhook.
func (h Webhook) Call(w http.ResponseWriter, r *http.Request) {
	p, err := h.decode(r)
	if err != nil {
		h.reject(w, err)
		return
	}
	ins := h.Orc.HandleCallStart(r.Context(), types.CallStart{
		CallID:    p.CallSID,
		From:      p.From,
		To:        p.To,
		Direction: p.Direction,
	})
	writeInstructions(w, ins)
}

// Conversation handles the gather action hook: either a recognized
// utterance or a no-input timeout.
func (h Webhook) Conversation(w http.ResponseWriter, r *http.Request) {
	p, err := h.decode(r)
	if err != nil {
		h.reject(w, err)
		return
	}

	text, confidence := p.transcript()
	var ins types.Instructions
	if text == "" {
		reason := p.Reason
		if reason == "" {
			reason = "timeout"
		}
		ins = h.Orc.HandleNoInput(r.Context(), types.NoInput{CallID: p.CallSID, Reason: reason})
	} else {
		ins = h.Orc.HandleUtterance(r.Context(), types.Utterance{
			CallID:     p.CallSID,
			Transcript: text,
			Confidence: confidence,
		})
	}
	writeInstructions(w, ins)
}

// Status handles call status callbacks. The platform ignores the body,
// so the response is a bare acknowledgment.
func (h Webhook) Status(w http.ResponseWriter, r *http.Request) {
	p, err := h.decode(r)
	if err != nil {
		h.reject(w, err)
		return
	}
	h.Orc.HandleCallStatus(r.Context(), types.CallStatus{
		CallID: p.CallSID,
		Status: p.CallStatus,
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

func writeInstructions(w http.ResponseWriter, ins types.Instructions) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if ins == nil {
		ins = types.Instructions{}
	}
	_ = json.NewEncoder(w).Encode(ins)
}
