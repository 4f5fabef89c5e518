package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvp-scale/talkline/pkg/gateway/lifecycle"
)

func TestHealth(t *testing.T) {
	wh, orc, _ := newWebhook(t)
	post(t, wh.Call, `{"call_sid":"c1"}`)

	lc := &lifecycle.Lifecycle{}
	h := Health{Orc: orc, Lifecycle: lc}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status      string `json:"status"`
		ActiveCalls int    `json:"active_calls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.ActiveCalls != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	lc.BeginDrain()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("draining status = %d", rec.Code)
	}
	var draining struct {
		Status          string  `json:"status"`
		DrainingSeconds float64 `json:"draining_seconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &draining); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if draining.Status != "draining" || draining.DrainingSeconds < 0 {
		t.Fatalf("draining resp = %+v", draining)
	}
}
