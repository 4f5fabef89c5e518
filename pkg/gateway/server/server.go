// Package server assembles the HTTP surface: webhook routes, audio
// serving, health, and metrics, behind the middleware chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/mvp-scale/talkline/pkg/core/backend/stt"
	"github.com/mvp-scale/talkline/pkg/gateway/config"
	"github.com/mvp-scale/talkline/pkg/gateway/handlers"
	"github.com/mvp-scale/talkline/pkg/gateway/lifecycle"
	"github.com/mvp-scale/talkline/pkg/gateway/metrics"
	"github.com/mvp-scale/talkline/pkg/gateway/mw"
	"github.com/mvp-scale/talkline/pkg/gateway/schema"
	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	orc        *orchestrator.Orchestrator
	metrics    *metrics.Metrics
	lifecycle  *lifecycle.Lifecycle
	validator  *schema.Validator
	transcribe *stt.Chain
}

// New assembles the server. transcribe may be nil when no speech
// recognition providers are configured.
func New(cfg config.Config, orc *orchestrator.Orchestrator, m *metrics.Metrics, lc *lifecycle.Lifecycle, transcribe *stt.Chain, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		orc:        orc,
		metrics:    m,
		lifecycle:  lc,
		validator:  validator,
		transcribe: transcribe,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	wh := handlers.Webhook{
		Orc:       s.orc,
		Validator: s.validator,
		Logger:    s.logger,
	}
	webhook := func(h http.HandlerFunc) http.Handler {
		return mw.WebhookAuth(s.cfg.WebhookSecret, h)
	}

	// The platform can be pointed at either the root or the named route.
	s.mux.Handle("POST /{$}", webhook(wh.Call))
	s.mux.Handle("POST /webhook/call", webhook(wh.Call))
	s.mux.Handle("POST /webhook/conversation", webhook(wh.Conversation))
	s.mux.Handle("POST /webhook/status", webhook(wh.Status))
	s.mux.Handle("POST /transcribe", mw.WebhookAuth(s.cfg.WebhookSecret,
		handlers.Transcribe{Chain: s.transcribe, Logger: s.logger}))

	s.mux.Handle("GET /audio/generated/{id}", handlers.Audio{Orc: s.orc, Logger: s.logger})
	s.mux.Handle("GET /health", handlers.Health{Orc: s.orc, Lifecycle: s.lifecycle})
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
