package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mvp-scale/talkline/pkg/core/artifact"
	"github.com/mvp-scale/talkline/pkg/core/session"
	"github.com/mvp-scale/talkline/pkg/core/turn"
	"github.com/mvp-scale/talkline/pkg/gateway/config"
	"github.com/mvp-scale/talkline/pkg/gateway/lifecycle"
	"github.com/mvp-scale/talkline/pkg/gateway/metrics"
	gatewayserver "github.com/mvp-scale/talkline/pkg/gateway/server"
	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

// app is everything runServe needs from the composition root.
type app struct {
	handler   http.Handler
	lifecycle *lifecycle.Lifecycle
	sweeper   *artifact.Sweeper
}

type appDeps struct {
	loadConfig   func() (config.Config, error)
	buildApp     func(config.Config, *slog.Logger) (*app, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		buildApp:   buildApp,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// buildApp wires the stores, fallback chains, turn processor, orchestrator
// and HTTP surface from the loaded configuration.
func buildApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	m := metrics.New("talkline")

	artifacts, err := artifact.NewStore(cfg.ArtifactDir, logger)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(logger)

	ch, err := buildChains(cfg, logger, m.ObserveAttempt)
	if err != nil {
		return nil, err
	}

	proc := turn.NewProcessor(ch.replies, ch.speech, artifacts, turn.Config{
		ActionURL:            cfg.ActionURL(),
		AudioBaseURL:         cfg.AudioBaseURL(),
		GatherTimeoutSeconds: cfg.GatherTimeout,
		SpeechTimeoutSeconds: cfg.SpeechTimeout,
		MaxHistory:           cfg.MaxHistory,
		ExtraPhrases:         cfg.ExtraGoodbyes,
	}, logger)

	orc := orchestrator.New(sessions, artifacts, proc, orchestrator.Config{
		Selection:    cfg.Selection(),
		SystemPrompt: cfg.SystemPrompt,
	}, m.Observer(), logger)

	lc := &lifecycle.Lifecycle{}
	srv, err := gatewayserver.New(cfg, orc, m, lc, ch.recognize, logger)
	if err != nil {
		return nil, err
	}

	sweeper := artifact.NewSweeper(artifacts, cfg.SweepInterval, cfg.ArtifactRetention, logger)
	sweeper.Notify = func(evicted, stored int) {
		m.ArtifactsSwept.Add(float64(evicted))
		m.ArtifactsStored.Set(float64(stored))
	}

	return &app{handler: srv.Handler(), lifecycle: lc, sweeper: sweeper}, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runServe(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.buildApp == nil {
		return errors.New("missing buildApp dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := deps.buildApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	httpSrv := buildHTTPServer(cfg, a.handler)

	a.sweeper.Run()
	defer a.sweeper.Stop()

	logger.Info("starting gateway",
		"addr", cfg.Addr, "tier", cfg.DefaultTier, "base_url", cfg.BaseURL)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	a.lifecycle.BeginDrain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "talkline: load .env: %v\n", err)
		return 1
	}

	if err := runServe(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "talkline: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
