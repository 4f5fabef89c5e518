package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/mvp-scale/talkline/pkg/gateway/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() config.Config {
	return config.Config{
		Addr:                "127.0.0.1:0",
		BaseURL:             "http://localhost:3000",
		MaxHistory:          11,
		GatherTimeout:       15,
		SpeechTimeout:       2,
		DefaultTier:         "local",
		LocalPolicy:         "closed",
		CloudPolicy:         "closed",
		LLMLocalOrder:       []string{"ollama"},
		LLMCloudOrder:       []string{"openai"},
		TTSLocalOrder:       []string{"chatterbox", "coqui"},
		TTSCloudOrder:       []string{"elevenlabs", "polly"},
		STTLocalOrder:       []string{"faster-whisper"},
		STTCloudOrder:       []string{"whisper"},
		LLMTimeout:          20 * time.Second,
		TTSTimeout:          15 * time.Second,
		STTTimeout:          15 * time.Second,
		OllamaURL:           "http://localhost:11434",
		OllamaModel:         "llama3.2:3b",
		WhisperURL:          "http://localhost:9000",
		ChatterboxURL:       "http://localhost:8004",
		CoquiURL:            "http://localhost:5002",
		PollyRegion:         "us-east-1",
		PollyVoice:          "Joanna",
		PollyEngine:         "neural",
		OpenAIModel:         "gpt-4o-mini",
		ArtifactRetention:   time.Hour,
		SweepInterval:       10 * time.Minute,
		ReadHeaderTimeout:   time.Second,
		ReadTimeout:         time.Second,
		ShutdownGracePeriod: 5 * time.Second,
	}
}

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, appDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		buildApp: func(cfg config.Config, logger *slog.Logger) (*app, error) {
			t.Fatalf("buildApp should not be called when config load fails")
			return nil, nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if stderr.String() == "" {
		t.Fatalf("expected stderr output for startup error")
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       3 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != cfg.ReadTimeout {
		t.Fatalf("ReadTimeout=%v, want %v", srv.ReadTimeout, cfg.ReadTimeout)
	}
}

func TestRunServe_ShutsDownOnSignal(t *testing.T) {
	registered := make(chan chan<- os.Signal, 1)
	deps := appDeps{
		loadConfig: func() (config.Config, error) { return baseConfig(), nil },
		buildApp:   buildApp,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			registered <- c
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	done := make(chan error, 1)
	go func() {
		done <- runServe(context.Background(), discardLogger(), deps)
	}()

	select {
	case c := <-registered:
		c <- syscall.SIGTERM
	case <-time.After(5 * time.Second):
		t.Fatal("signal channel never registered")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runServe never returned after signal")
	}
}

func TestBuildApp_ServesHealth(t *testing.T) {
	t.Parallel()

	a, err := buildApp(baseConfig(), discardLogger())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}

	ts := httptest.NewServer(a.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
}

func TestBuildChains_ClosedLocalTier(t *testing.T) {
	t.Parallel()

	ch, err := buildChains(baseConfig(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("buildChains: %v", err)
	}
	if got := ch.replies.Providers(); !reflect.DeepEqual(got, []string{"ollama"}) {
		t.Errorf("llm providers = %v, want [ollama]", got)
	}
	if got := ch.speech.Providers(); !reflect.DeepEqual(got, []string{"chatterbox", "coqui"}) {
		t.Errorf("tts providers = %v, want [chatterbox coqui]", got)
	}
	if got := ch.recognize.Providers(); !reflect.DeepEqual(got, []string{"faster-whisper"}) {
		t.Errorf("stt providers = %v, want [faster-whisper]", got)
	}
}

func TestBuildChains_OpenPolicyExtendsIntoCloud(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.LocalPolicy = "open"
	cfg.OpenAIAPIKey = "sk-test"

	ch, err := buildChains(cfg, discardLogger(), nil)
	if err != nil {
		t.Fatalf("buildChains: %v", err)
	}
	if got := ch.replies.Providers(); !reflect.DeepEqual(got, []string{"ollama", "openai"}) {
		t.Errorf("llm providers = %v, want [ollama openai]", got)
	}
	if got := ch.recognize.Providers(); !reflect.DeepEqual(got, []string{"faster-whisper", "whisper"}) {
		t.Errorf("stt providers = %v, want [faster-whisper whisper]", got)
	}
}

func TestBuildChains_SkipsCloudProvidersWithoutCredentials(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.DefaultTier = "cloud"

	// Without an OpenAI key the only cloud llm provider is skipped, which
	// leaves the cloud tier with no usable reply chain.
	_, err := buildChains(cfg, discardLogger(), nil)
	if err == nil || !strings.Contains(err.Error(), "llm") {
		t.Fatalf("err = %v, want empty llm chain error", err)
	}
}

func TestBuildChains_CloudTierWithCredentials(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.DefaultTier = "cloud"
	cfg.OpenAIAPIKey = "sk-test"
	cfg.ElevenLabsAPIKey = "xi-test"
	cfg.ElevenLabsVoice = "v1"

	ch, err := buildChains(cfg, discardLogger(), nil)
	if err != nil {
		t.Fatalf("buildChains: %v", err)
	}
	if got := ch.replies.Providers(); !reflect.DeepEqual(got, []string{"openai"}) {
		t.Errorf("llm providers = %v, want [openai]", got)
	}
	if got := ch.speech.Providers(); !reflect.DeepEqual(got, []string{"elevenlabs", "polly"}) {
		t.Errorf("tts providers = %v, want [elevenlabs polly]", got)
	}
}

func TestBuildChains_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.LLMLocalOrder = []string{"ollama", "bard"}

	_, err := buildChains(cfg, discardLogger(), nil)
	if err == nil || !strings.Contains(err.Error(), "bard") {
		t.Fatalf("err = %v, want unknown provider error naming bard", err)
	}
}
