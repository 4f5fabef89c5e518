// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// Config is the full runtime configuration.
type Config struct {
	Addr string

	// BaseURL is the public base the telephony platform reaches this
	// service at. Action hooks and audio urls are built from it.
	BaseURL string

	// WebhookSecret, when set, must match the X-Webhook-Secret header on
	// every webhook request. Empty disables the check.
	WebhookSecret string

	// Conversation.
	SystemPrompt   string
	MaxHistory     int
	GatherTimeout  int
	SpeechTimeout  int
	ExtraGoodbyes  []string
	DefaultTier    string
	LocalPolicy    backend.Policy
	CloudPolicy    backend.Policy

	// Provider orders per capability, comma separated.
	LLMLocalOrder []string
	LLMCloudOrder []string
	TTSLocalOrder []string
	TTSCloudOrder []string
	STTLocalOrder []string
	STTCloudOrder []string

	// Per-capability attempt timeouts.
	LLMTimeout time.Duration
	TTSTimeout time.Duration
	STTTimeout time.Duration

	// Provider endpoints and credentials.
	OllamaURL        string
	OllamaModel      string
	WhisperURL       string
	ChatterboxURL    string
	ChatterboxVoice  string
	CoquiURL         string
	CoquiSpeaker     string
	ElevenLabsAPIKey string
	ElevenLabsVoice  string
	PollyRegion      string
	PollyVoice       string
	PollyEngine      string
	OpenAIAPIKey     string
	OpenAIModel      string

	// Artifacts.
	ArtifactDir       string
	ArtifactRetention time.Duration
	SweepInterval     time.Duration

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// LoadFromEnv reads and validates the TALKLINE_* environment.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("TALKLINE_ADDR", ":3000"),
		BaseURL:             envOr("TALKLINE_BASE_URL", "http://localhost:3000"),
		WebhookSecret:       strings.TrimSpace(os.Getenv("TALKLINE_WEBHOOK_SECRET")),
		SystemPrompt:        envOr("TALKLINE_SYSTEM_PROMPT", ""),
		MaxHistory:          envIntOr("TALKLINE_MAX_HISTORY", 11),
		GatherTimeout:       envIntOr("TALKLINE_GATHER_TIMEOUT", 15),
		SpeechTimeout:       envIntOr("TALKLINE_SPEECH_TIMEOUT", 2),
		ExtraGoodbyes:       splitCSV(os.Getenv("TALKLINE_EXTRA_GOODBYE_PHRASES")),
		DefaultTier:         envOr("TALKLINE_DEFAULT_TIER", "local"),
		LLMLocalOrder:       splitCSV(envOr("TALKLINE_LLM_LOCAL_ORDER", "ollama")),
		LLMCloudOrder:       splitCSV(envOr("TALKLINE_LLM_CLOUD_ORDER", "openai")),
		TTSLocalOrder:       splitCSV(envOr("TALKLINE_TTS_LOCAL_ORDER", "chatterbox,coqui")),
		TTSCloudOrder:       splitCSV(envOr("TALKLINE_TTS_CLOUD_ORDER", "elevenlabs,polly")),
		STTLocalOrder:       splitCSV(envOr("TALKLINE_STT_LOCAL_ORDER", "faster-whisper")),
		STTCloudOrder:       splitCSV(envOr("TALKLINE_STT_CLOUD_ORDER", "whisper")),
		LLMTimeout:          envDurationOr("TALKLINE_LLM_TIMEOUT", 20*time.Second),
		TTSTimeout:          envDurationOr("TALKLINE_TTS_TIMEOUT", 15*time.Second),
		STTTimeout:          envDurationOr("TALKLINE_STT_TIMEOUT", 15*time.Second),
		OllamaURL:           envOr("TALKLINE_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envOr("TALKLINE_OLLAMA_MODEL", "llama3.2:3b"),
		WhisperURL:          envOr("TALKLINE_WHISPER_URL", "http://localhost:9000"),
		ChatterboxURL:       envOr("TALKLINE_CHATTERBOX_URL", "http://localhost:8004"),
		ChatterboxVoice:     envOr("TALKLINE_CHATTERBOX_VOICE", ""),
		CoquiURL:            envOr("TALKLINE_COQUI_URL", "http://localhost:5002"),
		CoquiSpeaker:        envOr("TALKLINE_COQUI_SPEAKER", ""),
		ElevenLabsAPIKey:    strings.TrimSpace(os.Getenv("TALKLINE_ELEVENLABS_API_KEY")),
		ElevenLabsVoice:     envOr("TALKLINE_ELEVENLABS_VOICE_ID", ""),
		PollyRegion:         envOr("TALKLINE_POLLY_REGION", "us-east-1"),
		PollyVoice:          envOr("TALKLINE_POLLY_VOICE", "Joanna"),
		PollyEngine:         envOr("TALKLINE_POLLY_ENGINE", "neural"),
		OpenAIAPIKey:        strings.TrimSpace(os.Getenv("TALKLINE_OPENAI_API_KEY")),
		OpenAIModel:         envOr("TALKLINE_OPENAI_MODEL", "gpt-4o-mini"),
		ArtifactDir:         envOr("TALKLINE_ARTIFACT_DIR", ""),
		ArtifactRetention:   envDurationOr("TALKLINE_ARTIFACT_RETENTION", time.Hour),
		SweepInterval:       envDurationOr("TALKLINE_SWEEP_INTERVAL", 10*time.Minute),
		ReadHeaderTimeout:   envDurationOr("TALKLINE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("TALKLINE_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("TALKLINE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("TALKLINE_BASE_URL must be an absolute url")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	switch cfg.DefaultTier {
	case "local", "cloud":
	default:
		return Config{}, fmt.Errorf("TALKLINE_DEFAULT_TIER must be one of local|cloud")
	}
	var err error
	if cfg.LocalPolicy, err = backend.ParsePolicy(os.Getenv("TALKLINE_LOCAL_POLICY")); err != nil {
		return Config{}, fmt.Errorf("TALKLINE_LOCAL_POLICY: %w", err)
	}
	if cfg.CloudPolicy, err = backend.ParsePolicy(os.Getenv("TALKLINE_CLOUD_POLICY")); err != nil {
		return Config{}, fmt.Errorf("TALKLINE_CLOUD_POLICY: %w", err)
	}

	if cfg.MaxHistory <= 1 {
		return Config{}, fmt.Errorf("TALKLINE_MAX_HISTORY must be > 1")
	}
	if cfg.GatherTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_GATHER_TIMEOUT must be > 0")
	}
	if cfg.SpeechTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_SPEECH_TIMEOUT must be > 0")
	}
	if len(cfg.LLMLocalOrder) == 0 && len(cfg.LLMCloudOrder) == 0 {
		return Config{}, fmt.Errorf("at least one of TALKLINE_LLM_LOCAL_ORDER or TALKLINE_LLM_CLOUD_ORDER must be set")
	}
	if len(cfg.TTSLocalOrder) == 0 && len(cfg.TTSCloudOrder) == 0 {
		return Config{}, fmt.Errorf("at least one of TALKLINE_TTS_LOCAL_ORDER or TALKLINE_TTS_CLOUD_ORDER must be set")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_LLM_TIMEOUT must be > 0")
	}
	if cfg.TTSTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_TTS_TIMEOUT must be > 0")
	}
	if cfg.STTTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_STT_TIMEOUT must be > 0")
	}
	if cfg.ArtifactRetention <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_ARTIFACT_RETENTION must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_SWEEP_INTERVAL must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("TALKLINE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// Selection is the backend selection every call is pinned to: the
// default tier with that tier's fallback policy.
func (c Config) Selection() backend.Selection {
	policy := c.LocalPolicy
	if c.DefaultTier == "cloud" {
		policy = c.CloudPolicy
	}
	return backend.Selection{Name: c.DefaultTier, Policy: policy}
}

// ActionURL is the conversation webhook the platform posts utterances to.
func (c Config) ActionURL() string {
	return c.BaseURL + "/webhook/conversation"
}

// AudioBaseURL prefixes generated artifact ids.
func (c Config) AudioBaseURL() string {
	return c.BaseURL + "/audio/generated"
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
