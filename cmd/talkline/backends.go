package main

import (
	"fmt"
	"log/slog"

	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/backend/llm"
	"github.com/mvp-scale/talkline/pkg/core/backend/stt"
	"github.com/mvp-scale/talkline/pkg/core/backend/tts"
	"github.com/mvp-scale/talkline/pkg/gateway/config"
)

// chains holds the per-capability fallback chains assembled for the
// configured default tier, with the open-policy overflow already applied.
type chains struct {
	replies   *llm.Chain
	speech    *tts.Chain
	recognize *stt.Chain
}

func buildChains(cfg config.Config, logger *slog.Logger, observe backend.AttemptObserver) (chains, error) {
	if logger == nil {
		logger = slog.Default()
	}
	llmLocal, err := llmEntries(cfg, cfg.LLMLocalOrder, logger)
	if err != nil {
		return chains{}, err
	}
	llmCloud, err := llmEntries(cfg, cfg.LLMCloudOrder, logger)
	if err != nil {
		return chains{}, err
	}
	ttsLocal, err := ttsEntries(cfg, cfg.TTSLocalOrder, logger)
	if err != nil {
		return chains{}, err
	}
	ttsCloud, err := ttsEntries(cfg, cfg.TTSCloudOrder, logger)
	if err != nil {
		return chains{}, err
	}
	sttLocal, err := sttEntries(cfg, cfg.STTLocalOrder, logger)
	if err != nil {
		return chains{}, err
	}
	sttCloud, err := sttEntries(cfg, cfg.STTCloudOrder, logger)
	if err != nil {
		return chains{}, err
	}

	sel := cfg.Selection()
	replies, err := tierChain(backend.CapabilityLLM, sel, llmLocal, llmCloud, logger, observe)
	if err != nil {
		return chains{}, err
	}
	speech, err := tierChain(backend.CapabilityTTS, sel, ttsLocal, ttsCloud, logger, observe)
	if err != nil {
		return chains{}, err
	}
	// Recognition is optional: the platform normally delivers transcripts
	// in the webhook, so an empty order only disables the transcribe route.
	recognize := tierChainLenient(backend.CapabilitySTT, sel, sttLocal, sttCloud, logger, observe)

	return chains{replies: replies, speech: speech, recognize: recognize}, nil
}

// tierChain builds the fallback order for the given selection, extending
// into the other tier's order when the selection's policy is open.
func tierChain[I, O any](capability string, sel backend.Selection, local, cloud []backend.Entry[I, O], logger *slog.Logger, observe backend.AttemptObserver) (*backend.Chain[I, O], error) {
	c := tierChainLenient(capability, sel, local, cloud, logger, observe)
	if c.Len() == 0 {
		return nil, fmt.Errorf("no usable %s providers for tier %q", capability, sel.Name)
	}
	return c, nil
}

func tierChainLenient[I, O any](capability string, sel backend.Selection, local, cloud []backend.Entry[I, O], logger *slog.Logger, observe backend.AttemptObserver) *backend.Chain[I, O] {
	order, overflow := local, cloud
	if sel.Name == "cloud" {
		order, overflow = cloud, local
	}
	c := backend.NewChain(capability, order, logger, observe)
	if sel.Policy == backend.PolicyOpen {
		c = c.Extend(overflow)
	}
	return c
}

func llmEntries(cfg config.Config, order []string, logger *slog.Logger) ([]llm.ChainEntry, error) {
	var entries []llm.ChainEntry
	for _, name := range order {
		switch name {
		case "ollama":
			p := llm.NewOllama(llm.OllamaConfig{
				BaseURL: cfg.OllamaURL,
				Model:   cfg.OllamaModel,
			})
			entries = append(entries, llm.Entry(p, cfg.LLMTimeout))
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				logger.Warn("skipping llm provider, no credentials",
					"provider", name, "env", "TALKLINE_OPENAI_API_KEY")
				continue
			}
			p := llm.NewOpenAI(llm.OpenAIConfig{
				APIKey: cfg.OpenAIAPIKey,
				Model:  cfg.OpenAIModel,
			})
			entries = append(entries, llm.Entry(p, cfg.LLMTimeout))
		default:
			return nil, fmt.Errorf("unknown llm provider %q", name)
		}
	}
	return entries, nil
}

func ttsEntries(cfg config.Config, order []string, logger *slog.Logger) ([]tts.ChainEntry, error) {
	var entries []tts.ChainEntry
	for _, name := range order {
		switch name {
		case "chatterbox":
			p := tts.NewChatterbox(tts.ChatterboxConfig{
				BaseURL: cfg.ChatterboxURL,
				Voice:   cfg.ChatterboxVoice,
			})
			entries = append(entries, tts.Entry(p, cfg.TTSTimeout))
		case "coqui":
			p := tts.NewCoqui(tts.CoquiConfig{
				BaseURL:   cfg.CoquiURL,
				SpeakerID: cfg.CoquiSpeaker,
			})
			entries = append(entries, tts.Entry(p, cfg.TTSTimeout))
		case "elevenlabs":
			if cfg.ElevenLabsAPIKey == "" || cfg.ElevenLabsVoice == "" {
				logger.Warn("skipping tts provider, no credentials",
					"provider", name, "env", "TALKLINE_ELEVENLABS_API_KEY")
				continue
			}
			p := tts.NewElevenLabs(tts.ElevenLabsConfig{
				APIKey:  cfg.ElevenLabsAPIKey,
				VoiceID: cfg.ElevenLabsVoice,
			})
			entries = append(entries, tts.Entry(p, cfg.TTSTimeout))
		case "polly":
			// AWS credentials resolve from the ambient environment when
			// the first synthesis runs.
			p := tts.NewPolly(tts.PollyConfig{
				Region:  cfg.PollyRegion,
				VoiceID: cfg.PollyVoice,
				Engine:  cfg.PollyEngine,
			})
			entries = append(entries, tts.Entry(p, cfg.TTSTimeout))
		default:
			return nil, fmt.Errorf("unknown tts provider %q", name)
		}
	}
	return entries, nil
}

func sttEntries(cfg config.Config, order []string, logger *slog.Logger) ([]stt.ChainEntry, error) {
	var entries []stt.ChainEntry
	for _, name := range order {
		switch name {
		case "faster-whisper":
			p := stt.NewFasterWhisper(stt.FasterWhisperConfig{
				BaseURL: cfg.WhisperURL,
			})
			entries = append(entries, stt.Entry(p, cfg.STTTimeout))
		case "whisper":
			if cfg.OpenAIAPIKey == "" {
				logger.Warn("skipping stt provider, no credentials",
					"provider", name, "env", "TALKLINE_OPENAI_API_KEY")
				continue
			}
			p := stt.NewOpenAI(stt.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
			entries = append(entries, stt.Entry(p, cfg.STTTimeout))
		default:
			return nil, fmt.Errorf("unknown stt provider %q", name)
		}
	}
	return entries, nil
}
