package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
)

// synthClient is the Polly surface used here, narrowed for tests.
type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyConfig configures the Amazon Polly provider.
type PollyConfig struct {
	Region  string
	VoiceID string
	Engine  string // standard or neural
}

// Polly synthesizes speech via Amazon Polly. The AWS client is resolved
// lazily so construction never touches the network.
type Polly struct {
	mu     sync.Mutex
	client synthClient
	cfg    PollyConfig
}

// NewPolly creates a Polly provider.
func NewPolly(cfg PollyConfig) *Polly {
	return NewPollyWithClient(cfg, nil)
}

// NewPollyWithClient creates a Polly provider with an injected client.
func NewPollyWithClient(cfg PollyConfig, client synthClient) *Polly {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Joanna"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	return &Polly{client: client, cfg: cfg}
}

func (p *Polly) Name() string { return "polly" }

// Synthesize calls SynthesizeSpeech and returns the mp3 audio.
func (p *Polly) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	client, err := p.resolveClient(ctx)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(), err)
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(p.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}
	voice := opts.Voice
	if voice == "" {
		voice = p.cfg.VoiceID
	}

	out, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(voice),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(),
				fmt.Errorf("polly %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage()))
		}
		return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(), err)
	}
	if out == nil || out.AudioStream == nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(),
			fmt.Errorf("empty audio stream"))
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(), err)
	}
	if len(audio) == 0 {
		return nil, core.NewProviderError(backend.CapabilityTTS, p.Name(),
			fmt.Errorf("empty audio"))
	}
	return &Synthesis{Audio: audio, Format: "mp3"}, nil
}

func (p *Polly) resolveClient(ctx context.Context) (synthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.client = polly.NewFromConfig(awsCfg)
	return p.client, nil
}
