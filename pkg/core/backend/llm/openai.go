package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// OpenAIConfig configures the hosted chat completion provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

// OpenAI generates replies via the hosted chat completions API.
type OpenAI struct {
	cfg    OpenAIConfig
	client openai.Client
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{cfg: cfg, client: openai.NewClient(opts...)}
}

func (o *OpenAI) Name() string { return "openai" }

// Complete sends the history as chat messages and returns the reply.
func (o *OpenAI) Complete(ctx context.Context, history []types.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case types.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case types.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.cfg.Model),
		Messages:    msgs,
		Temperature: openai.Float(o.cfg.Temperature),
		MaxTokens:   openai.Int(int64(o.cfg.MaxTokens)),
	})
	if err != nil {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(),
			fmt.Errorf("no choices in completion"))
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(),
			fmt.Errorf("empty completion from model %s", o.cfg.Model))
	}
	return reply, nil
}
