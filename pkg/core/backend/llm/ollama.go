package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// OllamaConfig configures a local Ollama chat provider.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Ollama generates replies from a locally hosted model via the Ollama
// chat API.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama creates an Ollama provider.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.Model == "" {
		cfg.Model = "llama3.2:3b"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 100
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Ollama{cfg: cfg, client: client}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Complete sends the history to the chat endpoint and returns the reply.
func (o *Ollama) Complete(ctx context.Context, history []types.Message) (string, error) {
	msgs := make([]ollamaMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.cfg.Model,
		Messages: msgs,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: o.cfg.Temperature,
			NumPredict:  o.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(),
			fmt.Errorf("chat status %d: %s", resp.StatusCode, errBody))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(), err)
	}

	reply := strings.TrimSpace(out.Message.Content)
	if reply == "" {
		return "", core.NewProviderError(backend.CapabilityLLM, o.Name(),
			fmt.Errorf("empty reply from model %s", o.cfg.Model))
	}
	return reply, nil
}
