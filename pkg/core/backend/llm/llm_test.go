package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "  Hello there.  "},
		})
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "llama3.2:3b"})
	history := []types.Message{
		types.SystemMessage("You are a phone assistant."),
		types.UserMessage("Hi"),
	}
	reply, err := p.Complete(context.Background(), history)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Hello there." {
		t.Fatalf("reply = %q, want trimmed greeting", reply)
	}
	if gotReq.Stream {
		t.Fatal("stream must be disabled")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system entry first", gotReq.Messages)
	}
	if gotReq.Options.NumPredict != 100 {
		t.Fatalf("num_predict = %d, want default 100", gotReq.Options.NumPredict)
	}
}

func TestOllamaCompleteErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}},
		{"empty reply", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ollamaChatResponse{})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			p := NewOllama(OllamaConfig{BaseURL: srv.URL})
			_, err := p.Complete(context.Background(), []types.Message{types.UserMessage("hi")})
			if !core.IsType(err, core.ErrProvider) {
				t.Fatalf("err = %v, want provider error", err)
			}
		})
	}
}

func TestOllamaCompleteContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect
		// and cancels the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, []types.Message{types.UserMessage("hi")})
	if err == nil {
		t.Fatal("want error on cancelled context")
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Errorf("messages = %d, want 3", len(req.Messages))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sure, I can help."}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	history := []types.Message{
		types.SystemMessage("You are a phone assistant."),
		types.UserMessage("Hi"),
		types.AssistantMessage("Hello!"),
	}
	reply, err := p.Complete(context.Background(), history)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Sure, I can help." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), []types.Message{types.UserMessage("hi")})
	if !core.IsType(err, core.ErrProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
}

func TestChainPrefersFirstProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "local reply"},
		})
	}))
	defer srv.Close()

	local := NewOllama(OllamaConfig{BaseURL: srv.URL})
	ch := NewChain([]ChainEntry{
		Entry(local, time.Second),
	}, nil, nil)

	reply, provider, err := ch.Invoke(context.Background(), []types.Message{types.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if provider != "ollama" || reply != "local reply" {
		t.Fatalf("got %q from %q", reply, provider)
	}
}
