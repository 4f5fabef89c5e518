package types

import (
	"encoding/json"
	"testing"
)

func TestSay_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		say  Say
		want string
	}{
		{
			"with vendor",
			Say{Text: "Hello!", Vendor: "default"},
			`{"verb":"say","text":"Hello!","synthesizer":{"vendor":"default"}}`,
		},
		{
			"without vendor",
			Say{Text: "Hello!"},
			`{"verb":"say","text":"Hello!"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.say)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGather_MarshalJSON_DefaultsInputModes(t *testing.T) {
	g := Gather{
		TimeoutSeconds:       15,
		SpeechTimeoutSeconds: 2,
		ActionURL:            "https://example.com/webhook/conversation",
		Recognizer:           &Recognizer{Vendor: "openai", Model: "whisper-1", Language: "en"},
	}

	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["verb"] != "gather" {
		t.Errorf("verb = %v, want gather", decoded["verb"])
	}
	if decoded["actionHook"] != g.ActionURL {
		t.Errorf("actionHook = %v, want %v", decoded["actionHook"], g.ActionURL)
	}
	input, ok := decoded["input"].([]any)
	if !ok || len(input) != 1 || input[0] != "speech" {
		t.Errorf("input = %v, want [speech]", decoded["input"])
	}
}

func TestInstructions_MarshalAsList(t *testing.T) {
	in := Instructions{
		Play{URL: "https://example.com/audio/generated/abc"},
		Gather{TimeoutSeconds: 15, SpeechTimeoutSeconds: 2, ActionURL: "https://example.com/hook"},
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len = %d, want 2", len(decoded))
	}
	if decoded[0]["verb"] != "play" || decoded[1]["verb"] != "gather" {
		t.Errorf("verbs = %v, %v", decoded[0]["verb"], decoded[1]["verb"])
	}
}

func TestHangup_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(Hangup{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"verb":"hangup"}` {
		t.Errorf("got %s", raw)
	}
}

func TestInstructions_Verbs(t *testing.T) {
	in := Instructions{Say{Text: "bye"}, Hangup{}}
	verbs := in.Verbs()
	if len(verbs) != 2 || verbs[0] != "say" || verbs[1] != "hangup" {
		t.Errorf("Verbs() = %v", verbs)
	}
}

func TestCallStatus_Terminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusRinging, false},
		{StatusAnswered, false},
	}
	for _, tt := range tests {
		if got := (CallStatus{Status: tt.status}).Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
