package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
)

func entry(name string, out string, err error) Entry[string, string] {
	return Entry[string, string]{
		Name:    name,
		Timeout: time.Second,
		Invoke: func(ctx context.Context, in string) (string, error) {
			return out, err
		},
	}
}

func TestChainFallbackOrdering(t *testing.T) {
	var observed []string
	obs := func(capability, provider, outcome string, elapsed time.Duration) {
		observed = append(observed, provider+":"+outcome)
	}
	ch := NewChain(CapabilityLLM, []Entry[string, string]{
		entry("a", "", errors.New("a down")),
		entry("b", "", errors.New("b down")),
		entry("c", "from-c", nil),
	}, nil, obs)

	out, provider, err := ch.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "from-c" || provider != "c" {
		t.Fatalf("got %q from %q, want from-c from c", out, provider)
	}
	want := []string{"a:error", "b:error", "c:success"}
	if len(observed) != len(want) {
		t.Fatalf("observed %v, want %v", observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("observed[%d] = %q, want %q", i, observed[i], want[i])
		}
	}
}

func TestChainExhaustion(t *testing.T) {
	ch := NewChain(CapabilityTTS, []Entry[string, string]{
		entry("a", "", errors.New("a down")),
		entry("b", "", errors.New("b down")),
	}, nil, nil)

	_, _, err := ch.Invoke(context.Background(), "hi")
	if !core.IsProvidersExhausted(err) {
		t.Fatalf("err = %v, want providers exhausted", err)
	}
	var ce *core.Error
	if !errors.As(err, &ce) {
		t.Fatalf("err is not *core.Error: %v", err)
	}
	if ce.Capability != CapabilityTTS || ce.Attempts != 2 {
		t.Fatalf("capability=%q attempts=%d, want tts/2", ce.Capability, ce.Attempts)
	}
}

func TestChainTimeoutCountsAsFailure(t *testing.T) {
	var outcomes []string
	obs := func(capability, provider, outcome string, elapsed time.Duration) {
		outcomes = append(outcomes, outcome)
	}
	slow := Entry[string, string]{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Invoke: func(ctx context.Context, in string) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "late", nil
			}
		},
	}
	ch := NewChain(CapabilitySTT, []Entry[string, string]{
		slow,
		entry("fast", "ok", nil),
	}, nil, obs)

	out, provider, err := ch.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "ok" || provider != "fast" {
		t.Fatalf("got %q from %q, want ok from fast", out, provider)
	}
	if outcomes[0] != OutcomeTimeout {
		t.Fatalf("first outcome = %q, want timeout", outcomes[0])
	}
}

func TestChainParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := NewChain(CapabilityLLM, []Entry[string, string]{
		entry("a", "ok", nil),
	}, nil, nil)
	_, _, err := ch.Invoke(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context canceled", err)
	}
}

func TestChainExtend(t *testing.T) {
	base := NewChain(CapabilityLLM, []Entry[string, string]{
		entry("local", "", errors.New("local down")),
	}, nil, nil)
	open := base.Extend([]Entry[string, string]{
		entry("cloud", "from-cloud", nil),
	})

	out, provider, err := open.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "from-cloud" || provider != "cloud" {
		t.Fatalf("got %q from %q, want from-cloud from cloud", out, provider)
	}

	// The base chain stays closed.
	if base.Len() != 1 {
		t.Fatalf("base len = %d, want 1", base.Len())
	}
	_, _, err = base.Invoke(context.Background(), "hi")
	if !core.IsProvidersExhausted(err) {
		t.Fatalf("base err = %v, want providers exhausted", err)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"open", PolicyOpen, false},
		{"closed", PolicyClosed, false},
		{"", PolicyClosed, false},
		{"bogus", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePolicy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePolicy(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePolicy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
