// Package backend implements ordered provider fallback for the speech and
// language capabilities. A call is pinned to a selection (tier) at call
// start; the selection's policy decides whether exhaustion of its own
// provider order may overflow into another tier's order.
package backend

import (
	"fmt"
	"time"
)

// Capability names used in logs, metrics, and errors.
const (
	CapabilitySTT = "stt"
	CapabilityLLM = "llm"
	CapabilityTTS = "tts"
)

// Policy controls cross-tier fallback for a selection.
type Policy string

const (
	// PolicyOpen lets an exhausted provider order fall through to the
	// overflow tier's providers.
	PolicyOpen Policy = "open"
	// PolicyClosed stops at the tier boundary; on exhaustion the turn
	// processor substitutes a fixed safe reply and the call continues.
	PolicyClosed Policy = "closed"
)

// ParsePolicy validates a policy string. Empty means closed.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case PolicyOpen, PolicyClosed:
		return Policy(raw), nil
	case "":
		return PolicyClosed, nil
	default:
		return "", fmt.Errorf("fallback policy must be open or closed, got %q", raw)
	}
}

// Selection names a provider tier and its fallback policy. Assignment is
// per call, immutable for the call's duration.
type Selection struct {
	Name   string
	Policy Policy
}

// Attempt outcomes reported to the observer.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// AttemptObserver receives the outcome of every provider attempt. Wired to
// Prometheus in the gateway; nil disables observation.
type AttemptObserver func(capability, provider, outcome string, elapsed time.Duration)
