// Package orchestrator coordinates call lifecycle events across the
// session store, turn processor, and artifact store. Every handler
// returns a well formed instruction list; failures never surface to the
// telephony layer as errors.
package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/artifact"
	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/session"
	"github.com/mvp-scale/talkline/pkg/core/turn"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// Observer receives call lifecycle notifications. Any field may be nil.
type Observer struct {
	CallStarted   func()
	CallEnded     func(turns int, duration time.Duration)
	TurnCompleted func()
}

// Config tunes the orchestrator.
type Config struct {
	// Selection is the backend tier and fallback policy pinned to every
	// new call. It never changes for the call's duration.
	Selection    backend.Selection
	SystemPrompt string
}

// Orchestrator routes parsed telephony events to per-call processing.
type Orchestrator struct {
	sessions  *session.Store
	artifacts *artifact.Store
	proc      *turn.Processor
	cfg       Config
	obs       Observer
	logger    *slog.Logger
}

// New creates an orchestrator.
func New(sessions *session.Store, artifacts *artifact.Store, proc *turn.Processor, cfg Config, obs Observer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Selection.Name == "" {
		cfg.Selection = backend.Selection{Name: "local", Policy: backend.PolicyClosed}
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful voice assistant. Keep replies short and conversational."
	}
	return &Orchestrator{
		sessions:  sessions,
		artifacts: artifacts,
		proc:      proc,
		cfg:       cfg,
		obs:       obs,
		logger:    logger,
	}
}

// HandleCallStart creates the session and greets the caller. A duplicate
// start for a live call re-issues the greeting without a second session.
func (o *Orchestrator) HandleCallStart(ctx context.Context, ev types.CallStart) types.Instructions {
	_, err := o.sessions.Create(ev.CallID, o.cfg.Selection, o.cfg.SystemPrompt)
	if err != nil {
		if core.IsAlreadyExists(err) {
			o.logger.Info("duplicate call start", "call_id", ev.CallID)
			return o.proc.Greeting()
		}
		o.logger.Error("session create failed", "call_id", ev.CallID, "error", err)
		return hangupOnly()
	}

	o.logger.Info("call started",
		"call_id", ev.CallID,
		"from", ev.From,
		"to", ev.To,
		"direction", ev.Direction,
		"tier", o.cfg.Selection.Name,
		"policy", string(o.cfg.Selection.Policy),
	)
	if o.obs.CallStarted != nil {
		o.obs.CallStarted()
	}
	return o.proc.Greeting()
}

// HandleUtterance runs one conversation turn. Duplicate deliveries for a
// turn already in flight are acknowledged with an empty instruction list
// so the platform retry causes no second history mutation.
func (o *Orchestrator) HandleUtterance(ctx context.Context, ev types.Utterance) types.Instructions {
	sess, err := o.sessions.BeginTurn(ev.CallID)
	if err != nil {
		switch {
		case core.IsTurnInProgress(err):
			o.logger.Info("duplicate turn event dropped", "call_id", ev.CallID)
			return types.Instructions{}
		case core.IsNotFound(err):
			o.logger.Warn("utterance for unknown call", "call_id", ev.CallID)
			return unknownCall()
		default:
			o.logger.Error("begin turn failed", "call_id", ev.CallID, "error", err)
			return unknownCall()
		}
	}

	ins, ended := o.proc.ProcessUtterance(ctx, sess, ev.Transcript)
	if ended {
		o.endCall(sess, "caller goodbye")
		return ins
	}
	o.sessions.EndTurn(ev.CallID)
	if o.obs.TurnCompleted != nil {
		o.obs.TurnCompleted()
	}
	return ins
}

// HandleNoInput re-prompts after a listen timeout.
func (o *Orchestrator) HandleNoInput(ctx context.Context, ev types.NoInput) types.Instructions {
	sess, err := o.sessions.BeginTurn(ev.CallID)
	if err != nil {
		if core.IsTurnInProgress(err) {
			return types.Instructions{}
		}
		o.logger.Warn("no-input for unknown call", "call_id", ev.CallID)
		return unknownCall()
	}
	defer o.sessions.EndTurn(ev.CallID)

	return o.proc.ProcessNoInput(sess, ev.Reason)
}

// HandleCallStatus destroys the session when the platform reports a
// terminal status. Non-terminal updates are logged only.
func (o *Orchestrator) HandleCallStatus(ctx context.Context, ev types.CallStatus) {
	if !ev.Terminal() {
		o.logger.Debug("call status", "call_id", ev.CallID, "status", ev.Status)
		return
	}
	sess, err := o.sessions.Get(ev.CallID)
	if err != nil {
		return
	}
	o.endCall(sess, ev.Status)
}

// ActiveCalls returns the number of live sessions.
func (o *Orchestrator) ActiveCalls() int {
	return o.sessions.Len()
}

// ResolveArtifact streams a generated audio artifact.
func (o *Orchestrator) ResolveArtifact(id string) (io.ReadCloser, *artifact.Artifact, error) {
	return o.artifacts.Open(id)
}

func (o *Orchestrator) endCall(sess *session.Session, reason string) {
	callID := sess.CallID()
	if !o.sessions.Destroy(callID) {
		return
	}
	m := sess.MetricsSnapshot()
	duration := time.Since(sess.CreatedAt())
	o.logger.Info("call ended",
		"call_id", callID,
		"reason", reason,
		"turns", m.TurnCount,
		"duration_ms", duration.Milliseconds(),
		"turn_latency_ms", m.TotalLatency.Milliseconds(),
	)
	if o.obs.CallEnded != nil {
		o.obs.CallEnded(m.TurnCount, duration)
	}
}

// unknownCall tells the platform to end a call the orchestrator has no
// session for, rather than looping on retries.
func unknownCall() types.Instructions {
	return types.Instructions{
		types.Say{Text: "I'm sorry, I've lost track of this call. Goodbye."},
		types.Hangup{},
	}
}

func hangupOnly() types.Instructions {
	return types.Instructions{types.Hangup{}}
}
