// Package turn drives a single conversation turn from caller input to
// the instruction list returned to the telephony platform.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mvp-scale/talkline/pkg/core/artifact"
	"github.com/mvp-scale/talkline/pkg/core/backend/llm"
	"github.com/mvp-scale/talkline/pkg/core/backend/tts"
	"github.com/mvp-scale/talkline/pkg/core/session"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// terminationPhrases end the call when the utterance contains any of
// them. Matching is case-insensitive substring containment.
var terminationPhrases = []string{
	"goodbye",
	"bye",
	"see you",
	"talk to you later",
	"gotta go",
	"have to go",
	"end call",
	"hang up",
}

// Canned replies. Overridable via Config.
const (
	defaultGreeting = "Hello! I'm your assistant. How can I help you today?"
	defaultFarewell = "It was wonderful talking with you! Have a great day, and feel free to call back anytime. Goodbye!"
	defaultApology  = "I apologize, but I'm having a technical issue right now. Let me try again. What would you like to talk about?"
	defaultReprompt = "I didn't catch that. Could you please repeat what you'd like to talk about?"
)

// Config tunes the processor.
type Config struct {
	// ActionURL is the webhook the platform posts the next utterance to.
	ActionURL string
	// AudioBaseURL prefixes generated artifact ids in play instructions.
	AudioBaseURL string

	GatherTimeoutSeconds int
	SpeechTimeoutSeconds int
	MaxHistory           int

	// ExtraPhrases extend the fixed termination phrase set.
	ExtraPhrases []string

	Greeting string
	Farewell string
	Apology  string
	Reprompt string

	TTSOpts tts.SynthesizeOptions
}

func (c *Config) applyDefaults() {
	if c.GatherTimeoutSeconds == 0 {
		c.GatherTimeoutSeconds = 15
	}
	if c.SpeechTimeoutSeconds == 0 {
		c.SpeechTimeoutSeconds = 2
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 11
	}
	if c.Greeting == "" {
		c.Greeting = defaultGreeting
	}
	if c.Farewell == "" {
		c.Farewell = defaultFarewell
	}
	if c.Apology == "" {
		c.Apology = defaultApology
	}
	if c.Reprompt == "" {
		c.Reprompt = defaultReprompt
	}
}

// Processor turns caller input into history mutations and telephony
// instructions. It never returns an error to the gateway; every failure
// path degrades to a spoken reply.
type Processor struct {
	replies   *llm.Chain
	speech    *tts.Chain
	artifacts *artifact.Store
	cfg       Config
	logger    *slog.Logger
}

// NewProcessor creates a turn processor.
func NewProcessor(replies *llm.Chain, speech *tts.Chain, artifacts *artifact.Store, cfg Config, logger *slog.Logger) *Processor {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		replies:   replies,
		speech:    speech,
		artifacts: artifacts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Greeting returns the instruction list for a newly answered call.
func (p *Processor) Greeting() types.Instructions {
	return types.Instructions{
		types.Say{Text: p.cfg.Greeting},
		p.gather(),
	}
}

// Farewell returns the instruction list that ends a call politely.
func (p *Processor) Farewell() types.Instructions {
	return types.Instructions{
		types.Say{Text: p.cfg.Farewell},
		types.Hangup{},
	}
}

// Reprompt returns the instruction list for a missed or empty utterance.
// History is not touched.
func (p *Processor) Reprompt() types.Instructions {
	return types.Instructions{
		types.Say{Text: p.cfg.Reprompt},
		p.gather(),
	}
}

// IsTermination reports whether the utterance asks to end the call.
func (p *Processor) IsTermination(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range terminationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, phrase := range p.cfg.ExtraPhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// ProcessUtterance runs one turn. The returned ended flag tells the
// caller to destroy the session. The termination check runs before the
// user entry is appended, so a goodbye never mutates history.
func (p *Processor) ProcessUtterance(ctx context.Context, sess *session.Session, transcript string) (ins types.Instructions, ended bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("turn processing panic",
				"call_id", sess.CallID(),
				"panic", fmt.Sprint(r),
			)
			ins, ended = p.apology(), false
		}
	}()

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return p.Reprompt(), false
	}
	if p.IsTermination(transcript) {
		p.logger.Info("termination phrase detected", "call_id", sess.CallID())
		return p.Farewell(), true
	}

	turnStart := time.Now()

	sess.AppendUser(transcript)
	sess.Truncate(p.cfg.MaxHistory)

	llmStart := time.Now()
	reply, replyProvider, err := p.replies.Invoke(ctx, sess.History())
	llmLatency := time.Since(llmStart)
	if err != nil {
		// User entry stays so the next turn still has the context.
		p.logger.Warn("reply generation failed",
			"call_id", sess.CallID(),
			"error", err,
		)
		return p.apology(), false
	}

	sess.AppendAssistant(reply)
	sess.Truncate(p.cfg.MaxHistory)

	ttsStart := time.Now()
	syn, synProvider, err := p.speech.Invoke(ctx, tts.Input{Text: reply, Opts: p.cfg.TTSOpts})
	ttsLatency := time.Since(ttsStart)

	sess.RecordTurn(session.TurnMetrics{
		At:         turnStart,
		LLMLatency: llmLatency,
		TTSLatency: ttsLatency,
		Total:      time.Since(turnStart),
	})

	if err != nil {
		// The reply stays in history; only the spoken delivery degrades.
		p.logger.Warn("speech synthesis failed",
			"call_id", sess.CallID(),
			"reply_provider", replyProvider,
			"error", err,
		)
		return p.apology(), false
	}

	id, err := p.artifacts.Put(syn.Audio, sess.CallID(), synProvider, syn.Format)
	if err != nil {
		p.logger.Error("artifact store put failed",
			"call_id", sess.CallID(),
			"error", err,
		)
		return p.apology(), false
	}

	p.logger.Info("turn completed",
		"call_id", sess.CallID(),
		"reply_provider", replyProvider,
		"speech_provider", synProvider,
		"llm_ms", llmLatency.Milliseconds(),
		"tts_ms", ttsLatency.Milliseconds(),
	)

	return types.Instructions{
		types.Play{URL: p.cfg.AudioBaseURL + "/" + id},
		p.gather(),
	}, false
}

// ProcessNoInput handles a listen timeout. History is never mutated.
func (p *Processor) ProcessNoInput(sess *session.Session, reason string) types.Instructions {
	p.logger.Info("no input", "call_id", sess.CallID(), "reason", reason)
	return p.Reprompt()
}

func (p *Processor) apology() types.Instructions {
	return types.Instructions{
		types.Say{Text: p.cfg.Apology},
		p.gather(),
	}
}

func (p *Processor) gather() types.Gather {
	return types.Gather{
		InputModes:           []string{"speech"},
		TimeoutSeconds:       p.cfg.GatherTimeoutSeconds,
		SpeechTimeoutSeconds: p.cfg.SpeechTimeoutSeconds,
		ActionURL:            p.cfg.ActionURL,
	}
}
