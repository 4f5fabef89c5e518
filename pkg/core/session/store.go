// Package session provides the concurrency-safe store of per-call
// conversation state. The call ID is the unit of isolation: operations on
// different calls never block each other, and a second concurrent turn for
// the same call is rejected rather than interleaved.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mvp-scale/talkline/pkg/core"
	"github.com/mvp-scale/talkline/pkg/core/backend"
	"github.com/mvp-scale/talkline/pkg/core/types"
)

// State is the turn-processing state of one call.
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateProcessing    State = "processing"
	StateEnded         State = "ended"
)

// TurnMetrics is the latency breakdown of one completed turn.
type TurnMetrics struct {
	At         time.Time
	LLMLatency time.Duration
	TTSLatency time.Duration
	Total      time.Duration
}

// Metrics accumulates write-only counters for one call. They are read by
// external reporting after the call ends.
type Metrics struct {
	TurnCount    int
	TotalLatency time.Duration
	Turns        []TurnMetrics
}

// Session is the conversation state of one live call. All access goes
// through methods; the zero value is not usable.
type Session struct {
	callID       string
	selection    backend.Selection
	systemPrompt string
	createdAt    time.Time

	mu      sync.Mutex
	state   State
	history []types.Message
	metrics Metrics

	logger *slog.Logger
}

// CallID returns the call identifier.
func (s *Session) CallID() string { return s.callID }

// Selection returns the backend selection this call is pinned to. It is
// assigned once at call start and never changes.
func (s *Session) Selection() backend.Selection { return s.selection }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current turn-processing state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the conversation history.
func (s *Session) History() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the current history length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// AppendUser appends a user utterance to the history.
func (s *Session) AppendUser(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, types.UserMessage(text))
}

// AppendAssistant appends an assistant reply to the history.
func (s *Session) AppendAssistant(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, types.AssistantMessage(text))
}

// AppendTurn appends a user/assistant pair atomically: both entries land
// together or neither does.
func (s *Session) AppendTurn(userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, types.UserMessage(userText), types.AssistantMessage(assistantText))
}

// Truncate bounds the history to maxLen entries, dropping the oldest
// non-system entries. The system entry is never removed; if it is missing
// it is repaired and the violation logged.
func (s *Session) Truncate(maxLen int) {
	if maxLen < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairSystemEntryLocked()
	if len(s.history) <= maxLen {
		return
	}
	kept := make([]types.Message, 0, maxLen)
	kept = append(kept, s.history[0])
	kept = append(kept, s.history[len(s.history)-(maxLen-1):]...)
	s.history = kept
}

func (s *Session) repairSystemEntryLocked() {
	if len(s.history) > 0 && s.history[0].Role == types.RoleSystem {
		return
	}
	if s.logger != nil {
		s.logger.Error("history lost its system entry, repairing", "call_sid", s.callID)
	}
	s.history = append([]types.Message{types.SystemMessage(s.systemPrompt)}, s.history...)
}

// RecordTurn accumulates one turn's latency breakdown.
func (s *Session) RecordTurn(tm TurnMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TurnCount++
	s.metrics.TotalLatency += tm.Total
	s.metrics.Turns = append(s.metrics.Turns, tm)
}

// MetricsSnapshot returns a copy of the accumulated call metrics.
func (s *Session) MetricsSnapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.metrics
	out.Turns = make([]TurnMetrics, len(s.metrics.Turns))
	copy(out.Turns, s.metrics.Turns)
	return out
}

// Store maps call IDs to live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates an empty session store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new session pinned to the given backend selection
// and seeded with the system prompt. It fails with an already exists
// error if the call is live.
func (st *Store) Create(callID string, sel backend.Selection, systemPrompt string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[callID]; ok {
		return nil, core.NewAlreadyExistsError(callID)
	}
	s := &Session{
		callID:       callID,
		selection:    sel,
		systemPrompt: systemPrompt,
		createdAt:    st.now(),
		state:        StateAwaitingInput,
		history:      []types.Message{types.SystemMessage(systemPrompt)},
		logger:       st.logger,
	}
	st.sessions[callID] = s
	return s, nil
}

// Get returns the live session for a call, or a not found error.
func (st *Store) Get(callID string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[callID]
	if !ok {
		return nil, core.NewNotFoundError(callID)
	}
	return s, nil
}

// Destroy removes a session and marks it ended. It reports whether the
// session existed.
func (st *Store) Destroy(callID string) bool {
	st.mu.Lock()
	s, ok := st.sessions[callID]
	delete(st.sessions, callID)
	st.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.state = StateEnded
		s.mu.Unlock()
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// BeginTurn moves a call into the processing state. A second BeginTurn for
// the same call before EndTurn fails with a turn in progress error, which
// is how duplicate webhook deliveries are rejected instead of
// double-processed.
func (st *Store) BeginTurn(callID string) (*Session, error) {
	s, err := st.Get(callID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateProcessing:
		return nil, core.NewTurnInProgressError(callID)
	case StateEnded:
		return nil, core.NewNotFoundError(callID)
	}
	s.state = StateProcessing
	return s, nil
}

// EndTurn returns a call to the awaiting-input state. It is a no-op for
// sessions that ended mid-turn.
func (st *Store) EndTurn(callID string) {
	s, err := st.Get(callID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		s.state = StateAwaitingInput
	}
}
