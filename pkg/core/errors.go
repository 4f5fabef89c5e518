// Package core defines the shared error taxonomy for the call orchestrator.
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured orchestrator error.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	CallID     string    `json:"call_id,omitempty"`
	Capability string    `json:"capability,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`

	underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (provider: %s)", e.Type, e.Message, e.Provider)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.underlying
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidEvent       ErrorType = "invalid_event_error"
	ErrNotFound           ErrorType = "not_found_error"
	ErrAlreadyExists      ErrorType = "already_exists_error"
	ErrTurnInProgress     ErrorType = "turn_in_progress_error"
	ErrProvider           ErrorType = "provider_error"
	ErrProvidersExhausted ErrorType = "providers_exhausted_error"
	ErrInternal           ErrorType = "internal_error"
)

// NewInvalidEventError creates an invalid event error.
func NewInvalidEventError(message string) *Error {
	return &Error{
		Type:    ErrInvalidEvent,
		Message: message,
	}
}

// NewNotFoundError creates a not found error for a call session.
func NewNotFoundError(callID string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("no live session for call %s", callID),
		CallID:  callID,
	}
}

// NewArtifactNotFoundError creates a not found error for an audio artifact.
func NewArtifactNotFoundError(artifactID string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("artifact %s unknown or expired", artifactID),
	}
}

// NewAlreadyExistsError creates an error for a duplicate call start.
func NewAlreadyExistsError(callID string) *Error {
	return &Error{
		Type:    ErrAlreadyExists,
		Message: fmt.Sprintf("session for call %s is already live", callID),
		CallID:  callID,
	}
}

// NewTurnInProgressError creates an error for a concurrent turn collision.
func NewTurnInProgressError(callID string) *Error {
	return &Error{
		Type:    ErrTurnInProgress,
		Message: fmt.Sprintf("call %s is already processing a turn", callID),
		CallID:  callID,
	}
}

// NewProviderError wraps a single provider attempt failure.
func NewProviderError(capability, provider string, underlying error) *Error {
	return &Error{
		Type:       ErrProvider,
		Message:    fmt.Sprintf("%s: %v", provider, underlying),
		Capability: capability,
		Provider:   provider,
		underlying: underlying,
	}
}

// NewProvidersExhaustedError signals that every provider in the fallback
// order for a capability failed within one turn.
func NewProvidersExhaustedError(capability string, attempts int) *Error {
	return &Error{
		Type:       ErrProvidersExhausted,
		Message:    fmt.Sprintf("all %d %s providers exhausted", attempts, capability),
		Capability: capability,
		Attempts:   attempts,
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrInternal,
		Message:    message,
		underlying: underlying,
	}
}

// IsType reports whether err is an *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return IsType(err, ErrNotFound) }

// IsAlreadyExists reports whether err is an already exists error.
func IsAlreadyExists(err error) bool { return IsType(err, ErrAlreadyExists) }

// IsTurnInProgress reports whether err is a turn collision error.
func IsTurnInProgress(err error) bool { return IsType(err, ErrTurnInProgress) }

// IsProvidersExhausted reports whether err is a fallback exhaustion error.
func IsProvidersExhausted(err error) bool { return IsType(err, ErrProvidersExhausted) }
