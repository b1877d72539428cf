// Package core holds the shared vocabulary of the Animus service:
// configuration, sentinel errors, and the request/result types the agent and
// its transports exchange.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrConfig indicates a malformed or missing configuration document.
	// Fatal at startup: the process must not start with it.
	ErrConfig = errors.New("invalid configuration")

	// ErrPersistence indicates a durable-storage write failure after the
	// single retry has been exhausted.
	ErrPersistence = errors.New("persistence failed")

	// ErrCollaborator indicates that an external collaborator (LLM, tool,
	// TTS) failed. Non-fatal: the exchange fails, stores stay unchanged.
	ErrCollaborator = errors.New("collaborator failed")

	// ErrRateLimited indicates an autonomous tick arrived before the
	// configured minimum interval elapsed. Callers should retry later.
	ErrRateLimited = errors.New("tick rate limited")

	// ErrNotFound indicates a reference to an unknown desire or capability
	// id. Under correct orchestration this signals a configuration mismatch.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// AgentError wraps errors with operation context.
//
// It records which operation failed, making error messages more
// informative for debugging.
//
// Example:
//
//	err := &AgentError{
//	    Op:  "Tick",
//	    Err: ErrRateLimited,
//	}
//	// Error() returns: "animus: Tick: tick rate limited"
type AgentError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "animus: <Op>: <Err>"
func (e *AgentError) Error() string {
	return fmt.Sprintf("animus: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with AgentError.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewAgentError("Tick", err)
//	}
func NewAgentError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AgentError{
		Op:  op,
		Err: err,
	}
}
