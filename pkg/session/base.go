// Package session stores per-session conversation state. The default backend
// is an in-memory bounded cache; a DynamoDB backend is available for
// deployments whose process can be recycled between requests.
package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kokoro-labs/animus/pkg/memory"
)

// DefaultSessionID is used when a request carries no session id.
const DefaultSessionID = "default"

// Store holds conversation state keyed by session id.
type Store interface {
	// Get returns the state for a session, or an error wrapping
	// core.ErrNotFound when the session is unknown.
	Get(ctx context.Context, sessionID string) (*memory.ConversationState, error)

	// Put stores the state for a session.
	Put(ctx context.Context, sessionID string, state *memory.ConversationState) error

	// Close releases the store's resources.
	Close() error
}

// NormalizeID maps blank or whitespace session ids onto the default session.
func NormalizeID(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}

// FitSizeLimit returns a state whose JSON encoding fits within maxBytes,
// dropping the oldest turns first and then halving the compressed summary.
// The input state is never mutated; when it already fits it is returned
// as is. Backends with per-item size limits call this before writing.
func FitSizeLimit(state *memory.ConversationState, maxBytes int) *memory.ConversationState {
	if maxBytes <= 0 || encodedLen(state) <= maxBytes {
		return state
	}

	cp := state.Clone()
	for len(cp.Turns) > 2 && encodedLen(cp) > maxBytes {
		cp.Turns = cp.Turns[1:]
	}
	for cp.Compressed != "" && encodedLen(cp) > maxBytes {
		runes := []rune(cp.Compressed)
		if len(runes) < 8 {
			cp.Compressed = ""
			break
		}
		cp.Compressed = string(runes[len(runes)/2:])
	}
	return cp
}

func encodedLen(state *memory.ConversationState) int {
	encoded, err := json.Marshal(state)
	if err != nil {
		return 0
	}
	return len(encoded)
}
