package session

import (
	"context"
	"fmt"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/memory"
)

// MemoryStore is an in-process session store bounded to maxSessions entries.
// When the bound is exceeded the least recently updated session is dropped.
type MemoryStore struct {
	states      map[string]*memory.ConversationState
	maxSessions int
}

// NewMemoryStore creates an in-memory store. maxSessions defaults to 32 when
// non-positive.
func NewMemoryStore(maxSessions int) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = 32
	}
	return &MemoryStore{
		states:      make(map[string]*memory.ConversationState),
		maxSessions: maxSessions,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*memory.ConversationState, error) {
	state, ok := m.states[sessionID]
	if !ok {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound))
	}
	return state.Clone(), nil
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, sessionID string, state *memory.ConversationState) error {
	m.states[sessionID] = state.Clone()
	m.prune()
	return nil
}

// prune drops the stalest sessions until the store fits its bound. The
// default session is never dropped.
func (m *MemoryStore) prune() {
	for len(m.states) > m.maxSessions {
		oldest := ""
		for id, state := range m.states {
			if id == DefaultSessionID {
				continue
			}
			if oldest == "" || state.UpdatedAt.Before(m.states[oldest].UpdatedAt) {
				oldest = id
			}
		}
		if oldest == "" {
			return
		}
		delete(m.states, oldest)
	}
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	return len(m.states)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
