package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/memory"
	"github.com/kokoro-labs/animus/pkg/session"
)

func stateAt(id string, updatedAt time.Time) *memory.ConversationState {
	return &memory.ConversationState{SessionID: id, UpdatedAt: updatedAt}
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, session.DefaultSessionID, session.NormalizeID(""))
	assert.Equal(t, session.DefaultSessionID, session.NormalizeID("   "))
	assert.Equal(t, "abc", session.NormalizeID(" abc "))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := session.NewMemoryStore(4)
	ctx := context.Background()

	state := stateAt("sess-1", time.Now())
	state.Turns = []memory.Turn{{Role: "user", Content: "hi"}}
	require.NoError(t, s.Put(ctx, "sess-1", state))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)

	// The store hands out copies, not aliases.
	got.Turns[0].Content = "mutated"
	again, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Turns[0].Content)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	s := session.NewMemoryStore(4)

	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestMemoryStorePrunesStalest(t *testing.T) {
	s := session.NewMemoryStore(2)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.Put(ctx, "old", stateAt("old", base.Add(-2*time.Hour))))
	require.NoError(t, s.Put(ctx, "mid", stateAt("mid", base.Add(-time.Hour))))
	require.NoError(t, s.Put(ctx, "new", stateAt("new", base)))

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "old")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = s.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestMemoryStoreNeverPrunesDefaultSession(t *testing.T) {
	s := session.NewMemoryStore(2)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.Put(ctx, session.DefaultSessionID,
		stateAt(session.DefaultSessionID, base.Add(-24*time.Hour))))
	require.NoError(t, s.Put(ctx, "a", stateAt("a", base.Add(-time.Hour))))
	require.NoError(t, s.Put(ctx, "b", stateAt("b", base)))

	_, err := s.Get(ctx, session.DefaultSessionID)
	assert.NoError(t, err)
}

func TestFitSizeLimitDropsOldestTurnsFirst(t *testing.T) {
	state := &memory.ConversationState{SessionID: "big", Compressed: "earlier context"}
	for i := 0; i < 40; i++ {
		state.Turns = append(state.Turns, memory.Turn{
			Role:    "user",
			Content: strings.Repeat("x", 100),
		})
	}

	fitted := session.FitSizeLimit(state, 2048)
	assert.Less(t, len(fitted.Turns), len(state.Turns))
	assert.Equal(t, "earlier context", fitted.Compressed)
	// The newest turns survive.
	assert.Equal(t, state.Turns[len(state.Turns)-1], fitted.Turns[len(fitted.Turns)-1])
	// The input was not mutated.
	assert.Len(t, state.Turns, 40)
}

func TestFitSizeLimitShrinksCompressedLast(t *testing.T) {
	state := &memory.ConversationState{
		SessionID:  "big",
		Compressed: strings.Repeat("summary ", 1000),
		Turns: []memory.Turn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	}

	fitted := session.FitSizeLimit(state, 1024)
	assert.Len(t, fitted.Turns, 2)
	assert.Less(t, len(fitted.Compressed), len(state.Compressed))
}

func TestFitSizeLimitNoOpWhenSmall(t *testing.T) {
	state := stateAt("small", time.Now())
	assert.Same(t, state, session.FitSizeLimit(state, 1<<20))
}
