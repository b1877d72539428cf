package memory

import (
	"context"
	"strings"
	"time"

	"github.com/kokoro-labs/animus/pkg/llm"
)

// Turn is one utterance in a conversation buffer.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ConversationState is the short-term memory of one session: the ordered
// recent turns plus the compressed summary of everything older.
type ConversationState struct {
	SessionID  string    `json:"session_id"`
	Turns      []Turn    `json:"turns"`
	Compressed string    `json:"compressed,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the state.
func (c *ConversationState) Clone() *ConversationState {
	cp := *c
	cp.Turns = append([]Turn(nil), c.Turns...)
	return &cp
}

// ContextMessages renders the state as LLM history: the compressed summary
// first, as a recalled exchange, then the live turns.
func (c *ConversationState) ContextMessages() []llm.Message {
	var out []llm.Message
	if c.Compressed != "" {
		out = append(out,
			llm.Message{Role: "user", Content: "[Previous Conversation Summary]\n" + c.Compressed},
			llm.Message{Role: "assistant", Content: "Yes, I remember! Let's continue."},
		)
	}
	for _, t := range c.Turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// Compactor folds the oldest turns of an over-full conversation buffer into
// the compressed summary through the LLM collaborator.
type Compactor struct {
	provider llm.Provider

	// watermark is the buffer length that triggers compaction.
	watermark int

	// target is the buffer length compaction aims to shrink back to when
	// the buffer sits between target and watermark.
	target int
}

// NewCompactor creates a compactor. Watermark defaults to 15 turns and
// target to 8 when non-positive values are given.
func NewCompactor(provider llm.Provider, watermark, target int) *Compactor {
	if watermark <= 0 {
		watermark = 15
	}
	if target <= 0 {
		target = 8
	}
	if target >= watermark {
		target = watermark / 2
	}
	return &Compactor{provider: provider, watermark: watermark, target: target}
}

// Due reports whether the state's buffer has reached the watermark.
func (c *Compactor) Due(state *ConversationState) bool {
	return len(state.Turns) >= c.watermark
}

// Compact summarizes the oldest turns of the buffer and returns the new
// compressed context, the turns it consumed, and the turns that remain.
//
// The input state is never mutated: the caller applies the result with
// ApplyCompaction only after the new state has been durably stored. When the
// summarization fails the error is returned and the buffer is left for the
// next attempt. A buffer too small to split is a no-op.
func (c *Compactor) Compact(ctx context.Context, state *ConversationState) (compressed string, consumed, remaining []Turn, err error) {
	split := c.splitPoint(len(state.Turns))
	if split < 2 {
		return state.Compressed, nil, state.Turns, nil
	}

	consumed = append([]Turn(nil), state.Turns[:split]...)
	remaining = append([]Turn(nil), state.Turns[split:]...)

	tail := make([]llm.Message, 0, len(consumed))
	for _, t := range consumed {
		tail = append(tail, llm.Message{Role: t.Role, Content: t.Content})
	}
	if strings.TrimSpace(llm.FormatTranscript(tail)) == "" {
		// Nothing textual to summarize; just trim the old turns.
		return state.Compressed, consumed, remaining, nil
	}

	summary, err := c.provider.Summarize(ctx, tail, "")
	if err != nil {
		return "", nil, nil, err
	}

	if state.Compressed != "" {
		compressed = state.Compressed + "\n\n" + summary
	} else {
		compressed = summary
	}
	return compressed, consumed, remaining, nil
}

// splitPoint picks how many of the oldest turns to fold: half the buffer
// once it is over the watermark, otherwise just enough to get back to the
// target length.
func (c *Compactor) splitPoint(n int) int {
	if n < 2 {
		return 0
	}
	if n >= c.watermark {
		return n / 2
	}
	split := n - c.target
	if split < 2 {
		return 0
	}
	return split
}

// ApplyCompaction writes a Compact result into the state.
func ApplyCompaction(state *ConversationState, compressed string, remaining []Turn) {
	state.Compressed = compressed
	state.Turns = remaining
}
