// Package memory implements long-term memory storage and short-term
// conversation compaction for the agent.
//
// Long-term memory is a bounded set of scored records. Each record carries an
// importance in [0,1] that decays with age; retrieval combines decayed
// importance with keyword overlap against a query. Short-term memory is a
// per-session conversation buffer compacted through the LLM collaborator when
// it grows past a watermark.
package memory

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind classifies a long-term record.
type Kind string

const (
	// KindEpisodic records a concrete event or interaction.
	KindEpisodic Kind = "episodic"
	// KindSemantic records a fact or piece of knowledge.
	KindSemantic Kind = "semantic"
	// KindEmotional records an affective impression.
	KindEmotional Kind = "emotional"
)

// Record is a single long-term memory unit. Content and kind are fixed at
// creation; only importance changes over the record's lifetime, and only
// through Store.Consolidate.
type Record struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Keywords   []string  `json:"keywords,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	SessionID  string    `json:"session_id,omitempty"`
}

var idNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic("memory: snowflake node: " + err.Error())
	}
	idNode = node
}

// NewRecord creates a record with a generated id and the given creation time.
// Importance is clamped to [0,1].
func NewRecord(kind Kind, content string, importance float64, keywords []string, now time.Time) *Record {
	return &Record{
		ID:         "mem_" + idNode.Generate().String(),
		Kind:       kind,
		Content:    content,
		Importance: clamp01(importance),
		Keywords:   append([]string(nil), keywords...),
		CreatedAt:  now,
	}
}

func (r *Record) clone() *Record {
	c := *r
	c.Keywords = append([]string(nil), r.Keywords...)
	return &c
}

// normalizeKind maps loose kind labels, including the short forms the
// extraction model tends to emit, onto the canonical Kind values.
func normalizeKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "episodic", "episode", "event":
		return KindEpisodic
	case "emotional", "emotion", "feeling":
		return KindEmotional
	default:
		return KindSemantic
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
