package memory

import (
	"fmt"
	"time"

	"github.com/kokoro-labs/animus/pkg/core"
)

// SchemaVersion is the current memories document schema version.
const SchemaVersion = 1

// Document is the persisted form of long-term memory.
type Document struct {
	SchemaVersion int       `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at"`
	Summary       string    `json:"summary,omitempty"`
	Records       []*Record `json:"records"`
}

// Document renders the store as a persistable document.
func (s *Store) Document(now time.Time) *Document {
	records := make([]*Record, len(s.records))
	for i, r := range s.records {
		records[i] = r.clone()
	}
	return &Document{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     now,
		Summary:       s.summary,
		Records:       records,
	}
}

// Load replaces the store's contents with a persisted document.
func (s *Store) Load(doc *Document) error {
	if doc.SchemaVersion > SchemaVersion {
		return core.NewAgentError("Load",
			fmt.Errorf("memories document schema %d is newer than supported %d: %w",
				doc.SchemaVersion, SchemaVersion, core.ErrConfig))
	}
	s.records = make([]*Record, 0, len(doc.Records))
	for _, r := range doc.Records {
		cp := r.clone()
		cp.Importance = clamp01(cp.Importance)
		cp.Kind = normalizeKind(string(cp.Kind))
		s.records = append(s.records, cp)
	}
	s.summary = doc.Summary
	return nil
}
