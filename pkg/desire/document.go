package desire

import (
	"fmt"
	"sort"
	"time"

	"github.com/kokoro-labs/animus/pkg/core"
)

// SchemaVersion is the current desires document schema version.
const SchemaVersion = 1

// Document is the persisted form of the desire catalog. Desires are grouped
// by category and keyed by their short id, with the category prefix stripped.
type Document struct {
	SchemaVersion int                           `json:"schema_version"`
	UpdatedAt     time.Time                     `json:"updated_at"`
	Desires       map[string]map[string]*Desire `json:"desires"`
}

// Document renders the store as a persistable document.
func (s *Store) Document(now time.Time) *Document {
	byCategory := make(map[string]map[string]*Desire)
	for _, d := range s.desires {
		if byCategory[d.Category] == nil {
			byCategory[d.Category] = make(map[string]*Desire)
		}
		byCategory[d.Category][shortID(d.ID, d.Category)] = d.clone()
	}
	return &Document{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     now,
		Desires:       byCategory,
	}
}

// FromDocument rebuilds a catalog from a persisted document.
//
// Documents with a schema version newer than this build understands are
// rejected; older versions load as-is (forward-compatible fields keep their
// zero values).
func FromDocument(doc *Document) ([]*Desire, error) {
	if doc.SchemaVersion > SchemaVersion {
		return nil, core.NewAgentError("FromDocument",
			fmt.Errorf("desires document schema %d is newer than supported %d: %w",
				doc.SchemaVersion, SchemaVersion, core.ErrConfig))
	}

	var catalog []*Desire
	categories := make([]string, 0, len(doc.Desires))
	for category := range doc.Desires {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		shortIDs := make([]string, 0, len(doc.Desires[category]))
		for id := range doc.Desires[category] {
			shortIDs = append(shortIDs, id)
		}
		sort.Strings(shortIDs)
		for _, id := range shortIDs {
			d := doc.Desires[category][id].clone()
			d.Category = category
			d.ID = category + "." + id
			d.Satisfaction = clamp01(d.Satisfaction)
			catalog = append(catalog, d)
		}
	}
	return catalog, nil
}

// shortID strips the category prefix from a full desire id.
func shortID(id, category string) string {
	prefix := category + "."
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}
