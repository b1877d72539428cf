// Package desire implements the desire-priority scheduler: a fixed catalog of
// motivational variables whose satisfaction decays over time, and the
// selection rule that turns the most urgent one into the next autonomous
// action.
package desire

import "time"

// Desire is a single motivational variable.
//
// Satisfaction lives in [0,1]: 1.0 means fully content, 0.0 means completely
// neglected. Satisfaction decays linearly by DecayRate per minute between
// Satisfy calls and is raised again when a satisfying action completes.
type Desire struct {
	// ID is the catalog key, "category.name" (e.g. "sensory.vision").
	ID string `json:"-"`

	// Category groups desires for the persisted document layout
	// (sensory, social, creative, autonomy).
	Category string `json:"-"`

	// Name is the human-readable display label.
	Name string `json:"name"`

	// Description explains what the desire is about.
	Description string `json:"description"`

	// Satisfaction is the current satisfaction level, clamped to [0,1].
	Satisfaction float64 `json:"satisfaction"`

	// BaseImportance is the priority weight (>= 0).
	BaseImportance float64 `json:"base_importance"`

	// DecayRate is the fraction of satisfaction lost per minute.
	DecayRate float64 `json:"decay_rate"`

	// Capabilities lists capability ids whose invocation can satisfy this
	// desire. Empty for purely conversational desires.
	Capabilities []string `json:"capabilities,omitempty"`

	// Prompts are inner-voice phrasings injected into autonomous prompts.
	Prompts []string `json:"prompts,omitempty"`

	// LastSatisfied is when the desire was last satisfied.
	LastSatisfied time.Time `json:"last_satisfied"`
}

// Priority returns the selection score: base importance weighted by how
// unsatisfied the desire currently is.
func (d *Desire) Priority() float64 {
	return d.BaseImportance * (1.0 - d.Satisfaction)
}

// Conversational reports whether the desire declares no capabilities and is
// therefore served by a reply alone.
func (d *Desire) Conversational() bool {
	return len(d.Capabilities) == 0
}

// clone returns a deep copy, used by store snapshots.
func (d *Desire) clone() *Desire {
	c := *d
	c.Capabilities = append([]string(nil), d.Capabilities...)
	c.Prompts = append([]string(nil), d.Prompts...)
	return &c
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
