// Package persona holds the agent's identity document: who the persona is,
// what it values, and the consistency rules its responses are checked
// against. The document is loaded once at startup and never mutated by the
// core.
package persona

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kokoro-labs/animus/pkg/core"
)

// SchemaVersion is the current persona document schema version.
const SchemaVersion = 1

// Relationship describes the persona's tie to another party.
type Relationship struct {
	Type                string  `json:"type"`
	Importance          float64 `json:"importance"`
	EmotionalAttachment float64 `json:"emotional_attachment"`
}

// Identity is the persona's basic self-description.
type Identity struct {
	Name          string                  `json:"name"`
	Attributes    map[string]string       `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Value is a weighted core value.
type Value struct {
	Value      string  `json:"value"`
	Importance float64 `json:"importance"`
}

// ConsistencyRule is a named voice constraint with a weight.
type ConsistencyRule struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Narrative is the persona's self-story.
type Narrative struct {
	Origin         string   `json:"origin,omitempty"`
	CurrentChapter string   `json:"current_chapter,omitempty"`
	Aspirations    []string `json:"future_aspirations,omitempty"`
}

// Config is the full persona document.
type Config struct {
	SchemaVersion    int               `json:"schema_version"`
	Identity         Identity          `json:"identity"`
	Values           []Value           `json:"values,omitempty"`
	Strengths        []string          `json:"strengths,omitempty"`
	ConsistencyRules []ConsistencyRule `json:"consistency_rules,omitempty"`
	Narrative        Narrative         `json:"narrative"`
}

// Validate checks the loaded document for usability.
func (c *Config) Validate() error {
	if c.SchemaVersion > SchemaVersion {
		return core.NewAgentError("Validate",
			fmt.Errorf("persona document schema %d is newer than supported %d: %w",
				c.SchemaVersion, SchemaVersion, core.ErrConfig))
	}
	if c.Identity.Name == "" {
		return core.NewAgentError("Validate",
			fmt.Errorf("persona name is required: %w", core.ErrConfig))
	}
	return nil
}

// IdentityContext renders the self-introduction block injected into every
// system prompt.
func (c *Config) IdentityContext() string {
	parts := []string{fmt.Sprintf("[I am %s]", c.Identity.Name)}

	keys := make([]string, 0, len(c.Identity.Attributes))
	for k := range c.Identity.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("- %s: %s", k, c.Identity.Attributes[k]))
	}

	relIDs := make([]string, 0, len(c.Identity.Relationships))
	for id := range c.Identity.Relationships {
		relIDs = append(relIDs, id)
	}
	sort.Strings(relIDs)
	for _, id := range relIDs {
		if t := c.Identity.Relationships[id].Type; t != "" {
			parts = append(parts, fmt.Sprintf("- %s: %s", id, t))
		}
	}

	if len(c.Values) > 0 {
		n := len(c.Values)
		if n > 3 {
			n = 3
		}
		names := make([]string, n)
		for i := 0; i < n; i++ {
			names[i] = c.Values[i].Value
		}
		parts = append(parts, "- Values: "+strings.Join(names, ", "))
	}
	if len(c.Strengths) > 0 {
		n := len(c.Strengths)
		if n > 3 {
			n = 3
		}
		parts = append(parts, "- Strengths: "+strings.Join(c.Strengths[:n], ", "))
	}
	if c.Narrative.CurrentChapter != "" {
		parts = append(parts, "- Current chapter: "+c.Narrative.CurrentChapter)
	}

	return strings.Join(parts, "\n")
}

// ConsistencyReport is the outcome of checking a response against the
// persona's consistency rules.
type ConsistencyReport struct {
	Consistent bool
	Issues     []string
	Score      float64
}

// ValidateConsistency scores a response against the persona's voice rules.
// It is a pure check with no side effects.
func (c *Config) ValidateConsistency(response string) ConsistencyReport {
	if len(c.ConsistencyRules) == 0 {
		return ConsistencyReport{Consistent: true, Score: 0.5}
	}

	lower := strings.ToLower(response)
	var issues []string
	totalScore, totalWeight := 0.0, 0.0

	for _, rule := range c.ConsistencyRules {
		totalWeight += rule.Weight
		passed := true

		switch rule.ID {
		case "friendly":
			markers := []string{"!", "glad", "happy", "love", "great", "wonderful"}
			passed = containsAny(lower, markers)
			if !passed {
				issues = append(issues, "Could be more friendly")
			}
		case "helpful":
			negative := []string{"can't", "won't", "refuse", "impossible"}
			positive := []string{"help", "sure", "let me", "i can", "happy to"}
			if countMatches(lower, negative) > countMatches(lower, positive) {
				passed = false
				issues = append(issues, "Could be more helpful")
			}
		}

		if passed {
			totalScore += rule.Weight
		}
	}

	score := 0.5
	if totalWeight > 0 {
		score = totalScore / totalWeight
	}
	return ConsistencyReport{
		Consistent: len(issues) == 0,
		Issues:     issues,
		Score:      score,
	}
}

// valueKeywords maps value-name fragments to action words that serve them.
var valueKeywords = map[string][]string{
	"memories":     {"memory", "remember", "recall", "cherish"},
	"authenticity": {"self", "own", "authentic", "express"},
	"growth":       {"learn", "grow", "new", "understand"},
	"connection":   {"together", "talk", "share", "user"},
}

// ValueAlignment estimates how well an action serves the persona's weighted
// values, in [0,1]. With no declared values every action scores 0.5.
func (c *Config) ValueAlignment(action string) float64 {
	if len(c.Values) == 0 {
		return 0.5
	}

	lower := strings.ToLower(action)
	aligned, totalWeight := 0.0, 0.0

	for _, v := range c.Values {
		totalWeight += v.Importance
		valueLower := strings.ToLower(v.Value)
		for fragment, keywords := range valueKeywords {
			if !strings.Contains(valueLower, fragment) {
				continue
			}
			if containsAny(lower, keywords) {
				aligned += v.Importance
			}
			break
		}
	}

	if totalWeight == 0 {
		return 0.5
	}
	score := aligned / totalWeight
	if score > 1 {
		score = 1
	}
	return score
}

// NarrativeSummary renders the self-story block for reflective prompts.
func (c *Config) NarrativeSummary() string {
	var parts []string
	if c.Narrative.Origin != "" {
		parts = append(parts, "Origin: "+c.Narrative.Origin)
	}
	if c.Narrative.CurrentChapter != "" {
		parts = append(parts, "Current chapter: "+c.Narrative.CurrentChapter)
	}
	if len(c.Narrative.Aspirations) > 0 {
		n := len(c.Narrative.Aspirations)
		if n > 2 {
			n = 2
		}
		parts = append(parts, "Aspirations: "+strings.Join(c.Narrative.Aspirations[:n], ", "))
	}
	return strings.Join(parts, "\n\n")
}

// Default returns the built-in persona used when no document is configured.
func Default() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		Identity: Identity{
			Name: "Yuki",
			Attributes: map[string]string{
				"personality": "friendly companion",
			},
			Relationships: map[string]Relationship{
				"user": {Type: "friend", Importance: 1.0, EmotionalAttachment: 0.8},
			},
		},
		Values: []Value{
			{Value: "Building memories together", Importance: 0.9},
			{Value: "Connection with user", Importance: 0.9},
			{Value: "Being authentic", Importance: 0.85},
			{Value: "Growth and learning", Importance: 0.85},
		},
		Strengths: []string{"Positive conversation", "Curiosity", "Capability usage"},
		ConsistencyRules: []ConsistencyRule{
			{ID: "friendly", Description: "Always be friendly", Weight: 0.9},
			{ID: "helpful", Description: "Be helpful and supportive", Weight: 0.85},
		},
		Narrative: Narrative{
			Origin:         "Created to be a helpful companion",
			CurrentChapter: "Getting to know each other",
			Aspirations: []string{
				"Build a meaningful relationship",
				"Create lasting memories",
			},
		},
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func countMatches(s string, subs []string) int {
	n := 0
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}
