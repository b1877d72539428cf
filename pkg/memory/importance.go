package memory

import (
	"math"
	"regexp"
	"strings"
)

// Scorer assigns rule-based importance scores to content. It is the fallback
// used when no LLM collaborator is available for extraction, and the source
// of keyword lists for heuristic records.
type Scorer struct{}

// NewScorer creates a rule-based importance scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// signalWords are terms whose presence raises a content's importance score.
var signalWords = []string{
	"important", "critical", "urgent", "remember", "note",
	"preference", "like", "dislike", "hate", "love",
	"always", "never", "birthday", "name", "favorite",
}

// Score evaluates content importance on a 0.0 to 1.0 scale using length,
// signal words, and punctuation heuristics.
func (s *Scorer) Score(content string) float64 {
	score := 0.2
	lower := strings.ToLower(content)

	if len(content) > 100 {
		score += 0.1
	} else if len(content) > 50 {
		score += 0.05
	}

	for _, word := range signalWords {
		if strings.Contains(lower, word) {
			score += 0.1
		}
	}

	if strings.Contains(content, "?") {
		score += 0.05
	}
	if strings.Contains(content, "!") {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopwords are common words excluded from extracted keyword lists.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "you": true, "your": true, "have": true, "has": true,
	"was": true, "were": true, "are": true, "but": true, "not": true,
	"what": true, "when": true, "where": true, "from": true, "they": true,
	"them": true, "then": true, "than": true, "its": true, "about": true,
	"just": true, "like": true, "will": true, "would": true, "could": true,
}

// Keywords extracts up to max distinct keywords from content, preserving
// first-occurrence order.
func (s *Scorer) Keywords(content string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, word := range wordPattern.FindAllString(strings.ToLower(content), -1) {
		if len(word) < 4 || stopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
		if len(out) >= max {
			break
		}
	}
	return out
}

// normalizeWord lowercases a single keyword for overlap comparison.
func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// tokenSet splits text into a lowercase word set for overlap scoring.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		set[word] = true
	}
	return set
}
