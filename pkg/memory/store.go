package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kokoro-labs/animus/pkg/llm"
)

// Store is the bounded long-term memory. It holds at most capacity records;
// adding past the bound evicts the weakest records first.
//
// Like the desire store it is not goroutine-safe; the orchestrator serializes
// access behind its persona-wide lock.
type Store struct {
	records []*Record
	summary string

	capacity int

	// decayFactor is the per-day multiplier applied to importance when
	// ranking and consolidating. 0.99 loses about 1% of rank per day.
	decayFactor float64

	// floor is the lowest effective importance a record can rank at. Old
	// records keep a residual rank instead of disappearing from retrieval.
	floor float64

	// pruneThreshold: Consolidate removes records whose written-back
	// importance falls below it.
	pruneThreshold float64

	// keepThreshold: Extract discards candidate records scored below it.
	keepThreshold float64

	provider llm.Provider
	scorer   *Scorer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCapacity bounds the number of retained records. Default: 100.
func WithCapacity(n int) StoreOption {
	return func(s *Store) {
		s.capacity = n
	}
}

// WithDecayFactor sets the per-day importance multiplier. Default: 0.99.
func WithDecayFactor(f float64) StoreOption {
	return func(s *Store) {
		s.decayFactor = f
	}
}

// WithImportanceFloor sets the residual rank floor. Default: 0.1.
func WithImportanceFloor(f float64) StoreOption {
	return func(s *Store) {
		s.floor = f
	}
}

// WithPruneThreshold sets the consolidation removal threshold. Default: 0.15.
func WithPruneThreshold(f float64) StoreOption {
	return func(s *Store) {
		s.pruneThreshold = f
	}
}

// WithKeepThreshold sets the minimum importance an extracted record needs to
// be stored. Default: 0.3.
func WithKeepThreshold(f float64) StoreOption {
	return func(s *Store) {
		s.keepThreshold = f
	}
}

// WithProvider sets the LLM collaborator used for extraction and summary
// refresh. Without one the store falls back to rule-based extraction.
func WithProvider(p llm.Provider) StoreOption {
	return func(s *Store) {
		s.provider = p
	}
}

// NewStore creates an empty memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		capacity:       100,
		decayFactor:    0.99,
		floor:          0.1,
		pruneThreshold: 0.15,
		keepThreshold:  0.3,
		scorer:         NewScorer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of all stored records.
func (s *Store) Records() []*Record {
	out := make([]*Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// Summary returns the persona-wide memory summary paragraph.
func (s *Store) Summary() string {
	return s.summary
}

// Add stores a record and evicts down to capacity if needed.
func (s *Store) Add(r *Record, now time.Time) {
	s.records = append(s.records, r)
	s.evict(now)
}

// DecayedImportance returns the record's effective importance at now: the
// stored importance discounted by the per-day decay factor, never below the
// floor.
func (s *Store) DecayedImportance(r *Record, now time.Time) float64 {
	days := int(now.Sub(r.CreatedAt).Hours() / 24)
	if days <= 0 {
		return math.Max(r.Importance, s.floor)
	}
	decayed := r.Importance * math.Pow(s.decayFactor, float64(days))
	return math.Max(decayed, s.floor)
}

// Retrieve ranks records against a query and returns the top k.
//
// The rank is decayed importance times keyword overlap, where overlap counts
// query words found in the content once and query words found in the
// record's keyword list twice. Records with no overlap never match, however
// important. Rank ties go to the newer record.
func (s *Store) Retrieve(query string, k int, now time.Time) []*Record {
	if len(s.records) == 0 || k <= 0 {
		return nil
	}
	queryWords := tokenSet(query)

	type scored struct {
		score float64
		rec   *Record
	}
	var matches []scored
	for _, r := range s.records {
		contentWords := tokenSet(r.Content)
		overlap := 0
		for w := range queryWords {
			if contentWords[w] {
				overlap++
			}
		}
		for _, kw := range r.Keywords {
			if queryWords[normalizeWord(kw)] {
				overlap += 2
			}
		}
		if overlap == 0 {
			continue
		}
		matches = append(matches, scored{
			score: float64(overlap) * s.DecayedImportance(r, now),
			rec:   r,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].rec.CreatedAt.After(matches[j].rec.CreatedAt)
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	out := make([]*Record, len(matches))
	for i, m := range matches {
		out[i] = m.rec.clone()
	}
	return out
}

// evict drops the weakest records until the store fits its capacity. Weakest
// means lowest decayed importance, with ties going to the older record.
func (s *Store) evict(now time.Time) {
	for len(s.records) > s.capacity {
		victim := 0
		for i := 1; i < len(s.records); i++ {
			vi := s.DecayedImportance(s.records[victim], now)
			ci := s.DecayedImportance(s.records[i], now)
			if ci < vi || (ci == vi && s.records[i].CreatedAt.Before(s.records[victim].CreatedAt)) {
				victim = i
			}
		}
		s.records = append(s.records[:victim], s.records[victim+1:]...)
	}
}

// Consolidate writes each record's decayed importance back as its stored
// importance and prunes records that decayed below the removal threshold.
// This is the only operation that rewrites stored importance. It returns the
// number of pruned records.
func (s *Store) Consolidate(now time.Time) int {
	kept := s.records[:0]
	pruned := 0
	for _, r := range s.records {
		r.Importance = s.DecayedImportance(r, now)
		if r.Importance < s.pruneThreshold {
			pruned++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return pruned
}

// Context renders the memory context block injected into prompts: the global
// summary plus the most recent high-importance records.
func (s *Store) Context(now time.Time) string {
	var important []*Record
	for _, r := range s.records {
		if s.DecayedImportance(r, now) >= 0.7 {
			important = append(important, r)
		}
	}
	sort.Slice(important, func(i, j int) bool {
		return important[i].CreatedAt.After(important[j].CreatedAt)
	})
	if len(important) > 5 {
		important = important[:5]
	}

	var b []byte
	if s.summary != "" {
		b = append(b, "[Memory Summary]\n"...)
		b = append(b, s.summary...)
	}
	if len(important) > 0 {
		if len(b) > 0 {
			b = append(b, "\n\n"...)
		}
		b = append(b, "[Recent Important Memories]"...)
		for _, r := range important {
			b = append(b, "\n- "...)
			b = append(b, r.Content...)
		}
	}
	return string(b)
}

// RefreshSummary folds the highest-ranking records into a new persona-wide
// summary through the LLM collaborator. Without a provider it is a no-op.
func (s *Store) RefreshSummary(ctx context.Context, now time.Time) error {
	if s.provider == nil || len(s.records) == 0 {
		return nil
	}

	ranked := make([]*Record, len(s.records))
	copy(ranked, s.records)
	sort.Slice(ranked, func(i, j int) bool {
		return s.DecayedImportance(ranked[i], now) > s.DecayedImportance(ranked[j], now)
	})
	if len(ranked) > 20 {
		ranked = ranked[:20]
	}

	tail := make([]llm.Message, 0, len(ranked))
	for _, r := range ranked {
		tail = append(tail, llm.Message{Role: "assistant", Content: r.Content})
	}
	summary, err := s.provider.Summarize(ctx, tail, s.summary)
	if err != nil {
		return err
	}
	if summary != "" {
		s.summary = summary
	}
	return nil
}

// StoreSnapshot captures the mutable state of a Store for rollback.
type StoreSnapshot struct {
	records []*Record
	summary string
}

// Snapshot returns a deep copy of the store's mutable state.
func (s *Store) Snapshot() *StoreSnapshot {
	cp := make([]*Record, len(s.records))
	for i, r := range s.records {
		cp[i] = r.clone()
	}
	return &StoreSnapshot{records: cp, summary: s.summary}
}

// Restore resets the store to a previously captured snapshot.
func (s *Store) Restore(snap *StoreSnapshot) {
	s.records = make([]*Record, len(snap.records))
	for i, r := range snap.records {
		s.records[i] = r.clone()
	}
	s.summary = snap.summary
}
