package desire

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/kokoro-labs/animus/pkg/core"
)

// Store holds the desire catalog and applies decay, selection and
// satisfaction updates.
//
// The catalog is fixed at load time: desires are never created or destroyed
// at runtime, only their satisfaction moves. The store is not goroutine-safe;
// the orchestrator serializes access behind its persona-wide lock.
type Store struct {
	desires map[string]*Desire

	// lastDecayedAt guards Tick idempotence: calling Tick twice with the
	// same instant decays at most once.
	lastDecayedAt time.Time

	// contentThreshold: when every desire sits at or above it, SelectActive
	// reports idle instead of forcing a pick.
	contentThreshold float64

	rng *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithContentThreshold sets the satisfaction level above which a desire no
// longer demands action. Default: 0.9.
func WithContentThreshold(threshold float64) Option {
	return func(s *Store) {
		s.contentThreshold = threshold
	}
}

// WithRandSource seeds the prompt picker, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Store) {
		s.rng = rand.New(src)
	}
}

// NewStore creates a store over the given catalog. A nil or empty catalog
// falls back to the default one. The decay marker starts at now.
func NewStore(catalog []*Desire, now time.Time, opts ...Option) *Store {
	if len(catalog) == 0 {
		catalog = DefaultCatalog(now)
	}

	s := &Store{
		desires:          make(map[string]*Desire, len(catalog)),
		lastDecayedAt:    now,
		contentThreshold: 0.9,
		rng:              rand.New(rand.NewSource(now.UnixNano())),
	}
	for _, d := range catalog {
		s.desires[d.ID] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the catalog size.
func (s *Store) Len() int {
	return len(s.desires)
}

// Get returns the desire with the given id.
func (s *Store) Get(id string) (*Desire, error) {
	d, ok := s.desires[id]
	if !ok {
		return nil, core.NewAgentError("Get", fmt.Errorf("desire %q: %w", id, core.ErrNotFound))
	}
	return d, nil
}

// Tick decays every desire by decayRate × minutes elapsed since the previous
// Tick, clamping satisfaction at 0.
//
// The elapsed time is derived from the store-level marker, not re-derived
// from per-desire timestamps, so calling Tick twice with the same now is a
// no-op the second time.
func (s *Store) Tick(now time.Time) {
	if !now.After(s.lastDecayedAt) {
		return
	}
	minutes := now.Sub(s.lastDecayedAt).Minutes()
	for _, d := range s.desires {
		d.Satisfaction = clamp01(d.Satisfaction - d.DecayRate*minutes)
	}
	s.lastDecayedAt = now
}

// SelectActive returns the desire with the highest priority
// (baseImportance × (1 − satisfaction)).
//
// Ties break toward the higher decay rate (the fastest-decaying desire will
// become urgent again soonest), then the earliest LastSatisfied (longest
// neglected), then the id, so the result is fully deterministic. When every
// desire's satisfaction is at or above the content threshold the persona is
// content and SelectActive returns nil.
func (s *Store) SelectActive() *Desire {
	if len(s.desires) == 0 {
		return nil
	}

	allContent := true
	for _, d := range s.desires {
		if d.Satisfaction < s.contentThreshold {
			allContent = false
			break
		}
	}
	if allContent {
		return nil
	}

	candidates := make([]*Desire, 0, len(s.desires))
	for _, d := range s.desires {
		candidates = append(candidates, d)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		if a.DecayRate != b.DecayRate {
			return a.DecayRate > b.DecayRate
		}
		if !a.LastSatisfied.Equal(b.LastSatisfied) {
			return a.LastSatisfied.Before(b.LastSatisfied)
		}
		return a.ID < b.ID
	})
	return candidates[0]
}

// Satisfy raises the named desire's satisfaction by amount, clamped to 1,
// and stamps LastSatisfied.
func (s *Store) Satisfy(id string, amount float64, now time.Time) error {
	d, ok := s.desires[id]
	if !ok {
		return core.NewAgentError("Satisfy", fmt.Errorf("desire %q: %w", id, core.ErrNotFound))
	}
	d.Satisfaction = clamp01(d.Satisfaction + amount)
	d.LastSatisfied = now
	return nil
}

// Prompt returns one of the desire's inner-voice prompts, or "" when the
// desire has none.
func (s *Store) Prompt(id string) string {
	d, ok := s.desires[id]
	if !ok || len(d.Prompts) == 0 {
		return ""
	}
	return d.Prompts[s.rng.Intn(len(d.Prompts))]
}

// ByCapability returns the first desire (in deterministic id order) that
// lists the given capability.
func (s *Store) ByCapability(capabilityID string) *Desire {
	ids := make([]string, 0, len(s.desires))
	for id := range s.desires {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, capID := range s.desires[id].Capabilities {
			if capID == capabilityID {
				return s.desires[id]
			}
		}
	}
	return nil
}

// Snapshot captures the full mutable state of the store so the orchestrator
// can roll back an exchange whose collaborator call failed.
type Snapshot struct {
	desires       map[string]*Desire
	lastDecayedAt time.Time
}

// Snapshot returns a deep copy of the store's mutable state.
func (s *Store) Snapshot() *Snapshot {
	cp := make(map[string]*Desire, len(s.desires))
	for id, d := range s.desires {
		cp[id] = d.clone()
	}
	return &Snapshot{desires: cp, lastDecayedAt: s.lastDecayedAt}
}

// Restore resets the store to a previously captured snapshot.
func (s *Store) Restore(snap *Snapshot) {
	s.desires = make(map[string]*Desire, len(snap.desires))
	for id, d := range snap.desires {
		s.desires[id] = d.clone()
	}
	s.lastDecayedAt = snap.lastDecayedAt
}
