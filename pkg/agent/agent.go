// Package agent wires the desire scheduler, memory system, and persona into
// one conversational core and drives its action cycle.
//
// The agent is an explicit singleton per persona: one instance owns the
// stores, and a single mutex serializes every operation that touches them.
// State mutations commit only while integrating an outcome; any collaborator
// or persistence failure before that point rolls the stores back to their
// pre-exchange snapshots.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/desire"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/memory"
	"github.com/kokoro-labs/animus/pkg/persist"
	"github.com/kokoro-labs/animus/pkg/persona"
	"github.com/kokoro-labs/animus/pkg/session"
	"github.com/kokoro-labs/animus/pkg/tools"
)

const (
	desiresDocument  = "desires"
	memoriesDocument = "memories"

	// eventRingSize bounds the autonomous event feed.
	eventRingSize = 100
)

// Collaborators are the external services the agent acts through.
type Collaborators struct {
	Provider  llm.Provider
	Registry  *tools.Registry
	Documents persist.Store
	Sessions  session.Store
}

// Agent is the conversational core.
type Agent struct {
	mu sync.Mutex

	cfg       core.AgentConfig
	log       *zap.Logger
	loc       *time.Location
	persona   *persona.Config
	desires   *desire.Store
	memories  *memory.Store
	compactor *memory.Compactor

	provider  llm.Provider
	registry  *tools.Registry
	documents persist.Store
	sessions  session.Store

	state       core.State
	lastTick    time.Time
	events      []core.TickEvent
	nextEventID int64

	now func() time.Time
}

// New builds an agent, restoring the desire catalog and long-term memory
// from the document store when previous runs left them there.
func New(cfg core.AgentConfig, p *persona.Config, collab Collaborators, log *zap.Logger) (*Agent, error) {
	if collab.Provider == nil {
		return nil, core.NewAgentError("agent.New",
			fmt.Errorf("llm provider is required: %w", core.ErrConfig))
	}
	if collab.Documents == nil {
		return nil, core.NewAgentError("agent.New",
			fmt.Errorf("document store is required: %w", core.ErrConfig))
	}
	if collab.Sessions == nil {
		return nil, core.NewAgentError("agent.New",
			fmt.Errorf("session store is required: %w", core.ErrConfig))
	}
	if p == nil {
		p = persona.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if collab.Registry == nil {
		collab.Registry = tools.NewRegistry()
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, core.NewAgentError("agent.New",
				fmt.Errorf("timezone %q: %w", cfg.Timezone, core.ErrConfig))
		}
		loc = l
	}

	a := &Agent{
		cfg:       cfg,
		log:       log,
		loc:       loc,
		persona:   p,
		provider:  collab.Provider,
		registry:  collab.Registry,
		documents: collab.Documents,
		sessions:  collab.Sessions,
		state:     core.StateIdle,
		now:       time.Now,
	}
	a.compactor = memory.NewCompactor(collab.Provider, cfg.CompactWatermark, cfg.CompactTarget)

	now := a.now()
	if err := a.restoreDesires(now); err != nil {
		return nil, err
	}
	if err := a.restoreMemories(); err != nil {
		return nil, err
	}

	log.Info("agent ready",
		zap.String("persona", p.Identity.Name),
		zap.Int("desires", a.desires.Len()),
		zap.Int("memories", a.memories.Len()),
	)
	return a, nil
}

func (a *Agent) restoreDesires(now time.Time) error {
	var doc desire.Document
	err := a.documents.Load(context.Background(), desiresDocument, &doc)
	switch {
	case err == nil:
		catalog, convErr := desire.FromDocument(&doc)
		if convErr != nil {
			return convErr
		}
		a.desires = desire.NewStore(catalog, now)
	case errors.Is(err, core.ErrNotFound):
		a.desires = desire.NewStore(nil, now)
	default:
		return err
	}
	return nil
}

func (a *Agent) restoreMemories() error {
	a.memories = memory.NewStore(
		memory.WithCapacity(a.cfg.MemoryCapacity),
		memory.WithProvider(a.provider),
	)

	var doc memory.Document
	err := a.documents.Load(context.Background(), memoriesDocument, &doc)
	switch {
	case err == nil:
		return a.memories.Load(&doc)
	case errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return err
	}
}

// State returns the agent's current cycle phase.
func (a *Agent) State() core.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Capabilities returns the ids of the capabilities the agent can invoke,
// sorted. It is safe without the agent lock: the registry is resolved once at
// startup and never mutated afterwards.
func (a *Agent) Capabilities() []string {
	descriptors := a.registry.Descriptors()
	ids := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		ids = append(ids, d.ID)
	}
	return ids
}

// EventsAfter returns the autonomous events with id greater than afterID, in
// order of occurrence. The feed keeps the most recent hundred events.
func (a *Agent) EventsAfter(afterID int64) []core.TickEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []core.TickEvent
	for _, e := range a.events {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	return out
}

// recordEvent appends to the event feed, trimming it to the ring size.
// Caller holds the lock.
func (a *Agent) recordEvent(e core.TickEvent) core.TickEvent {
	a.nextEventID++
	e.ID = a.nextEventID
	a.events = append(a.events, e)
	if len(a.events) > eventRingSize {
		a.events = a.events[len(a.events)-eventRingSize:]
	}
	return e
}

// persistState writes the desires and memories documents. Caller holds the
// lock.
func (a *Agent) persistState(ctx context.Context, now time.Time) error {
	if err := a.documents.Save(ctx, desiresDocument, a.desires.Document(now)); err != nil {
		return err
	}
	return a.documents.Save(ctx, memoriesDocument, a.memories.Document(now))
}

// systemNotice renders the ambient time context injected into prompts.
func (a *Agent) systemNotice(now time.Time) string {
	local := now.In(a.loc)
	return fmt.Sprintf("[System Notice] Current local time: %s (%s)",
		local.Format("Monday, January 2 2006, 15:04"), a.loc.String())
}

// systemPrompt assembles the full system context for a provider call.
func (a *Agent) systemPrompt(query string, now time.Time) string {
	parts := []string{a.persona.IdentityContext()}

	if memCtx := a.memories.Context(now); memCtx != "" {
		parts = append(parts, memCtx)
	}
	if query != "" {
		if recalled := a.memories.Retrieve(query, 5, now); len(recalled) > 0 {
			block := "[Recalled Memories]"
			for _, r := range recalled {
				block += "\n- " + r.Content
			}
			parts = append(parts, block)
		}
	}
	parts = append(parts, a.systemNotice(now))

	prompt := parts[0]
	for _, p := range parts[1:] {
		prompt += "\n\n" + p
	}
	return prompt
}

// loadSession fetches the conversation state for a session, starting a fresh
// one for unknown sessions.
func (a *Agent) loadSession(ctx context.Context, sessionID string) (*memory.ConversationState, error) {
	state, err := a.sessions.Get(ctx, sessionID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, core.ErrNotFound):
		return &memory.ConversationState{SessionID: sessionID}, nil
	default:
		return nil, err
	}
}

// compactIfDue folds old turns of the conversation into its compressed
// summary. A summarization failure leaves the buffer for the next attempt.
func (a *Agent) compactIfDue(ctx context.Context, state *memory.ConversationState) {
	if !a.compactor.Due(state) {
		return
	}
	compressed, consumed, remaining, err := a.compactor.Compact(ctx, state)
	if err != nil {
		a.log.Warn("conversation compaction failed, will retry",
			zap.String("session", state.SessionID), zap.Error(err))
		return
	}
	if len(consumed) == 0 {
		return
	}
	memory.ApplyCompaction(state, compressed, remaining)
	a.log.Debug("conversation compacted",
		zap.String("session", state.SessionID),
		zap.Int("folded", len(consumed)),
		zap.Int("remaining", len(remaining)),
	)
}
