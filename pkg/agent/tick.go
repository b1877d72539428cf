package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/desire"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/memory"
	"github.com/kokoro-labs/animus/pkg/session"
	"github.com/kokoro-labs/animus/pkg/tools"
)

// tickSatisfyAmount is how much a completed autonomous action raises the
// selected desire.
const tickSatisfyAmount = 0.4

// Tick runs one autonomous cycle.
//
// A non-forced tick arriving before the minimum interval since the last
// completed tick is rejected with ErrRateLimited before any store is
// touched. When every desire is content the cycle idles; when the selected
// desire needs a camera image that the request did not carry, the cycle
// stops at CAMERA_REQUESTED with no committed mutation and waits for the
// caller to tick again with an image.
func (a *Agent) Tick(ctx context.Context, req *core.TickRequest) (*core.TickResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if !req.Force && !a.lastTick.IsZero() && now.Sub(a.lastTick) < a.cfg.TickMinInterval {
		return nil, core.NewAgentError("Tick",
			fmt.Errorf("tick interval %s not elapsed: %w",
				a.cfg.TickMinInterval, core.ErrRateLimited))
	}

	desireSnap := a.desires.Snapshot()
	memorySnap := a.memories.Snapshot()
	rollback := func() {
		a.desires.Restore(desireSnap)
		a.memories.Restore(memorySnap)
		a.state = core.StateIdle
	}

	a.state = core.StateSelecting
	a.desires.Tick(now)

	selected := a.desires.SelectActive()
	if selected == nil {
		// Content: commit the decay, consolidate, and rest. A quiet cycle
		// is also when the persona-wide summary gets refreshed.
		a.memories.Consolidate(now)
		if err := a.memories.RefreshSummary(ctx, now); err != nil {
			a.log.Debug("summary refresh failed", zap.Error(err))
		}
		if err := a.persistState(ctx, now); err != nil {
			rollback()
			return nil, err
		}
		a.lastTick = now
		a.state = core.StateIdle
		a.recordEvent(core.TickEvent{At: now, State: core.StateIdle})
		return &core.TickResult{State: core.StateIdle}, nil
	}

	a.state = core.StateAwaitingAction
	if capID, needed := a.cameraCapability(selected); needed && req.ImageBase64 == "" {
		rollback()
		a.state = core.StateCameraRequested
		a.recordEvent(core.TickEvent{
			At:         now,
			State:      core.StateCameraRequested,
			DesireID:   selected.ID,
			DesireName: selected.Name,
		})
		a.log.Info("camera requested",
			zap.String("desire", selected.ID),
			zap.String("capability", capID))
		return &core.TickResult{
			State:           core.StateCameraRequested,
			DesireID:        selected.ID,
			DesireName:      selected.Name,
			CameraRequested: true,
		}, nil
	}

	innerVoice := a.desires.Prompt(selected.ID)
	if innerVoice == "" {
		innerVoice = selected.Description
	}

	capabilityNote, err := a.preInvokeCapability(ctx, selected)
	if err != nil {
		rollback()
		return nil, err
	}

	userContent := innerVoice
	if capabilityNote != "" {
		userContent += "\n\n[Observation] " + capabilityNote
	}
	userMsg := llm.Message{Role: "user", Content: userContent}
	if req.ImageBase64 != "" {
		userMsg.Image = &llm.Image{
			MediaType: mediaTypeOrDefault(req.ImageMediaType),
			Data:      req.ImageBase64,
		}
	}

	utterance, err := a.provider.Respond(ctx,
		a.systemPrompt(innerVoice, now),
		[]llm.Message{userMsg})
	if err != nil {
		rollback()
		return nil, core.NewAgentError("Tick",
			fmt.Errorf("provider: %v: %w", err, core.ErrCollaborator))
	}

	a.state = core.StateIntegrating
	if err := a.desires.Satisfy(selected.ID, tickSatisfyAmount, now); err != nil {
		rollback()
		return nil, err
	}

	sessionID := session.NormalizeID(req.SessionID)
	exchange := []llm.Message{userMsg, {Role: "assistant", Content: utterance}}
	if _, err := a.memories.Extract(ctx, exchange, sessionID, now); err != nil {
		// Extraction is best effort; the action itself already completed.
		a.log.Warn("memory extraction failed", zap.Error(err))
	}
	a.memories.Consolidate(now)
	a.reflect(ctx, selected, utterance, now)

	state, err := a.loadSession(ctx, sessionID)
	if err != nil {
		rollback()
		return nil, err
	}
	state.Turns = append(state.Turns,
		memory.Turn{Role: "assistant", Content: utterance, At: now})
	state.UpdatedAt = now
	a.compactIfDue(ctx, state)

	if err := a.persistState(ctx, now); err != nil {
		rollback()
		return nil, err
	}
	if err := a.sessions.Put(ctx, sessionID, state); err != nil {
		rollback()
		return nil, err
	}

	a.lastTick = now
	a.state = core.StateIdle
	a.recordEvent(core.TickEvent{
		At:         now,
		State:      core.StateIntegrating,
		DesireID:   selected.ID,
		DesireName: selected.Name,
		Utterance:  utterance,
	})
	a.log.Info("autonomous action",
		zap.String("desire", selected.ID),
		zap.Float64("alignment", a.persona.ValueAlignment(selected.Description)))

	return &core.TickResult{
		State:      core.StateIdle,
		DesireID:   selected.ID,
		DesireName: selected.Name,
		Utterance:  utterance,
	}, nil
}

// cameraCapability reports whether acting on the desire requires a camera
// image, and which capability needs it.
func (a *Agent) cameraCapability(d *desire.Desire) (string, bool) {
	for _, capID := range d.Capabilities {
		if desc, ok := a.registry.Describe(capID); ok && desc.Modality == tools.ModalityVision {
			return capID, true
		}
		for _, camera := range a.cfg.CameraCapabilities {
			if capID == camera {
				return capID, true
			}
		}
	}
	return "", false
}

// preInvokeCapability runs the first registered non-camera capability the
// desire names and returns its textual result for the prompt.
func (a *Agent) preInvokeCapability(ctx context.Context, d *desire.Desire) (string, error) {
	for _, capID := range d.Capabilities {
		desc, ok := a.registry.Describe(capID)
		if !ok || desc.Modality == tools.ModalityVision {
			continue
		}
		res, err := a.registry.Invoke(ctx, capID, nil)
		if err != nil {
			return "", err
		}
		return res.Content, nil
	}
	return "", nil
}

// reflect asks the provider for a one-sentence self-reflection on the action
// and stores it as an emotional memory. Best effort: a failed reflection is
// logged and dropped.
func (a *Agent) reflect(ctx context.Context, d *desire.Desire, outcome string, now time.Time) {
	trimmed := outcome
	if len(trimmed) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	prompt := fmt.Sprintf(
		"I acted on my desire %q and this happened:\n%s\n\nWrite a short 1-sentence self-reflection from my perspective. Include emotion or learning.",
		d.Name, trimmed)

	reflection, err := a.provider.Respond(ctx, "",
		[]llm.Message{{Role: "user", Content: prompt}},
		llm.WithMaxTokens(100))
	if err != nil {
		a.log.Debug("reflection failed", zap.Error(err))
		return
	}
	reflection = strings.TrimSpace(reflection)
	if reflection == "" {
		return
	}
	a.memories.Add(memory.NewRecord(memory.KindEmotional, reflection, 0.6,
		[]string{d.Category, "reflection"}, now), now)
}
