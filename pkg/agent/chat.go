package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/memory"
	"github.com/kokoro-labs/animus/pkg/session"
)

// connectionDesireID is the desire a user exchange always serves.
const connectionDesireID = "social.connection"

// chatSatisfyAmount is how much a completed exchange raises the connection
// desire.
const chatSatisfyAmount = 0.3

// ProcessMessage runs one user exchange through the cycle: decay and
// selection, the provider call, then integration of the reply into the
// conversation, the memory store, and the desire catalog.
//
// If the provider call or the final persistence fails, every store is
// restored to its pre-exchange state and the error is returned.
func (a *Agent) ProcessMessage(ctx context.Context, req *core.ChatRequest) (*core.ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, core.NewAgentError("ProcessMessage",
			fmt.Errorf("message must not be empty: %w", core.ErrInvalidInput))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	sessionID := session.NormalizeID(req.SessionID)

	state, err := a.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
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

	a.state = core.StateAwaitingAction
	userMsg := llm.Message{Role: "user", Content: req.Message}
	if req.ImageBase64 != "" {
		userMsg.Image = &llm.Image{
			MediaType: mediaTypeOrDefault(req.ImageMediaType),
			Data:      req.ImageBase64,
		}
	}
	history := append(state.ContextMessages(), userMsg)

	reply, err := a.provider.Respond(ctx, a.systemPrompt(req.Message, now), history)
	if err != nil {
		rollback()
		return nil, core.NewAgentError("ProcessMessage",
			fmt.Errorf("provider: %v: %w", err, core.ErrCollaborator))
	}

	if report := a.persona.ValidateConsistency(reply); !report.Consistent {
		a.log.Debug("reply off persona voice",
			zap.Strings("issues", report.Issues),
			zap.Float64("score", report.Score))
	}

	a.state = core.StateIntegrating
	state.Turns = append(state.Turns,
		memory.Turn{Role: "user", Content: req.Message, At: now},
		memory.Turn{Role: "assistant", Content: reply, At: now},
	)
	state.UpdatedAt = now
	a.compactIfDue(ctx, state)

	exchange := []llm.Message{userMsg, {Role: "assistant", Content: reply}}
	if _, err := a.memories.Extract(ctx, exchange, sessionID, now); err != nil {
		// Extraction is best effort; the exchange itself already succeeded.
		a.log.Warn("memory extraction failed", zap.Error(err))
	}

	if err := a.desires.Satisfy(connectionDesireID, chatSatisfyAmount, now); err != nil {
		a.log.Debug("no connection desire in catalog", zap.Error(err))
	}
	if req.ImageBase64 != "" {
		// Seeing through the user's camera also serves whichever desire
		// owns the camera capability.
		for _, capID := range a.cfg.CameraCapabilities {
			if d := a.desires.ByCapability(capID); d != nil {
				_ = a.desires.Satisfy(d.ID, chatSatisfyAmount, now)
				break
			}
		}
	}

	if err := a.persistState(ctx, now); err != nil {
		rollback()
		return nil, err
	}
	if err := a.sessions.Put(ctx, sessionID, state); err != nil {
		rollback()
		return nil, err
	}

	a.state = core.StateIdle
	return &core.ChatResult{
		SessionID: sessionID,
		Response:  reply,
		DesireID:  connectionDesireID,
	}, nil
}

func mediaTypeOrDefault(mt string) string {
	if mt == "" {
		return "image/jpeg"
	}
	return mt
}
