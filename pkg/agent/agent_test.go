package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/agent"
	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/desire"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/persist"
	"github.com/kokoro-labs/animus/pkg/session"
	"github.com/kokoro-labs/animus/pkg/tools"
)

// fakeProvider returns a canned reply and records what it was asked.
type fakeProvider struct {
	reply    string
	err      error
	respondN int
	prompts  []string
}

func (f *fakeProvider) Respond(ctx context.Context, system string, history []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.respondN++
	if len(history) > 0 {
		f.prompts = append(f.prompts, history[len(history)-1].Content)
	}
	return f.reply, f.err
}

func (f *fakeProvider) Summarize(ctx context.Context, tail []llm.Message, priorSummary string, opts ...llm.GenerateOption) (string, error) {
	return "summary", nil
}

func (f *fakeProvider) Close() error { return nil }

// fakeDocs is an in-memory persist.Store that can be told to fail saves.
type fakeDocs struct {
	docs    map[string]json.RawMessage
	saveErr error
	saves   int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string]json.RawMessage)}
}

func (f *fakeDocs) Load(ctx context.Context, name string, v any) error {
	raw, ok := f.docs[name]
	if !ok {
		return core.NewAgentError("Load", fmt.Errorf("document %q: %w", name, core.ErrNotFound))
	}
	return json.Unmarshal(raw, v)
}

func (f *fakeDocs) Save(ctx context.Context, name string, v any) error {
	if f.saveErr != nil {
		return core.NewAgentError("Save", fmt.Errorf("%v: %w", f.saveErr, core.ErrPersistence))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.docs[name] = raw
	f.saves++
	return nil
}

func (f *fakeDocs) Close() error { return nil }

func (f *fakeDocs) desiresDoc(t *testing.T) *desire.Document {
	t.Helper()
	var doc desire.Document
	require.NoError(t, json.Unmarshal(f.docs["desires"], &doc))
	return &doc
}

func testConfig() core.AgentConfig {
	return core.AgentConfig{
		TickMinInterval:    3 * time.Second,
		MemoryCapacity:     100,
		CompactWatermark:   15,
		CompactTarget:      8,
		Timezone:           "UTC",
		CameraCapabilities: []string{"capture_image"},
	}
}

func newTestAgent(t *testing.T, provider llm.Provider, docs persist.Store) *agent.Agent {
	t.Helper()
	a, err := agent.New(testConfig(), nil, agent.Collaborators{
		Provider:  provider,
		Registry:  tools.NewRegistry(),
		Documents: docs,
		Sessions:  session.NewMemoryStore(8),
	}, zap.NewNop())
	require.NoError(t, err)
	return a
}

// seedVisionCatalog stores a one-desire catalog that needs the camera.
func seedVisionCatalog(t *testing.T, docs *fakeDocs) {
	t.Helper()
	s := desire.NewStore([]*desire.Desire{{
		ID:             "sensory.vision",
		Category:       "sensory",
		Name:           "Visual Curiosity",
		Satisfaction:   0.1,
		BaseImportance: 1.0,
		DecayRate:      0.0025,
		Capabilities:   []string{"capture_image"},
		Prompts:        []string{"Let me take a look."},
		LastSatisfied:  time.Now(),
	}}, time.Now())
	require.NoError(t, docs.Save(context.Background(), "desires", s.Document(time.Now())))
	docs.saves = 0
}

func TestProcessMessageRejectsEmpty(t *testing.T) {
	a := newTestAgent(t, &fakeProvider{reply: "hi"}, newFakeDocs())

	_, err := a.ProcessMessage(context.Background(), &core.ChatRequest{Message: "   "})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestProcessMessageHappyPath(t *testing.T) {
	docs := newFakeDocs()
	a := newTestAgent(t, &fakeProvider{reply: "Hello! Glad you're here."}, docs)

	result, err := a.ProcessMessage(context.Background(), &core.ChatRequest{
		SessionID: "sess-1",
		Message:   "good morning",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello! Glad you're here.", result.Response)
	assert.Equal(t, "sess-1", result.SessionID)

	// The exchange served the connection desire.
	doc := docs.desiresDoc(t)
	conn := doc.Desires["social"]["connection"]
	require.NotNil(t, conn)
	assert.Greater(t, conn.Satisfaction, 0.5)
}

func TestProcessMessageWithImageServesVision(t *testing.T) {
	docs := newFakeDocs()
	a := newTestAgent(t, &fakeProvider{reply: "What a lovely photo!"}, docs)

	_, err := a.ProcessMessage(context.Background(), &core.ChatRequest{
		Message:        "look at this",
		ImageBase64:    "aGVsbG8=",
		ImageMediaType: "image/png",
	})
	require.NoError(t, err)

	// The camera-owning desire gets credit alongside connection.
	doc := docs.desiresDoc(t)
	vision := doc.Desires["sensory"]["vision"]
	require.NotNil(t, vision)
	assert.Greater(t, vision.Satisfaction, 0.9)
}

func TestProcessMessageProviderFailureRollsBack(t *testing.T) {
	docs := newFakeDocs()
	a := newTestAgent(t, &fakeProvider{err: errors.New("model down")}, docs)

	_, err := a.ProcessMessage(context.Background(), &core.ChatRequest{Message: "hello"})
	assert.True(t, errors.Is(err, core.ErrCollaborator))

	// Nothing was persisted and the agent went back to idle.
	assert.Zero(t, docs.saves)
	assert.Equal(t, core.StateIdle, a.State())
}

func TestProcessMessagePersistenceFailureRollsBack(t *testing.T) {
	docs := newFakeDocs()
	docs.saveErr = errors.New("disk full")
	a := newTestAgent(t, &fakeProvider{reply: "hi there!"}, docs)

	_, err := a.ProcessMessage(context.Background(), &core.ChatRequest{Message: "hello"})
	assert.True(t, errors.Is(err, core.ErrPersistence))
	assert.Equal(t, core.StateIdle, a.State())
}

func TestTickRateGuard(t *testing.T) {
	docs := newFakeDocs()
	a := newTestAgent(t, &fakeProvider{reply: "musing..."}, docs)

	_, err := a.Tick(context.Background(), &core.TickRequest{})
	require.NoError(t, err)
	savesAfterFirst := docs.saves

	_, err = a.Tick(context.Background(), &core.TickRequest{})
	assert.True(t, errors.Is(err, core.ErrRateLimited))
	assert.Equal(t, savesAfterFirst, docs.saves, "rejected tick must not persist anything")

	// Force bypasses the guard.
	_, err = a.Tick(context.Background(), &core.TickRequest{Force: true})
	assert.NoError(t, err)
}

func TestTickHappyPath(t *testing.T) {
	docs := newFakeDocs()
	provider := &fakeProvider{reply: "I wonder what you're up to!"}
	a := newTestAgent(t, provider, docs)

	result, err := a.Tick(context.Background(), &core.TickRequest{})
	require.NoError(t, err)

	// Default catalog: connection has the highest priority at rest.
	assert.Equal(t, core.StateIdle, result.State)
	assert.Equal(t, "social.connection", result.DesireID)
	assert.Equal(t, "I wonder what you're up to!", result.Utterance)

	doc := docs.desiresDoc(t)
	conn := doc.Desires["social"]["connection"]
	require.NotNil(t, conn)
	assert.Greater(t, conn.Satisfaction, 0.5)

	events := a.EventsAfter(0)
	require.NotEmpty(t, events)
	assert.Equal(t, "social.connection", events[len(events)-1].DesireID)

	// The next poll with the last seen id returns nothing new.
	assert.Empty(t, a.EventsAfter(events[len(events)-1].ID))
}

func TestTickExtractsMemoriesFromExchange(t *testing.T) {
	docs := newFakeDocs()
	provider := &fakeProvider{reply: "Musing about the world."}
	a := newTestAgent(t, provider, docs)

	_, err := a.Tick(context.Background(), &core.TickRequest{Force: true})
	require.NoError(t, err)

	extracted := false
	for _, p := range provider.prompts {
		if strings.Contains(p, "Extract important information") {
			extracted = true
		}
	}
	assert.True(t, extracted, "integration must distill the exchange into long-term memory")
}

func TestReflectionPromptStaysValidUTF8(t *testing.T) {
	docs := newFakeDocs()
	provider := &fakeProvider{reply: strings.Repeat("猫", 120)}
	a := newTestAgent(t, provider, docs)

	_, err := a.Tick(context.Background(), &core.TickRequest{Force: true})
	require.NoError(t, err)

	require.NotEmpty(t, provider.prompts)
	for _, p := range provider.prompts {
		assert.True(t, utf8.ValidString(p))
	}
}

func TestTickProviderFailureRollsBack(t *testing.T) {
	docs := newFakeDocs()
	a := newTestAgent(t, &fakeProvider{err: errors.New("model down")}, docs)

	_, err := a.Tick(context.Background(), &core.TickRequest{})
	assert.True(t, errors.Is(err, core.ErrCollaborator))
	assert.Zero(t, docs.saves)
	assert.Equal(t, core.StateIdle, a.State())

	// The failed tick did not complete, so the guard does not block the
	// retry.
	a2 := newTestAgent(t, &fakeProvider{reply: "better now"}, docs)
	_, err = a2.Tick(context.Background(), &core.TickRequest{})
	assert.NoError(t, err)
}

func TestTickCameraRequested(t *testing.T) {
	docs := newFakeDocs()
	seedVisionCatalog(t, docs)
	provider := &fakeProvider{reply: "What a view!"}
	a := newTestAgent(t, provider, docs)

	result, err := a.Tick(context.Background(), &core.TickRequest{})
	require.NoError(t, err)
	assert.True(t, result.CameraRequested)
	assert.Equal(t, core.StateCameraRequested, result.State)
	assert.Equal(t, "sensory.vision", result.DesireID)
	assert.Zero(t, docs.saves, "camera request must not commit mutations")
	assert.Zero(t, provider.respondN)

	// Following up with an image completes the action.
	result, err = a.Tick(context.Background(), &core.TickRequest{
		Force:       true,
		ImageBase64: "aGVsbG8=",
	})
	require.NoError(t, err)
	assert.False(t, result.CameraRequested)
	assert.Equal(t, "What a view!", result.Utterance)

	doc := docs.desiresDoc(t)
	vision := doc.Desires["sensory"]["vision"]
	require.NotNil(t, vision)
	assert.Greater(t, vision.Satisfaction, 0.4)
}

func TestTickIdleWhenContent(t *testing.T) {
	docs := newFakeDocs()
	s := desire.NewStore([]*desire.Desire{{
		ID:             "social.connection",
		Category:       "social",
		Name:           "Connection",
		Satisfaction:   0.98,
		BaseImportance: 1.5,
		DecayRate:      0.0001,
		LastSatisfied:  time.Now(),
	}}, time.Now())
	require.NoError(t, docs.Save(context.Background(), "desires", s.Document(time.Now())))

	provider := &fakeProvider{reply: "unused"}
	a := newTestAgent(t, provider, docs)

	result, err := a.Tick(context.Background(), &core.TickRequest{})
	require.NoError(t, err)
	assert.Equal(t, core.StateIdle, result.State)
	assert.Empty(t, result.DesireID)
	assert.Empty(t, result.Utterance)
	assert.Zero(t, provider.respondN)
}

func TestChatKeepsConversationState(t *testing.T) {
	sessions := session.NewMemoryStore(8)
	a, err := agent.New(testConfig(), nil, agent.Collaborators{
		Provider:  &fakeProvider{reply: "sure thing!"},
		Registry:  tools.NewRegistry(),
		Documents: newFakeDocs(),
		Sessions:  sessions,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = a.ProcessMessage(context.Background(), &core.ChatRequest{
		SessionID: "sess-9", Message: "first",
	})
	require.NoError(t, err)
	_, err = a.ProcessMessage(context.Background(), &core.ChatRequest{
		SessionID: "sess-9", Message: "second",
	})
	require.NoError(t, err)

	state, err := sessions.Get(context.Background(), "sess-9")
	require.NoError(t, err)
	require.Len(t, state.Turns, 4)
	assert.Equal(t, "first", state.Turns[0].Content)
	assert.Equal(t, "second", state.Turns[2].Content)
}
