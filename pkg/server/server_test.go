package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/agent"
	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/server"
	"github.com/kokoro-labs/animus/pkg/session"
	"github.com/kokoro-labs/animus/pkg/tools"
)

type scriptedProvider struct{ reply string }

func (s *scriptedProvider) Respond(ctx context.Context, system string, history []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return s.reply, nil
}

func (s *scriptedProvider) Summarize(ctx context.Context, tail []llm.Message, priorSummary string, opts ...llm.GenerateOption) (string, error) {
	return "summary", nil
}

func (s *scriptedProvider) Close() error { return nil }

type memDocs map[string]json.RawMessage

func (m memDocs) Load(ctx context.Context, name string, v any) error {
	raw, ok := m[name]
	if !ok {
		return core.NewAgentError("Load", fmt.Errorf("%s: %w", name, core.ErrNotFound))
	}
	return json.Unmarshal(raw, v)
}

func (m memDocs) Save(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[name] = raw
	return nil
}

func (m memDocs) Close() error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := agent.New(core.AgentConfig{
		TickMinInterval:    time.Hour,
		MemoryCapacity:     100,
		CompactWatermark:   15,
		CompactTarget:      8,
		Timezone:           "UTC",
		CameraCapabilities: []string{"capture_image"},
	}, nil, agent.Collaborators{
		Provider:  &scriptedProvider{reply: "glad to hear from you!"},
		Registry:  tools.NewRegistry(),
		Documents: memDocs{},
		Sessions:  session.NewMemoryStore(8),
	}, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(a, nil, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, string(core.StateIdle), body["state"])
	assert.Equal(t, false, body["tts_enabled"])
}

func TestChatEndpointAssignsSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message": "hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result core.ChatResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "glad to hear from you!", result.Response)
	assert.NotEmpty(t, result.SessionID)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTickEndpointRateLimit(t *testing.T) {
	ts := newTestServer(t)

	first, err := http.Post(ts.URL+"/api/autonomous/tick", "application/json", nil)
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Post(ts.URL+"/api/autonomous/tick", "application/json", nil)
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	forced, err := http.Post(ts.URL+"/api/autonomous/tick?force=true", "application/json", nil)
	require.NoError(t, err)
	forced.Body.Close()
	assert.Equal(t, http.StatusOK, forced.StatusCode)
}

func TestEventsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tick, err := http.Post(ts.URL+"/api/autonomous/tick", "application/json", nil)
	require.NoError(t, err)
	tick.Body.Close()

	resp, err := http.Get(ts.URL + "/api/autonomous/events?after_id=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Events []core.TickEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Events)

	last := body.Events[len(body.Events)-1].ID
	resp2, err := http.Get(fmt.Sprintf("%s/api/autonomous/events?after_id=%d", ts.URL, last))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	assert.Empty(t, body.Events)
}

func TestSpeakEndpointWithoutTTS(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/speak", "application/json",
		strings.NewReader(`{"text": "hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
