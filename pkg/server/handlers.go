package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

// writeError maps agent sentinel errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrCollaborator):
		status = http.StatusBadGateway
	case errors.Is(err, core.ErrConfig):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"state":        s.agent.State(),
		"capabilities": s.agent.Capabilities(),
		"tts_enabled":  s.speech != nil,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req core.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, core.NewAgentError("handleChat",
			errors.Join(core.ErrInvalidInput, err)))
		return
	}
	// A blank session id gets a fresh one so separate clients never share
	// a conversation by accident.
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	result, err := s.agent.ProcessMessage(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	req := &core.TickRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			s.writeError(w, core.NewAgentError("handleTick",
				errors.Join(core.ErrInvalidInput, err)))
			return
		}
	}
	if r.URL.Query().Get("force") == "true" {
		req.Force = true
	}

	result, err := s.agent.Tick(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	afterID := int64(0)
	if v := r.URL.Query().Get("after_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, core.NewAgentError("handleEvents",
				errors.Join(core.ErrInvalidInput, err)))
			return
		}
		afterID = parsed
	}

	events := s.agent.EventsAfter(afterID)
	if events == nil {
		events = []core.TickEvent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type speakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		s.writeError(w, core.NewAgentError("handleSpeak",
			errors.Join(core.ErrConfig, errors.New("speech synthesis is not configured"))))
		return
	}

	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, core.NewAgentError("handleSpeak",
			errors.Join(core.ErrInvalidInput, err)))
		return
	}

	audio, mimeType, err := s.speech.Synthesize(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		s.log.Warn("write audio", zap.Error(err))
	}
}
