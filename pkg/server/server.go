// Package server exposes the agent over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/agent"
	"github.com/kokoro-labs/animus/pkg/tts"
)

// Server routes HTTP requests to the agent.
type Server struct {
	agent  *agent.Agent
	speech *tts.Client
	log    *zap.Logger
	router chi.Router
}

// New creates a server. speech may be nil; the speak endpoint then reports
// that synthesis is not configured.
func New(a *agent.Agent, speech *tts.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{agent: a, speech: speech, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/autonomous/tick", s.handleTick)
	r.Get("/api/autonomous/events", s.handleEvents)
	r.Post("/api/speak", s.handleSpeak)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
