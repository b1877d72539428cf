// Command animus-server runs the persona agent behind an HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kokoro-labs/animus/pkg/agent"
	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/llm"
	"github.com/kokoro-labs/animus/pkg/llm/anthropic"
	"github.com/kokoro-labs/animus/pkg/llm/openai"
	"github.com/kokoro-labs/animus/pkg/persist"
	"github.com/kokoro-labs/animus/pkg/persona"
	"github.com/kokoro-labs/animus/pkg/server"
	"github.com/kokoro-labs/animus/pkg/session"
	sessiondynamodb "github.com/kokoro-labs/animus/pkg/session/dynamodb"
	"github.com/kokoro-labs/animus/pkg/tools"
	"github.com/kokoro-labs/animus/pkg/tts"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("animus-server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	documents, err := buildDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer documents.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessions.Close()

	p, err := loadPersona(cfg)
	if err != nil {
		return err
	}

	loc := time.Local
	if cfg.Agent.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Agent.Timezone)
		if err != nil {
			return err
		}
	}
	registry := tools.NewRegistry()
	if err := registry.Register(ctx, tools.NewLocalInvoker(loc)); err != nil {
		return err
	}

	a, err := agent.New(cfg.Agent, p, agent.Collaborators{
		Provider:  provider,
		Registry:  registry,
		Documents: documents,
		Sessions:  sessions,
	}, log)
	if err != nil {
		return err
	}

	var speech *tts.Client
	if cfg.TTS.APIKey != "" {
		speech, err = tts.NewClient(tts.Config{
			APIKey:  cfg.TTS.APIKey,
			VoiceID: cfg.TTS.VoiceID,
			ModelID: cfg.TTS.ModelID,
		})
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(a, speech, log).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func buildProvider(cfg *core.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(&openai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	case "anthropic":
		return anthropic.NewClient(&anthropic.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	default:
		return nil, core.NewAgentError("buildProvider", core.ErrConfig)
	}
}

func buildDocumentStore(cfg *core.Config) (persist.Store, error) {
	switch cfg.Persistence.Backend {
	case "sqlite":
		return persist.NewSQLiteStore(cfg.Persistence.DBPath)
	default:
		return persist.NewFileStore(cfg.Persistence.DataDir)
	}
}

func buildSessionStore(ctx context.Context, cfg *core.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "dynamodb":
		return sessiondynamodb.NewStore(ctx, sessiondynamodb.Config{
			TableName: cfg.Session.TableName,
			Region:    cfg.Session.Region,
			Endpoint:  cfg.Session.Endpoint,
			TTL:       time.Duration(cfg.Session.TTLDays) * 24 * time.Hour,
		})
	default:
		return session.NewMemoryStore(cfg.Session.MaxSessions), nil
	}
}

func loadPersona(cfg *core.Config) (*persona.Config, error) {
	if cfg.Agent.PersonaPath == "" {
		return persona.Default(), nil
	}
	data, err := os.ReadFile(cfg.Agent.PersonaPath)
	if err != nil {
		return nil, core.NewAgentError("loadPersona", err)
	}
	var p persona.Config
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, core.NewAgentError("loadPersona", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
