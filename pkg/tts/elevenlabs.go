// Package tts wraps the ElevenLabs text-to-speech API. Speech is an output
// surface only; synthesis failures never fail the exchange that produced the
// text.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kokoro-labs/animus/pkg/core"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Config holds the ElevenLabs client configuration.
type Config struct {
	// APIKey is the ElevenLabs API key. Required.
	APIKey string

	// VoiceID is the default voice used when a request names none.
	VoiceID string

	// ModelID selects the synthesis model. Defaults to
	// "eleven_multilingual_v2".
	ModelID string

	// OutputFormat selects the audio encoding. Defaults to "mp3_44100_128".
	OutputFormat string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// HTTPClient overrides the HTTP client. Defaults to a 30s timeout.
	HTTPClient *http.Client
}

// Client calls the ElevenLabs text-to-speech endpoint.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates an ElevenLabs client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, core.NewAgentError("tts.NewClient",
			fmt.Errorf("elevenlabs api key is required: %w", core.ErrConfig))
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_multilingual_v2"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "mp3_44100_128"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{config: config, client: client}, nil
}

type synthesizeRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format,omitempty"`
}

// Synthesize converts text to speech and returns the audio bytes and their
// MIME type. An empty voiceID falls back to the configured default voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", core.NewAgentError("Synthesize",
			fmt.Errorf("text must not be empty: %w", core.ErrInvalidInput))
	}
	if voiceID == "" {
		voiceID = c.config.VoiceID
	}
	if voiceID == "" {
		return nil, "", core.NewAgentError("Synthesize",
			fmt.Errorf("voice id is not configured: %w", core.ErrConfig))
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:         text,
		ModelID:      c.config.ModelID,
		OutputFormat: c.config.OutputFormat,
	})
	if err != nil {
		return nil, "", core.NewAgentError("Synthesize", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.config.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", core.NewAgentError("Synthesize", err)
	}
	req.Header.Set("xi-api-key", c.config.APIKey)
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", core.NewAgentError("Synthesize",
			fmt.Errorf("elevenlabs request: %v: %w", err, core.ErrCollaborator))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", core.NewAgentError("Synthesize",
			fmt.Errorf("elevenlabs status %d: %s: %w",
				resp.StatusCode, strings.TrimSpace(string(detail)), core.ErrCollaborator))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", core.NewAgentError("Synthesize",
			fmt.Errorf("read audio: %v: %w", err, core.ErrCollaborator))
	}
	return audio, "audio/mpeg", nil
}
