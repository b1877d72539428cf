package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kokoro-labs/animus/pkg/llm"
)

// Client is an Anthropic LLM client.
// It implements the llm.Provider interface on top of the Anthropic Messages
// API. System context is sent through the dedicated "system" field and image
// attachments as base64 source blocks.
type Client struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// Config is the configuration for the Anthropic client.
// APIKey: Anthropic API key (required)
// Model: Model name to use, defaults to "claude-3-5-sonnet-20240620"
// BaseURL: API base URL, defaults to "https://api.anthropic.com"
// HTTPClient: Custom HTTP client, if nil uses a default with 120s timeout
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Anthropic LLM client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: 120 * time.Second,
		}
	}

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Respond generates the assistant's next reply from a conversation.
func (c *Client) Respond(ctx context.Context, system string, history []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	messages := make([]map[string]interface{}, 0, len(history))
	for _, msg := range history {
		messages = append(messages, toAPIMessage(msg))
	}

	reqBody := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
		"top_p":       options.TopP,
		"messages":    messages,
	}

	if system != "" {
		reqBody["system"] = system
	}

	if len(options.Stop) > 0 {
		reqBody["stop_sequences"] = options.Stop
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, block := range response.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", errors.New("llm generation failed: no text content returned from Anthropic API")
}

// Summarize condenses a conversation tail into a short summary.
func (c *Client) Summarize(ctx context.Context, tail []llm.Message, priorSummary string, opts ...llm.GenerateOption) (string, error) {
	prompt := llm.SummaryPrompt(tail, priorSummary)
	history := []llm.Message{{Role: "user", Content: prompt}}
	if len(opts) == 0 {
		opts = []llm.GenerateOption{llm.WithMaxTokens(500)}
	}
	return c.Respond(ctx, "", history, opts...)
}

// Close closes the client connection.
// The HTTP client does not require explicit closing; this method is retained
// for interface compatibility.
func (c *Client) Close() error {
	return nil
}

// toAPIMessage converts an llm.Message into the Messages API shape, using
// content blocks when an image is attached.
func toAPIMessage(msg llm.Message) map[string]interface{} {
	if msg.Image == nil {
		return map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}
	}

	blocks := []map[string]interface{}{}
	if msg.Content != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "text",
			"text": msg.Content,
		})
	}
	blocks = append(blocks, map[string]interface{}{
		"type": "image",
		"source": map[string]interface{}{
			"type":       "base64",
			"media_type": msg.Image.MediaType,
			"data":       msg.Image.Data,
		},
	})

	return map[string]interface{}{
		"role":    msg.Role,
		"content": blocks,
	}
}
