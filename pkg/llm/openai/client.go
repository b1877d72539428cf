package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kokoro-labs/animus/pkg/llm"
)

// Client is an OpenAI LLM client.
// It implements the llm.Provider interface on top of the OpenAI chat
// completions API, including vision input via multi-part content.
type Client struct {
	client *openai.Client
	model  string
}

// Config is the configuration for the OpenAI client.
// APIKey: OpenAI API key (required)
// Model: Model name to use, defaults to "gpt-4o"
// BaseURL: API base URL, defaults to the OpenAI official address
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient creates a new OpenAI LLM client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Respond generates the assistant's next reply from a conversation.
//
// A non-empty system context is sent as a leading system message. Messages
// carrying an image are converted to multi-part content with an inline
// data-URL image part.
func (c *Client) Respond(ctx context.Context, system string, history []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range history {
		chatMessages = append(chatMessages, toChatMessage(msg))
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm generation failed: no choices returned from OpenAI API")
	}

	return resp.Choices[0].Message.Content, nil
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
// The OpenAI SDK client does not require explicit closing; this method is
// retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}

// toChatMessage converts an llm.Message into the SDK message type, switching
// to multi-part content when an image is attached.
func toChatMessage(msg llm.Message) openai.ChatCompletionMessage {
	if msg.Image == nil {
		return openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	parts := []openai.ChatMessagePart{}
	if msg.Content != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: msg.Content,
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: fmt.Sprintf("data:%s;base64,%s", msg.Image.MediaType, msg.Image.Data),
		},
	})

	return openai.ChatCompletionMessage{
		Role:         msg.Role,
		MultiContent: parts,
	}
}
