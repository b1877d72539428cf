// Package llm provides interfaces and utilities for Large Language Model (LLM)
// providers.
//
// It defines the Provider interface that all LLM implementations must satisfy,
// along with message types and generation options.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider defines the interface for LLM providers.
//
// All LLM implementations (OpenAI, Anthropic, ...) must implement this
// interface.
type Provider interface {
	// Respond generates the assistant's next reply from a conversation.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - system: System context prepended to the conversation (persona,
	//     memories, desire notice); may be empty
	//   - history: Conversation history; messages may carry an image
	//   - opts: Optional generation parameters (temperature, max tokens, etc.)
	//
	// Returns the generated text and any error.
	Respond(ctx context.Context, system string, history []Message, opts ...GenerateOption) (string, error)

	// Summarize condenses a conversation tail, folding in a previously
	// produced summary, and returns the new summary text.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - tail: The turns being compacted, oldest first
	//   - priorSummary: Summary produced by earlier compactions; may be empty
	//   - opts: Optional generation parameters
	Summarize(ctx context.Context, tail []Message, priorSummary string, opts ...GenerateOption) (string, error)

	// Close closes the provider and releases resources.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the message role: "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message content text.
	Content string `json:"content"`

	// Image is an optional image attachment delivered alongside the text.
	Image *Image `json:"image,omitempty"`
}

// Image is a base64-encoded image attachment.
type Image struct {
	// MediaType is the image MIME type, e.g. "image/jpeg".
	MediaType string `json:"media_type"`

	// Data is the base64-encoded image payload without a data-URL prefix.
	Data string `json:"data"`
}

// GenerateOptions contains options for text generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0). Higher = more random.
	Temperature float64

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int

	// TopP controls nucleus sampling (0.0-1.0). Higher = more diverse.
	TopP float64

	// Stop contains stop sequences that will end generation.
	Stop []string
}

// GenerateOption is a function type for configuring generation options.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the temperature for text generation.
//
// Temperature controls randomness: 0.0 = deterministic, 2.0 = very random.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens in the response.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the top-p (nucleus sampling) parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// ApplyGenerateOptions applies a slice of GenerateOption functions to create
// GenerateOptions.
//
// This is a helper function used internally by LLM implementations.
// Default values: Temperature=0.7, MaxTokens=1024, TopP=1.0.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1024,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// SummaryPrompt builds the user prompt for a Summarize call.
//
// The prior summary, when present, is included so the model folds it into the
// new summary instead of losing earlier context.
func SummaryPrompt(tail []Message, priorSummary string) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation concisely. Keep only the important points.\n\n")
	if priorSummary != "" {
		b.WriteString("Earlier summary:\n")
		b.WriteString(priorSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	b.WriteString(FormatTranscript(tail))
	b.WriteString("\n\nSummary (3-5 sentences):")
	return b.String()
}

// FormatTranscript renders messages as a plain "Role: text" transcript for
// summarization and extraction prompts. Image attachments are replaced with a
// short placeholder.
func FormatTranscript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "Agent"
		if msg.Role == "user" {
			role = "User"
		}
		text := msg.Content
		if msg.Image != nil {
			if text != "" {
				text += " "
			}
			text += "[image attached]"
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, text))
	}
	return strings.Join(lines, "\n")
}
