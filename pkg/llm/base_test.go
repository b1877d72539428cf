package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kokoro-labs/animus/pkg/llm"
)

func TestApplyGenerateOptionsDefaults(t *testing.T) {
	opts := llm.ApplyGenerateOptions(nil)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 1024, opts.MaxTokens)
	assert.Equal(t, 1.0, opts.TopP)
	assert.Empty(t, opts.Stop)
}

func TestApplyGenerateOptionsOverrides(t *testing.T) {
	opts := llm.ApplyGenerateOptions([]llm.GenerateOption{
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(256),
		llm.WithTopP(0.9),
	})
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 256, opts.MaxTokens)
	assert.Equal(t, 0.9, opts.TopP)
}

func TestFormatTranscript(t *testing.T) {
	transcript := llm.FormatTranscript([]llm.Message{
		{Role: "user", Content: "hi there"},
		{Role: "assistant", Content: "hello!"},
		{Role: "user", Content: "look", Image: &llm.Image{MediaType: "image/jpeg", Data: "aGk="}},
		{Role: "assistant", Content: "   "},
	})
	assert.Equal(t, "User: hi there\nAgent: hello!\nUser: look [image attached]", transcript)
}

func TestSummaryPromptIncludesPriorSummary(t *testing.T) {
	prompt := llm.SummaryPrompt([]llm.Message{
		{Role: "user", Content: "tell me about whales"},
	}, "We discussed the weather.")
	assert.Contains(t, prompt, "Earlier summary:\nWe discussed the weather.")
	assert.Contains(t, prompt, "User: tell me about whales")
}
