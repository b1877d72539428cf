package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kokoro-labs/animus/pkg/llm"
)

const extractPrompt = `Extract important information worth remembering from the following conversation.

Conversation:
%s

Respond in the following JSON format (return empty array if no important information):
{
  "memories": [
    {
      "content": "Content worth remembering",
      "type": "episodic/semantic/emotional",
      "importance": 0.0 to 1.0,
      "keywords": ["keyword1", "keyword2"]
    }
  ]
}

JSON:`

type extractedMemory struct {
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Importance float64  `json:"importance"`
	Keywords   []string `json:"keywords"`
}

type extractResponse struct {
	Memories []extractedMemory `json:"memories"`
}

// Extract distills an exchange into long-term records and stores the ones
// scoring at or above the keep threshold. With an LLM collaborator the
// distillation is delegated to the model; without one, or when the model's
// output cannot be parsed, a rule-based scorer takes over. Eviction runs
// after every extract, so the store never exceeds its capacity.
//
// The number of stored records is returned.
func (s *Store) Extract(ctx context.Context, exchange []llm.Message, sessionID string, now time.Time) (int, error) {
	if len(exchange) == 0 {
		return 0, nil
	}

	var candidates []*Record
	if s.provider != nil {
		parsed, err := s.extractWithLLM(ctx, exchange, now)
		if err != nil {
			return 0, err
		}
		candidates = parsed
	} else {
		candidates = s.extractWithRules(exchange, now)
	}

	stored := 0
	for _, r := range candidates {
		if r.Importance < s.keepThreshold {
			continue
		}
		r.SessionID = sessionID
		s.records = append(s.records, r)
		stored++
	}
	s.evict(now)
	return stored, nil
}

func (s *Store) extractWithLLM(ctx context.Context, exchange []llm.Message, now time.Time) ([]*Record, error) {
	transcript := llm.FormatTranscript(exchange)
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(extractPrompt, transcript)
	raw, err := s.provider.Respond(ctx, "", []llm.Message{{Role: "user", Content: prompt}},
		llm.WithMaxTokens(1000))
	if err != nil {
		return nil, err
	}

	resp, ok := parseExtractResponse(raw)
	if !ok {
		// The model answered but not in the expected shape; fall back to
		// the rule-based path rather than dropping the exchange.
		return s.extractWithRules(exchange, now), nil
	}

	var out []*Record
	for _, m := range resp.Memories {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, NewRecord(normalizeKind(m.Type), m.Content, m.Importance, m.Keywords, now))
	}
	return out, nil
}

// extractWithRules scores each user utterance directly.
func (s *Store) extractWithRules(exchange []llm.Message, now time.Time) []*Record {
	var out []*Record
	for _, msg := range exchange {
		if msg.Role != "user" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		score := s.scorer.Score(msg.Content)
		keywords := s.scorer.Keywords(msg.Content, 5)
		out = append(out, NewRecord(KindSemantic, msg.Content, score, keywords, now))
	}
	return out
}

// parseExtractResponse pulls the first JSON object out of a model response,
// tolerating surrounding prose and markdown code fences.
func parseExtractResponse(raw string) (extractResponse, bool) {
	var resp extractResponse

	cleaned := raw
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return resp, false
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &resp); err != nil {
		return resp, false
	}
	return resp, true
}
