// classify.go implements the intent classification capability on top of the
// chat completions endpoint: the model is given the allowed group set and must
// answer with strict JSON.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Classification is the structured result of a classify call.
type Classification struct {
	Group      string  `json:"group"`
	Confidence float64 `json:"confidence"`
}

const classifySystem = `You are an intent classifier for a chat bot.
You will receive a user message and a list of allowed intent groups.
Answer with a single JSON object: {"group": "<one allowed group or none>", "confidence": <0.0-1.0>}.
Do not add any other text.`

// Classify asks the model to assign text to one of the allowed groups.
// Returns the raw model verdict; callers own validation and clamping.
func (c *Client) Classify(ctx context.Context, allowed []string, text string) (Classification, error) {
	user := fmt.Sprintf("Allowed groups: %s, none\n\nMessage: %s",
		strings.Join(allowed, ", "), text)

	raw, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifySystem},
			{Role: "user", Content: user},
		},
		// Low temperature: classification should be deterministic.
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		return Classification{}, err
	}

	var result Classification
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return Classification{}, fmt.Errorf("malformed classifier output %q: %w", truncate(raw, 200), err)
	}
	return result, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// insist on wrapping JSON in despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
