package agent

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/martinemde/openagent/openaichat"
)

// messageOverheadTokens approximates the per-message framing cost of the
// chat format (role markers and separators).
const messageOverheadTokens = 4

// EstimateTokens gives a cheap length-based token estimate for text, used
// when no encoding is available for the model.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TokenCounter counts tokens for a specific model. When the model has no
// known tiktoken encoding, counts fall back to a length-based estimate.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the given model name. It never
// fails; unknown models simply use estimation.
func NewTokenCounter(model string) *TokenCounter {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Local model names rarely map to a known encoding.
		encoding = nil
	}
	return &TokenCounter{encoding: encoding}
}

// Count returns the token count for text.
func (c *TokenCounter) Count(text string) int {
	if c.encoding == nil {
		return EstimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CountMessage returns the token count for a message including framing
// overhead. Non-text blocks contribute their textual payloads only.
func (c *TokenCounter) CountMessage(msg openaichat.Message) int {
	total := messageOverheadTokens
	for _, block := range msg.Content {
		switch block.Kind {
		case openaichat.BlockText:
			total += c.Count(block.Text.Text)
		case openaichat.BlockToolUse:
			total += c.Count(block.ToolUse.Name)
			total += c.Count(string(block.ToolUse.Input))
		case openaichat.BlockToolResult:
			total += c.Count(block.ToolResult.Content)
		case openaichat.BlockImage:
			// Image token cost is server-dependent; count the URL as a floor.
			total += c.Count(block.Image.URL())
		}
	}
	return total
}

// CountHistory returns the token count of an entire message history.
func (c *TokenCounter) CountHistory(messages []openaichat.Message) int {
	total := 0
	for _, msg := range messages {
		total += c.CountMessage(msg)
	}
	return total
}

// IsApproachingLimit reports whether history has consumed the given
// fraction of the context window.
func (c *TokenCounter) IsApproachingLimit(messages []openaichat.Message, contextWindow int, fraction float64) bool {
	if contextWindow <= 0 {
		return false
	}
	return float64(c.CountHistory(messages)) >= float64(contextWindow)*fraction
}

// TruncateMessages drops the oldest non-system messages until the history
// fits within maxTokens. A leading system message is always preserved, as
// is the most recent message. Messages are dropped whole; a tool result
// whose tool use was dropped is dropped with it.
func (c *TokenCounter) TruncateMessages(messages []openaichat.Message, maxTokens int) []openaichat.Message {
	if maxTokens <= 0 || c.CountHistory(messages) <= maxTokens {
		return messages
	}

	var system []openaichat.Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == openaichat.RoleSystem {
		system = messages[:1]
		rest = messages[1:]
	}

	for len(rest) > 1 {
		candidate := append(append([]openaichat.Message{}, system...), rest...)
		if c.CountHistory(candidate) <= maxTokens {
			break
		}
		rest = rest[1:]
		// Orphaned tool results confuse the server; drop them with the
		// assistant message that requested them.
		for len(rest) > 1 && rest[0].Role == openaichat.RoleTool {
			rest = rest[1:]
		}
	}
	return append(append([]openaichat.Message{}, system...), rest...)
}
