package openaichat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Wire-level request body types for the chat/completions endpoint.

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    interface{}    `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string             `json:"type"`
	Function wireToolDefinition `json:"function"`
}

type wireToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type wireContentPart struct {
	Type     string        `json:"type"`
	Text     *string       `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// marshalRequest serializes a Request into the chat/completions body.
func marshalRequest(req Request) ([]byte, error) {
	messages, err := buildWireMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	wr := wireRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}
	for _, def := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{
			Type: "function",
			Function: wireToolDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return json.Marshal(wr)
}

// buildWireMessages converts conversation history into wire messages.
//
// Each history message takes exactly one of three wire shapes. A message
// whose blocks include a ToolResult becomes a tool-role message carrying the
// result and the originating call id (one wire message per result). A message
// whose blocks include a ToolUse becomes an assistant message carrying a
// tool_calls list with JSON-stringified arguments. Everything else is a plain
// role/content message. Collapsing the first two shapes into the text path
// hides tool outcomes from the model, which then re-issues the same call
// forever.
func buildWireMessages(messages []Message) ([]wireMessage, error) {
	var out []wireMessage
	for _, msg := range messages {
		wms, err := buildWireMessage(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, wms...)
	}
	return out, nil
}

func buildWireMessage(msg Message) ([]wireMessage, error) {
	var toolResults []ToolResultBlock
	var toolUses []ToolUseBlock
	hasImage := false
	for _, block := range msg.Content {
		switch block.Kind {
		case BlockToolResult:
			if block.ToolResult != nil {
				toolResults = append(toolResults, *block.ToolResult)
			}
		case BlockToolUse:
			if block.ToolUse != nil {
				toolUses = append(toolUses, *block.ToolUse)
			}
		case BlockImage:
			hasImage = true
		}
	}

	// Shape 1: tool results, one tool-role wire message each.
	if len(toolResults) > 0 {
		out := make([]wireMessage, 0, len(toolResults))
		for _, tr := range toolResults {
			out = append(out, wireMessage{
				Role:       string(RoleTool),
				Content:    tr.Content,
				ToolCallID: tr.ToolUseID,
			})
		}
		return out, nil
	}

	// Shape 2: assistant message carrying tool calls.
	if len(toolUses) > 0 {
		wm := wireMessage{
			Role:    string(RoleAssistant),
			Content: msg.TextContent(),
		}
		for _, tu := range toolUses {
			args := string(tu.Input)
			if args == "" {
				args = "{}"
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tu.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tu.Name,
					Arguments: args,
				},
			})
		}
		return []wireMessage{wm}, nil
	}

	// Shape 3 with images: array-of-parts content, order preserved.
	if hasImage {
		parts, err := buildContentParts(msg.Content)
		if err != nil {
			return nil, err
		}
		return []wireMessage{{Role: string(msg.Role), Content: parts}}, nil
	}

	// Shape 3: plain string content. Multiple text blocks join with a
	// newline; a single empty text block stays an empty string.
	return []wireMessage{{Role: string(msg.Role), Content: joinTextBlocks(msg.Content)}}, nil
}

// buildContentParts renders mixed text/image content in vision array format.
// Empty text parts are kept so the block structure survives the round trip.
func buildContentParts(blocks []ContentBlock) ([]wireContentPart, error) {
	var parts []wireContentPart
	for _, block := range blocks {
		switch block.Kind {
		case BlockText:
			if block.Text == nil {
				continue
			}
			text := block.Text.Text
			if strings.TrimSpace(text) == "" {
				slog.Debug("serializing empty text block alongside image content")
			}
			parts = append(parts, wireContentPart{Type: "text", Text: &text})
		case BlockImage:
			if block.Image == nil {
				continue
			}
			url := block.Image.URL()
			if url == "" {
				return nil, &ValidationError{SDKError: SDKError{
					Message: "image block has no URL; construct images with ImageFromURL or ImageFromBase64",
				}}
			}
			slog.Debug("serializing image part",
				"url", truncateImageURL(url),
				"detail", string(block.Image.Detail()))
			parts = append(parts, wireContentPart{
				Type: "image_url",
				ImageURL: &wireImageURL{
					URL:    url,
					Detail: string(block.Image.Detail()),
				},
			})
		}
	}
	return parts, nil
}

func joinTextBlocks(blocks []ContentBlock) string {
	var texts []string
	for _, block := range blocks {
		if block.Kind == BlockText && block.Text != nil {
			texts = append(texts, block.Text.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// truncateImageURL shortens long data URIs for debug logs while reporting the
// original length.
func truncateImageURL(url string) string {
	const maxLogged = 100
	if len(url) <= maxLogged {
		return url
	}
	return fmt.Sprintf("%s... (%d chars)", url[:maxLogged], len(url))
}
