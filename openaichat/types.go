package openaichat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockKind is the discriminator tag for ContentBlock.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// TextBlock holds plain text generated by the model or provided by the user.
// An empty string is a valid value and is preserved through serialization;
// dropping it would lose structural information from the turn.
type TextBlock struct {
	Text string `json:"text"`
}

// ImageDetail controls how much resolution the server spends on an image.
type ImageDetail string

const (
	DetailLow  ImageDetail = "low"
	DetailHigh ImageDetail = "high"
	DetailAuto ImageDetail = "auto"
)

// ImageBlock holds image content as a URL or a validated base64 data URI.
// Construct with ImageFromURL or ImageFromBase64; the zero value is invalid.
type ImageBlock struct {
	url    string
	detail ImageDetail
}

// ImageFromURL creates an ImageBlock from an http(s) URL or data URI.
func ImageFromURL(url string) (ImageBlock, error) {
	if url == "" {
		return ImageBlock{}, &ValidationError{SDKError: SDKError{Message: "image URL must not be empty"}}
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "data:") {
		return ImageBlock{}, &ValidationError{SDKError: SDKError{
			Message: fmt.Sprintf("image URL must start with http://, https:// or data:, got %q", truncateForError(url, 64)),
		}}
	}
	return ImageBlock{url: url, detail: DetailAuto}, nil
}

// ImageFromBase64 creates an ImageBlock from raw base64 data and a MIME type.
// The data is validated (character set, padding, length) before it can reach
// an outbound message, and is rendered as a data:<mime>;base64,<data> URI.
func ImageFromBase64(data, mediaType string) (ImageBlock, error) {
	if err := validateBase64(data); err != nil {
		return ImageBlock{}, err
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return ImageBlock{}, &ValidationError{SDKError: SDKError{
			Message: fmt.Sprintf("media type must be an image/* MIME type, got %q", mediaType),
		}}
	}
	return ImageBlock{
		url:    "data:" + mediaType + ";base64," + data,
		detail: DetailAuto,
	}, nil
}

// WithDetail returns a copy of the block with the given detail level.
func (b ImageBlock) WithDetail(d ImageDetail) ImageBlock {
	b.detail = d
	return b
}

// URL returns the image URL (a data URI for base64-sourced images).
func (b ImageBlock) URL() string { return b.url }

// Detail returns the detail level, defaulting to auto.
func (b ImageBlock) Detail() ImageDetail {
	if b.detail == "" {
		return DetailAuto
	}
	return b.detail
}

// validateBase64 checks the alphabet, padding placement, and length of a
// base64 payload without decoding it.
func validateBase64(data string) error {
	if data == "" {
		return &ValidationError{SDKError: SDKError{Message: "base64 image data must not be empty"}}
	}
	if len(data)%4 != 0 {
		return &ValidationError{SDKError: SDKError{
			Message: fmt.Sprintf("base64 image data length must be a multiple of 4, got %d", len(data)),
		}}
	}
	padding := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '=':
			padding++
			if padding > 2 {
				return &ValidationError{SDKError: SDKError{Message: "base64 image data has more than 2 padding characters"}}
			}
		case padding > 0:
			return &ValidationError{SDKError: SDKError{Message: "base64 image data has padding before the end of the payload"}}
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '+' || c == '/':
			// valid alphabet
		default:
			return &ValidationError{SDKError: SDKError{
				Message: fmt.Sprintf("base64 image data contains invalid character %q at offset %d", string(c), i),
			}}
		}
	}
	return nil
}

// ToolUseBlock represents a model-issued request to invoke a tool.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock holds the result of executing a ToolUseBlock.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// ContentBlock is a tagged union representing one unit of message content.
type ContentBlock struct {
	Kind       BlockKind        `json:"kind"`
	Text       *TextBlock       `json:"text,omitempty"`
	Image      *ImageBlock      `json:"image,omitempty"`
	ToolUse    *ToolUseBlock    `json:"tool_use,omitempty"`
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`
}

// Text creates a text ContentBlock.
func Text(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: &TextBlock{Text: text}}
}

// Image creates an image ContentBlock.
func Image(img ImageBlock) ContentBlock {
	return ContentBlock{Kind: BlockImage, Image: &img}
}

// ToolUse creates a tool use ContentBlock.
func ToolUse(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ToolUse: &ToolUseBlock{ID: id, Name: name, Input: input}}
}

// ToolResult creates a tool result ContentBlock.
func ToolResult(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{
		Kind:       BlockToolResult,
		ToolResult: &ToolResultBlock{ToolUseID: toolUseID, Content: content, IsError: isError},
	}
}

// Message is the fundamental unit of conversation history.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{Text(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{Text(text)}}
}

// AssistantMessage creates an assistant Message from content blocks.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// ToolResultMessage creates a tool-role Message carrying exactly one result.
// Tool-role messages never carry anything else; the wire format requires one
// message per tool_call_id.
func ToolResultMessage(toolUseID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: []ContentBlock{ToolResult(toolUseID, content, isError)}}
}

// TextContent returns the concatenation of all text blocks.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Kind == BlockText && block.Text != nil {
			sb.WriteString(block.Text.Text)
		}
	}
	return sb.String()
}

// ToolUses extracts all tool use blocks from the message.
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range m.Content {
		if block.Kind == BlockToolUse && block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// ToolDefinition describes a callable tool to the server.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request is the input for one streamed model turn.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

// DeltaEvent is one incremental fragment of a streamed model response.
// Text is non-nil when the chunk carried a content fragment (possibly empty);
// ToolCall is non-nil when it carried a tool-call fragment. An event with
// neither carries only a finish reason; heartbeat chunks with none of the
// three are consumed by the decoder.
type DeltaEvent struct {
	Text         *string
	ToolCall     *ToolCallDelta
	FinishReason string
}

// ToolCallDelta is an indexed partial tool-call fragment. Index routes the
// fragment to its in-progress accumulator and is stable within one turn only.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// truncateForError shortens untrusted payload text before embedding it in an
// error message.
func truncateForError(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
