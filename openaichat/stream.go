package openaichat

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// maxFragmentLen bounds how much of a malformed line is echoed back in a
	// ProtocolDecodeError.
	maxFragmentLen = 160
)

// streamChunk mirrors one chat-completion event payload on the wire.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// EventDecoder turns a raw event-stream into a finite sequence of DeltaEvent
// values for one model turn. Blank lines, comment/heartbeat lines, and deltas
// carrying neither content nor tool_calls produce no event and no error. A
// line that fails to decode yields a ProtocolDecodeError tagged with the
// offending fragment; the decoder stays usable, so the caller chooses whether
// to keep reading or abort. Create a fresh decoder for every request.
type EventDecoder struct {
	scanner *bufio.Scanner
	queue   []DeltaEvent
	done    bool
}

// NewEventDecoder creates a decoder reading from r.
func NewEventDecoder(r io.Reader) *EventDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &EventDecoder{scanner: scanner}
}

// Next returns the next delta event. It returns io.EOF once the terminal
// sentinel (or the underlying stream end) has been reached.
func (d *EventDecoder) Next() (*DeltaEvent, error) {
	for {
		if len(d.queue) > 0 {
			ev := d.queue[0]
			d.queue = d.queue[1:]
			return &ev, nil
		}
		if d.done {
			return nil, io.EOF
		}
		if !d.scanner.Scan() {
			d.done = true
			if err := d.scanner.Err(); err != nil {
				return nil, &NetworkError{SDKError: SDKError{Message: "event stream read failed", Cause: err}}
			}
			return nil, io.EOF
		}

		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			// SSE fields other than data (event:, id:) carry nothing we need.
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			d.done = true
			return nil, io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, &ProtocolDecodeError{
				SDKError: SDKError{Message: "malformed event payload", Cause: err},
				Fragment: truncateForError(payload, maxFragmentLen),
			}
		}
		d.queue = append(d.queue, chunkEvents(chunk)...)
	}
}

// chunkEvents flattens one decoded chunk into delta events. A delta with
// neither content nor tool_calls nor a finish reason is a heartbeat and
// produces nothing.
func chunkEvents(chunk streamChunk) []DeltaEvent {
	var events []DeltaEvent
	for _, choice := range chunk.Choices {
		finish := ""
		if choice.FinishReason != nil {
			finish = *choice.FinishReason
		}
		if choice.Delta.Content != nil {
			text := *choice.Delta.Content
			events = append(events, DeltaEvent{Text: &text, FinishReason: finish})
			finish = ""
		}
		for _, tc := range choice.Delta.ToolCalls {
			events = append(events, DeltaEvent{
				ToolCall: &ToolCallDelta{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
				FinishReason: finish,
			})
			finish = ""
		}
		if finish != "" {
			events = append(events, DeltaEvent{FinishReason: finish})
		}
	}
	return events
}
