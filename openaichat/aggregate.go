package openaichat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// pendingToolCall accumulates one tool call's fragments. The id is set once
// and frozen; name and arguments grow by concatenation. The arguments string
// is only parseable as JSON once the stream ends, so no incremental parsing
// is attempted.
type pendingToolCall struct {
	id    string
	name  strings.Builder
	args  strings.Builder
	order int
}

// TurnAggregator consumes the DeltaEvent sequence for one streamed turn and
// produces the finalized ContentBlocks in the order their index/kind first
// appeared. Accumulators live for exactly one turn; create a fresh aggregator
// per request.
type TurnAggregator struct {
	text         strings.Builder
	textSeen     bool
	textOrder    int
	pending      map[int]*pendingToolCall
	nextOrder    int
	finishReason string
}

// NewTurnAggregator creates an aggregator for one turn.
func NewTurnAggregator() *TurnAggregator {
	return &TurnAggregator{pending: make(map[int]*pendingToolCall)}
}

// Add ingests a single delta event. Events must arrive in stream order.
func (a *TurnAggregator) Add(ev DeltaEvent) {
	if ev.FinishReason != "" {
		a.finishReason = ev.FinishReason
	}
	if ev.Text != nil {
		if !a.textSeen {
			a.textSeen = true
			a.textOrder = a.nextOrder
			a.nextOrder++
		}
		a.text.WriteString(*ev.Text)
	}
	if ev.ToolCall != nil {
		a.addToolCall(*ev.ToolCall)
	}
}

func (a *TurnAggregator) addToolCall(tc ToolCallDelta) {
	p, ok := a.pending[tc.Index]
	if !ok {
		p = &pendingToolCall{order: a.nextOrder}
		a.nextOrder++
		a.pending[tc.Index] = p
	}
	if tc.ID != "" {
		if p.id == "" {
			p.id = tc.ID
		} else if p.id != tc.ID {
			slog.Warn("ignoring inconsistent tool call id fragment",
				"index", tc.Index, "id", p.id, "conflicting_id", tc.ID)
		}
	}
	p.name.WriteString(tc.Name)
	p.args.WriteString(tc.Arguments)
}

// FinishReason returns the last finish reason seen on the stream, if any.
func (a *TurnAggregator) FinishReason() string { return a.finishReason }

// Finalize consumes the accumulators and returns the turn's content blocks in
// first-seen order. A text block is emitted whenever a content fragment was
// seen, even if the accumulated text is empty. A tool call missing its id or
// name, or whose arguments fail to parse as JSON, yields an AggregationError;
// finalized text blocks are still returned alongside the error so the turn's
// text is not lost.
func (a *TurnAggregator) Finalize() ([]ContentBlock, error) {
	type slot struct {
		order int
		block ContentBlock
	}
	slots := make([]slot, 0, len(a.pending)+1)

	if a.textSeen {
		slots = append(slots, slot{order: a.textOrder, block: Text(a.text.String())})
	}

	// Visit accumulators in first-seen order so the reported error is the
	// earliest malformed call, not whichever the map yields first.
	type entry struct {
		index int
		p     *pendingToolCall
	}
	entries := make([]entry, 0, len(a.pending))
	for index, p := range a.pending {
		entries = append(entries, entry{index: index, p: p})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].p.order > entries[j].p.order; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}

	var firstErr error
	for _, e := range entries {
		index, p := e.index, e.p
		name := p.name.String()
		rawArgs := p.args.String()

		if p.id == "" || name == "" {
			// A partially-identified call can never be safely executed, so
			// this is fatal for the turn's tool path rather than something to
			// drop silently.
			if firstErr == nil {
				firstErr = &AggregationError{
					SDKError: SDKError{Message: fmt.Sprintf(
						"incomplete tool call at stream end (id=%q, name=%q)", p.id, name)},
					Index:      index,
					ToolCallID: p.id,
				}
			}
			continue
		}

		if rawArgs == "" {
			rawArgs = "{}"
		}
		if !json.Valid([]byte(rawArgs)) {
			if firstErr == nil {
				firstErr = &AggregationError{
					SDKError: SDKError{Message: fmt.Sprintf(
						"tool call %s arguments are not valid JSON: %s", name, truncateForError(rawArgs, maxFragmentLen))},
					Index:      index,
					ToolCallID: p.id,
				}
			}
			continue
		}

		slots = append(slots, slot{
			order: p.order,
			block: ToolUse(p.id, name, json.RawMessage(rawArgs)),
		})
	}

	// Insertion sort by first-seen order; turns hold a handful of blocks.
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j-1].order > slots[j].order; j-- {
			slots[j-1], slots[j] = slots[j], slots[j-1]
		}
	}

	blocks := make([]ContentBlock, 0, len(slots))
	if firstErr != nil {
		// Preserve only the text blocks; none of the tool calls are safe to
		// surface once the turn's tool path is known to be broken.
		for _, s := range slots {
			if s.block.Kind == BlockText {
				blocks = append(blocks, s.block)
			}
		}
		a.reset()
		return blocks, firstErr
	}
	for _, s := range slots {
		blocks = append(blocks, s.block)
	}
	a.reset()
	return blocks, nil
}

// reset discards all accumulators so a finalized aggregator cannot leak state
// across turns.
func (a *TurnAggregator) reset() {
	a.text.Reset()
	a.textSeen = false
	a.pending = make(map[int]*pendingToolCall)
	a.nextOrder = 0
}
