package openaichat

import (
	"errors"
	"testing"
)

func textEvent(s string) DeltaEvent {
	return DeltaEvent{Text: &s}
}

func toolEvent(index int, id, name, args string) DeltaEvent {
	return DeltaEvent{ToolCall: &ToolCallDelta{Index: index, ID: id, Name: name, Arguments: args}}
}

func TestAggregatorTextOnly(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(textEvent("Hello, "))
	agg.Add(textEvent("world"))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Kind != BlockText || blocks[0].Text.Text != "Hello, world" {
		t.Errorf("unexpected block: %+v", blocks[0])
	}
}

func TestAggregatorEmptyTextFragmentPreserved(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(textEvent(""))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != BlockText || blocks[0].Text.Text != "" {
		t.Fatalf("expected one empty text block, got %+v", blocks)
	}
}

func TestAggregatorNoEventsNoBlocks(t *testing.T) {
	agg := NewTurnAggregator()
	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %+v", blocks)
	}
}

func TestAggregatorFragmentedToolCall(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(toolEvent(0, "call_1", "get_", ""))
	agg.Add(toolEvent(0, "", "weather", `{"ci`))
	agg.Add(toolEvent(0, "", "", `ty":"Paris"}`))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	tu := blocks[0].ToolUse
	if tu == nil {
		t.Fatalf("expected tool use block, got %+v", blocks[0])
	}
	if tu.ID != "call_1" || tu.Name != "get_weather" {
		t.Errorf("unexpected identity: id=%q name=%q", tu.ID, tu.Name)
	}
	if string(tu.Input) != `{"city":"Paris"}` {
		t.Errorf("unexpected arguments: %s", tu.Input)
	}
}

func TestAggregatorInterleavedCallsMaintainFirstSeenOrder(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(textEvent("calling two tools"))
	agg.Add(toolEvent(0, "call_a", "alpha", ""))
	agg.Add(toolEvent(1, "call_b", "beta", `{"n":`))
	agg.Add(toolEvent(0, "", "", `{"x":1}`))
	agg.Add(toolEvent(1, "", "", `2}`))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != BlockText {
		t.Errorf("expected text first, got %v", blocks[0].Kind)
	}
	if blocks[1].ToolUse == nil || blocks[1].ToolUse.Name != "alpha" {
		t.Errorf("expected alpha second, got %+v", blocks[1])
	}
	if blocks[2].ToolUse == nil || blocks[2].ToolUse.Name != "beta" {
		t.Errorf("expected beta third, got %+v", blocks[2])
	}
	if string(blocks[2].ToolUse.Input) != `{"n":2}` {
		t.Errorf("unexpected beta arguments: %s", blocks[2].ToolUse.Input)
	}
}

func TestAggregatorEmptyArgumentsBecomeEmptyObject(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(toolEvent(0, "call_1", "ping", ""))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(blocks[0].ToolUse.Input) != "{}" {
		t.Errorf("expected {}, got %s", blocks[0].ToolUse.Input)
	}
}

func TestAggregatorMissingIDIsFatal(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(textEvent("some text"))
	agg.Add(toolEvent(0, "", "nameless", "{}"))

	blocks, err := agg.Finalize()
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %T: %v", err, err)
	}
	if aggErr.Index != 0 {
		t.Errorf("expected index 0, got %d", aggErr.Index)
	}
	// Text survives the failure.
	if len(blocks) != 1 || blocks[0].Kind != BlockText {
		t.Errorf("expected text blocks preserved, got %+v", blocks)
	}
}

func TestAggregatorInvalidArgumentsJSON(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(toolEvent(0, "call_1", "broken", `{"unterminated`))

	blocks, err := agg.Finalize()
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %T: %v", err, err)
	}
	if aggErr.ToolCallID != "call_1" {
		t.Errorf("expected call id preserved, got %q", aggErr.ToolCallID)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no tool blocks, got %+v", blocks)
	}
}

func TestAggregatorErrorReportsEarliestBrokenCall(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(toolEvent(3, "", "first_broken", "{}"))
	agg.Add(toolEvent(1, "", "second_broken", "{}"))

	_, err := agg.Finalize()
	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %T: %v", err, err)
	}
	if aggErr.Index != 3 {
		t.Errorf("expected the first-seen call's index 3, got %d", aggErr.Index)
	}
}

func TestAggregatorIDFrozenAfterFirstFragment(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(toolEvent(0, "call_1", "tool", ""))
	agg.Add(toolEvent(0, "call_2", "", "{}"))

	blocks, err := agg.Finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocks[0].ToolUse.ID != "call_1" {
		t.Errorf("expected frozen id call_1, got %q", blocks[0].ToolUse.ID)
	}
}

func TestAggregatorFinishReason(t *testing.T) {
	agg := NewTurnAggregator()
	agg.Add(DeltaEvent{FinishReason: "stop"})
	if agg.FinishReason() != "stop" {
		t.Errorf("expected stop, got %q", agg.FinishReason())
	}
}
