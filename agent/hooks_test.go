package agent

import (
	"context"
	"errors"
	"testing"
)

func TestHooksFirstNonNilDecisionWins(t *testing.T) {
	var invoked []string
	hooks := NewHooks().
		OnPreToolUse(func(ctx context.Context, ev *PreToolUseEvent) (*HookDecision, error) {
			invoked = append(invoked, "a")
			return nil, nil // abstain
		}).
		OnPreToolUse(func(ctx context.Context, ev *PreToolUseEvent) (*HookDecision, error) {
			invoked = append(invoked, "b")
			return Block("b says no"), nil
		}).
		OnPreToolUse(func(ctx context.Context, ev *PreToolUseEvent) (*HookDecision, error) {
			invoked = append(invoked, "c")
			return Allow(), nil
		})

	decision, err := hooks.RunPreToolUse(context.Background(), &PreToolUseEvent{ToolName: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision == nil || decision.Continue {
		t.Fatalf("expected b's block decision, got %+v", decision)
	}
	if decision.Reason != "b says no" {
		t.Errorf("unexpected reason: %q", decision.Reason)
	}
	if len(invoked) != 2 || invoked[0] != "a" || invoked[1] != "b" {
		t.Errorf("expected a then b, never c, got %v", invoked)
	}
}

func TestHooksAllAbstain(t *testing.T) {
	hooks := NewHooks().
		OnUserPromptSubmit(func(ctx context.Context, ev *UserPromptSubmitEvent) (*HookDecision, error) {
			return nil, nil
		})
	decision, err := hooks.RunUserPromptSubmit(context.Background(), &UserPromptSubmitEvent{Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != nil {
		t.Errorf("expected nil decision, got %+v", decision)
	}
}

func TestHooksErrorStopsChain(t *testing.T) {
	boom := errors.New("hook exploded")
	secondCalled := false
	hooks := NewHooks().
		OnPostToolUse(func(ctx context.Context, ev *PostToolUseEvent) (*HookDecision, error) {
			return nil, boom
		}).
		OnPostToolUse(func(ctx context.Context, ev *PostToolUseEvent) (*HookDecision, error) {
			secondCalled = true
			return nil, nil
		})

	_, err := hooks.RunPostToolUse(context.Background(), &PostToolUseEvent{ToolName: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the hook error, got %v", err)
	}
	if secondCalled {
		t.Error("later hooks must not run after an error")
	}
}

func TestHooksNilRegistry(t *testing.T) {
	var hooks *Hooks
	decision, err := hooks.RunUserPromptSubmit(context.Background(), &UserPromptSubmitEvent{Prompt: "hi"})
	if err != nil || decision != nil {
		t.Errorf("nil registry must abstain, got %+v, %v", decision, err)
	}
	if _, err := hooks.RunPreToolUse(context.Background(), &PreToolUseEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := hooks.RunPostToolUse(context.Background(), &PostToolUseEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHooksModifiedPrompt(t *testing.T) {
	rewritten := "rewritten prompt"
	hooks := NewHooks().
		OnUserPromptSubmit(func(ctx context.Context, ev *UserPromptSubmitEvent) (*HookDecision, error) {
			return &HookDecision{Continue: true, ModifiedPrompt: &rewritten}, nil
		})
	decision, err := hooks.RunUserPromptSubmit(context.Background(), &UserPromptSubmitEvent{Prompt: "original"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.ModifiedPrompt == nil || *decision.ModifiedPrompt != rewritten {
		t.Errorf("expected rewritten prompt, got %+v", decision)
	}
}
