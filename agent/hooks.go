package agent

import (
	"context"
	"encoding/json"

	"github.com/martinemde/openagent/openaichat"
)

// Hook kind identifiers, used for registration bookkeeping and event logs.
const (
	HookUserPromptSubmit = "UserPromptSubmit"
	HookPreToolUse       = "PreToolUse"
	HookPostToolUse      = "PostToolUse"
)

// HookDecision is the outcome of a hook invocation. A nil *HookDecision from
// a hook means "no opinion" and the next hook in registration order is
// consulted; the first non-nil decision wins and later hooks are not invoked.
// Decisions are treated as immutable once returned.
type HookDecision struct {
	// Continue false halts the one pending operation (prompt submission or a
	// single tool call) without terminating the overall loop.
	Continue bool
	// Reason is surfaced to the caller when Continue is false.
	Reason string
	// ModifiedPrompt rewrites the user prompt (UserPromptSubmit only).
	ModifiedPrompt *string
	// ModifiedInput rewrites the tool input (PreToolUse only).
	ModifiedInput json.RawMessage
	// ModifiedResult rewrites the tool result (PostToolUse only).
	ModifiedResult *string
}

// Allow returns a decision that lets the operation proceed unmodified.
func Allow() *HookDecision {
	return &HookDecision{Continue: true}
}

// Block returns a decision that halts the pending operation.
func Block(reason string) *HookDecision {
	return &HookDecision{Continue: false, Reason: reason}
}

// UserPromptSubmitEvent is passed to UserPromptSubmit hooks before a prompt
// is appended to history.
type UserPromptSubmitEvent struct {
	Prompt  string
	History []openaichat.Message
}

// PreToolUseEvent is passed to PreToolUse hooks before a tool executes.
type PreToolUseEvent struct {
	ToolName  string
	Input     json.RawMessage
	ToolUseID string
	History   []openaichat.Message
}

// PostToolUseEvent is passed to PostToolUse hooks after a tool executed.
type PostToolUseEvent struct {
	ToolName  string
	Input     json.RawMessage
	ToolUseID string
	Result    string
	History   []openaichat.Message
}

// Hook function signatures. Hooks may block (perform asynchronous work); the
// loop awaits each one, so invocation order within a list is preserved. A
// returned error aborts the pending operation.
type (
	UserPromptSubmitHook func(ctx context.Context, ev *UserPromptSubmitEvent) (*HookDecision, error)
	PreToolUseHook       func(ctx context.Context, ev *PreToolUseEvent) (*HookDecision, error)
	PostToolUseHook      func(ctx context.Context, ev *PostToolUseEvent) (*HookDecision, error)
)

// Hooks holds the ordered hook lists for each lifecycle point. Hooks run
// sequentially in registration order, never concurrently; later hooks may
// depend on earlier hooks' modifications.
type Hooks struct {
	userPromptSubmit []UserPromptSubmitHook
	preToolUse       []PreToolUseHook
	postToolUse      []PostToolUseHook
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{}
}

// OnUserPromptSubmit appends a hook invoked once per user-submitted prompt,
// before transmission. Returns the registry for chaining.
func (h *Hooks) OnUserPromptSubmit(fn UserPromptSubmitHook) *Hooks {
	h.userPromptSubmit = append(h.userPromptSubmit, fn)
	return h
}

// OnPreToolUse appends a hook invoked once per finalized tool call, before
// execution.
func (h *Hooks) OnPreToolUse(fn PreToolUseHook) *Hooks {
	h.preToolUse = append(h.preToolUse, fn)
	return h
}

// OnPostToolUse appends a hook invoked once per tool result, after execution.
func (h *Hooks) OnPostToolUse(fn PostToolUseHook) *Hooks {
	h.postToolUse = append(h.postToolUse, fn)
	return h
}

// RunUserPromptSubmit applies the first non-nil decision, or returns nil if
// every hook abstained.
func (h *Hooks) RunUserPromptSubmit(ctx context.Context, ev *UserPromptSubmitEvent) (*HookDecision, error) {
	if h == nil {
		return nil, nil
	}
	for _, fn := range h.userPromptSubmit {
		decision, err := fn(ctx, ev)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
	}
	return nil, nil
}

// RunPreToolUse applies the first non-nil decision, or returns nil if every
// hook abstained.
func (h *Hooks) RunPreToolUse(ctx context.Context, ev *PreToolUseEvent) (*HookDecision, error) {
	if h == nil {
		return nil, nil
	}
	for _, fn := range h.preToolUse {
		decision, err := fn(ctx, ev)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
	}
	return nil, nil
}

// RunPostToolUse applies the first non-nil decision, or returns nil if every
// hook abstained.
func (h *Hooks) RunPostToolUse(ctx context.Context, ev *PostToolUseEvent) (*HookDecision, error) {
	if h == nil {
		return nil, nil
	}
	for _, fn := range h.postToolUse {
		decision, err := fn(ctx, ev)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
	}
	return nil, nil
}
