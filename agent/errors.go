package agent

import (
	"fmt"

	"github.com/martinemde/openagent/openaichat"
)

// HookVetoedError signals that a hook halted a pending operation. It is a
// deliberate control signal rather than a failure; the loop itself keeps
// running, and only the one vetoed operation is dropped.
type HookVetoedError struct {
	openaichat.SDKError
	HookKind string
	Reason   string
}

func (e *HookVetoedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s hook vetoed the operation: %s", e.HookKind, e.Reason)
	}
	return fmt.Sprintf("%s hook vetoed the operation", e.HookKind)
}

// LimitExceededError reports that a configured cap was reached. Partial
// results produced before the cap are retained and delivered before this
// error surfaces.
type LimitExceededError struct {
	openaichat.SDKError
	Limit string // "tool_iterations" or "turns"
	Max   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit of %d reached", e.Limit, e.Max)
}

// ToolExecutionError wraps a failure reported by a tool handler. During
// auto-execution it is recorded as an error ToolResult so the model can
// react, rather than aborting the loop.
type ToolExecutionError struct {
	openaichat.SDKError
	ToolName  string
	ToolUseID string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (%s) failed: %s", e.ToolName, e.ToolUseID, e.SDKError.Error())
}
