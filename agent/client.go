package agent

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/martinemde/openagent/openaichat"
)

// State describes what the session is currently doing.
type State string

const (
	StateIdle          State = "idle"
	StateStreaming     State = "streaming"
	StateAggregating   State = "aggregating"
	StateToolExecuting State = "tool_executing"
	StateCancelled     State = "cancelled"
)

// Client is a stateful agent session over one OpenAI-compatible server. It
// owns the conversation history, drives streamed turns, executes tool calls
// automatically, and consults hooks at each lifecycle point.
//
// Send and Receive are serialized; one turn is in flight at a time.
// Interrupt, State, History, and Events are safe to call from any goroutine.
type Client struct {
	opts    Options
	llm     *openaichat.Client
	tools   *ToolRegistry
	emitter *EventEmitter
	counter *TokenCounter

	mu        sync.Mutex
	history   []openaichat.Message
	state     State
	turnCount int

	// turnMu serializes Send/Receive so one turn is in flight at a time.
	turnMu     sync.Mutex
	turnActive bool
	queue      []openaichat.ContentBlock
	finalErr   error

	interrupted atomic.Bool
	cancelMu    sync.Mutex
	cancel      context.CancelFunc
}

// NewClient builds a session from options. Provider defaults and environment
// overrides are resolved here, so a misconfigured session fails at
// construction rather than on first send.
func NewClient(opts Options) (*Client, error) {
	cfg, err := ResolveConfig(opts.Provider, Config{
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		APIKey:  opts.APIKey,
	})
	if err != nil {
		return nil, err
	}
	opts.BaseURL = cfg.BaseURL
	opts.Model = cfg.Model
	opts.APIKey = cfg.APIKey
	if opts.Logger == nil {
		return nil, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "options must be built with NewOptions().Build()",
		}}
	}

	sessionID := uuid.NewString()
	emitter := NewEventEmitter(sessionID, 0)

	retry := opts.Retry
	userOnRetry := retry.OnRetry
	retry.OnRetry = func(err error, attempt int, delay time.Duration) {
		emitter.Emit(EventRetry, map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		if userOnRetry != nil {
			userOnRetry(err, attempt, delay)
		}
	}

	transport := opts.Transport
	if transport == nil {
		var topts []openaichat.HTTPTransportOption
		if opts.HTTPClient != nil {
			topts = append(topts, openaichat.WithHTTPClient(opts.HTTPClient))
		}
		if opts.RequestTimeout > 0 {
			topts = append(topts, openaichat.WithRequestTimeout(opts.RequestTimeout))
		}
		transport = openaichat.NewHTTPTransport(opts.BaseURL, opts.APIKey, topts...)
	}
	c := &Client{
		opts:    opts,
		llm:     openaichat.NewClient(transport, openaichat.WithRetryPolicy(retry)),
		tools:   NewToolRegistry(),
		emitter: emitter,
		counter: NewTokenCounter(opts.Model),
		state:   StateIdle,
	}
	if opts.SystemPrompt != "" {
		c.history = append(c.history, openaichat.SystemMessage(opts.SystemPrompt))
	}
	for _, tool := range opts.Tools {
		c.tools.Register(tool)
	}
	return c, nil
}

// SessionID returns the session's unique identifier.
func (c *Client) SessionID() string { return c.emitter.sessionID }

// RegisterTool makes a tool available to the model and to auto-execution.
func (c *Client) RegisterTool(tool *Tool) {
	c.tools.Register(tool)
}

// State returns the session's current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of the conversation history.
func (c *Client) History() []openaichat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]openaichat.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Events returns the session's event channel.
func (c *Client) Events() <-chan SessionEvent {
	return c.emitter.Events()
}

// Close releases session resources. The conversation history survives Close
// and remains readable.
func (c *Client) Close() {
	c.emitter.Close()
}

// Send submits a user prompt. UserPromptSubmit hooks run first and may
// rewrite or veto the prompt; a vetoed prompt never reaches the history.
// The turn's responses are then drained with Receive.
func (c *Client) Send(ctx context.Context, prompt string) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	if c.opts.MaxTurns > 0 && c.turnCount >= c.opts.MaxTurns {
		err := &LimitExceededError{Limit: "turns", Max: c.opts.MaxTurns}
		c.emitter.Emit(EventLimitExceeded, map[string]interface{}{"limit": err.Limit, "max": err.Max})
		return err
	}

	ev := &UserPromptSubmitEvent{Prompt: prompt, History: c.History()}
	decision, err := c.opts.Hooks.RunUserPromptSubmit(ctx, ev)
	if err != nil {
		return &HookVetoedError{HookKind: HookUserPromptSubmit, Reason: err.Error()}
	}
	if decision != nil {
		if !decision.Continue {
			c.emitter.Emit(EventHookVeto, map[string]interface{}{
				"hook":   HookUserPromptSubmit,
				"reason": decision.Reason,
			})
			return &HookVetoedError{HookKind: HookUserPromptSubmit, Reason: decision.Reason}
		}
		if decision.ModifiedPrompt != nil {
			prompt = *decision.ModifiedPrompt
		}
	}

	if prompt == "" && !c.opts.AllowEmptyPrompt {
		return &openaichat.ValidationError{SDKError: openaichat.SDKError{
			Message: "prompt is empty",
		}}
	}

	return c.sendMessage(openaichat.UserMessage(prompt))
}

// SendBlocks submits a user message built from content blocks, for prompts
// that carry images. UserPromptSubmit hooks see the joined text content and
// may veto; prompt rewriting does not apply to block sends.
func (c *Client) SendBlocks(ctx context.Context, blocks ...openaichat.ContentBlock) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	if c.opts.MaxTurns > 0 && c.turnCount >= c.opts.MaxTurns {
		err := &LimitExceededError{Limit: "turns", Max: c.opts.MaxTurns}
		c.emitter.Emit(EventLimitExceeded, map[string]interface{}{"limit": err.Limit, "max": err.Max})
		return err
	}
	if len(blocks) == 0 {
		return &openaichat.ValidationError{SDKError: openaichat.SDKError{
			Message: "message has no content blocks",
		}}
	}

	msg := openaichat.Message{Role: openaichat.RoleUser, Content: blocks}
	ev := &UserPromptSubmitEvent{Prompt: msg.TextContent(), History: c.History()}
	decision, err := c.opts.Hooks.RunUserPromptSubmit(ctx, ev)
	if err != nil {
		return &HookVetoedError{HookKind: HookUserPromptSubmit, Reason: err.Error()}
	}
	if decision != nil && !decision.Continue {
		c.emitter.Emit(EventHookVeto, map[string]interface{}{
			"hook":   HookUserPromptSubmit,
			"reason": decision.Reason,
		})
		return &HookVetoedError{HookKind: HookUserPromptSubmit, Reason: decision.Reason}
	}

	return c.sendMessage(msg)
}

func (c *Client) sendMessage(msg openaichat.Message) error {
	c.mu.Lock()
	c.history = append(c.history, msg)
	c.turnCount++
	c.mu.Unlock()

	c.interrupted.Store(false)
	c.turnActive = true
	c.queue = nil
	c.finalErr = nil

	c.emitter.Emit(EventUserPrompt, map[string]interface{}{"text": msg.TextContent()})
	return nil
}

// Receive returns the next finalized content block of the current turn. It
// returns (nil, nil) when the turn is complete. A terminal error such as a
// limit or aggregation failure is returned only after every block produced
// before it has been delivered.
func (c *Client) Receive(ctx context.Context) (*openaichat.ContentBlock, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	if c.turnActive {
		c.turnActive = false
		c.emitter.Emit(EventTurnStart, nil)
		c.runTurn(ctx)
	}

	if len(c.queue) > 0 {
		block := c.queue[0]
		c.queue = c.queue[1:]
		return &block, nil
	}
	if c.finalErr != nil {
		err := c.finalErr
		c.finalErr = nil
		return nil, err
	}
	return nil, nil
}

// runTurn drives the request/stream/aggregate/execute cycle until the model
// stops requesting tools, a limit trips, or the turn is interrupted.
// Finalized blocks accumulate on the delivery queue; a terminal error lands
// in finalErr so it surfaces after the queue drains.
func (c *Client) runTurn(ctx context.Context) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer func() {
		c.cancelMu.Lock()
		c.cancel = nil
		c.cancelMu.Unlock()
	}()

	for iteration := 1; ; iteration++ {
		if iteration > c.opts.MaxToolIterations {
			err := &LimitExceededError{Limit: "tool_iterations", Max: c.opts.MaxToolIterations}
			c.emitter.Emit(EventLimitExceeded, map[string]interface{}{"limit": err.Limit, "max": err.Max})
			c.finishTurn(StateIdle, err)
			return
		}
		if c.checkInterrupted() {
			c.finishTurn(StateCancelled, c.interruptError())
			return
		}

		c.warnIfNearContextLimit()

		blocks, err := c.streamOnce(turnCtx)
		c.queue = append(c.queue, blocks...)
		if err != nil {
			state := StateIdle
			if _, aborted := err.(*openaichat.AbortError); aborted && c.interrupted.Load() {
				state = StateCancelled
			}
			c.finishTurn(state, err)
			return
		}

		c.mu.Lock()
		c.history = append(c.history, openaichat.AssistantMessage(blocks...))
		c.mu.Unlock()

		var toolUses []openaichat.ToolUseBlock
		for _, block := range blocks {
			if block.Kind == openaichat.BlockToolUse {
				toolUses = append(toolUses, *block.ToolUse)
			}
		}
		if len(toolUses) == 0 {
			c.finishTurn(StateIdle, nil)
			return
		}
		if !c.opts.AutoExecuteTools {
			// The caller answers the delivered tool use blocks with
			// AddToolResult and resumes with Receive.
			c.finishTurn(StateIdle, nil)
			return
		}

		c.setState(StateToolExecuting)
		for _, tu := range toolUses {
			if c.checkInterrupted() {
				c.finishTurn(StateCancelled, c.interruptError())
				return
			}
			result := c.executeTool(turnCtx, tu)
			if c.checkInterrupted() {
				// The tool ran to completion but its result is discarded.
				c.finishTurn(StateCancelled, c.interruptError())
				return
			}
			c.mu.Lock()
			c.history = append(c.history, openaichat.ToolResultMessage(
				result.ToolResult.ToolUseID, result.ToolResult.Content, result.ToolResult.IsError))
			c.mu.Unlock()
		}
	}
}

// streamOnce issues one request and consumes its stream to completion. On an
// aggregation failure the recovered text blocks come back alongside the
// error.
func (c *Client) streamOnce(ctx context.Context) ([]openaichat.ContentBlock, error) {
	c.setState(StateStreaming)
	c.emitter.Emit(EventStreamStart, map[string]interface{}{"model": c.opts.Model})

	stream, err := c.llm.Stream(ctx, c.buildRequest())
	if err != nil {
		c.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	defer stream.Close()

	agg := openaichat.NewTurnAggregator()
	for {
		if c.checkInterrupted() {
			return nil, c.interruptError()
		}
		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		if ev.Text != nil {
			c.emitter.Emit(EventTextDelta, map[string]interface{}{"text": *ev.Text})
		}
		agg.Add(*ev)
	}

	c.setState(StateAggregating)
	blocks, err := agg.Finalize()
	for _, block := range blocks {
		c.emitter.Emit(EventBlockFinal, map[string]interface{}{"kind": string(block.Kind)})
	}
	if err != nil {
		c.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
	}
	return blocks, err
}

// executeTool runs one tool call through the PreToolUse hook, the handler,
// and the PostToolUse hook, always producing a tool result block. Failures
// and vetoes become error results so the model sees every call answered.
func (c *Client) executeTool(ctx context.Context, tu openaichat.ToolUseBlock) openaichat.ContentBlock {
	input := tu.Input

	preEv := &PreToolUseEvent{ToolName: tu.Name, Input: input, ToolUseID: tu.ID, History: c.History()}
	decision, err := c.opts.Hooks.RunPreToolUse(ctx, preEv)
	if err != nil {
		c.opts.Logger.Warn("pre-tool hook failed", "tool", tu.Name, "error", err)
		return openaichat.ToolResult(tu.ID, "tool call aborted by hook error: "+err.Error(), true)
	}
	if decision != nil {
		if !decision.Continue {
			c.emitter.Emit(EventHookVeto, map[string]interface{}{
				"hook":   HookPreToolUse,
				"tool":   tu.Name,
				"reason": decision.Reason,
			})
			msg := "tool call blocked by hook"
			if decision.Reason != "" {
				msg += ": " + decision.Reason
			}
			return openaichat.ToolResult(tu.ID, msg, true)
		}
		if decision.ModifiedInput != nil {
			input = decision.ModifiedInput
		}
	}

	tool := c.tools.Get(tu.Name)
	if tool == nil {
		c.opts.Logger.Warn("model requested unknown tool", "tool", tu.Name)
		return openaichat.ToolResult(tu.ID, "unknown tool: "+tu.Name, true)
	}

	c.emitter.Emit(EventToolStart, map[string]interface{}{"tool": tu.Name, "tool_use_id": tu.ID})
	result, execErr := tool.Handler(ctx, input)
	isError := false
	if execErr != nil {
		toolErr := &ToolExecutionError{
			SDKError:  openaichat.SDKError{Message: execErr.Error(), Cause: execErr},
			ToolName:  tu.Name,
			ToolUseID: tu.ID,
		}
		c.opts.Logger.Warn("tool execution failed", "tool", tu.Name, "error", execErr)
		result = toolErr.Error()
		isError = true
	}
	c.emitter.Emit(EventToolEnd, map[string]interface{}{
		"tool":        tu.Name,
		"tool_use_id": tu.ID,
		"is_error":    isError,
	})

	postEv := &PostToolUseEvent{ToolName: tu.Name, Input: input, ToolUseID: tu.ID, Result: result, History: c.History()}
	postDecision, err := c.opts.Hooks.RunPostToolUse(ctx, postEv)
	if err != nil {
		c.opts.Logger.Warn("post-tool hook failed", "tool", tu.Name, "error", err)
		return openaichat.ToolResult(tu.ID, "tool result suppressed by hook error: "+err.Error(), true)
	}
	if postDecision != nil {
		if !postDecision.Continue {
			c.emitter.Emit(EventHookVeto, map[string]interface{}{
				"hook":   HookPostToolUse,
				"tool":   tu.Name,
				"reason": postDecision.Reason,
			})
			msg := "tool result suppressed by hook"
			if postDecision.Reason != "" {
				msg += ": " + postDecision.Reason
			}
			return openaichat.ToolResult(tu.ID, msg, true)
		}
		if postDecision.ModifiedResult != nil {
			result = *postDecision.ModifiedResult
		}
	}

	return openaichat.ToolResult(tu.ID, result, isError)
}

// AddToolResult answers a pending tool call under manual execution. The
// result is appended to history as a tool-role message and the turn is
// re-armed, so the next Receive resumes the request cycle.
func (c *Client) AddToolResult(toolUseID, content string, isError bool) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	c.mu.Lock()
	c.history = append(c.history, openaichat.ToolResultMessage(toolUseID, content, isError))
	c.mu.Unlock()
	c.turnActive = true
}

// Interrupt requests cooperative cancellation of the current turn. The flag
// is observed at stream events, retry sleeps, and tool boundaries; an
// in-flight tool handler runs to completion but its result is discarded.
// History accumulated before the interrupt is preserved.
func (c *Client) Interrupt() {
	c.interrupted.Store(true)
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()
	c.emitter.Emit(EventInterrupt, nil)
}

func (c *Client) checkInterrupted() bool {
	return c.interrupted.Load()
}

func (c *Client) interruptError() error {
	return &openaichat.AbortError{SDKError: openaichat.SDKError{Message: "turn interrupted"}}
}

// warnIfNearContextLimit flags histories consuming most of the configured
// context window. Counts are estimates for models without a known encoding.
func (c *Client) warnIfNearContextLimit() {
	if c.opts.ContextWindow <= 0 {
		return
	}
	history := c.History()
	if !c.counter.IsApproachingLimit(history, c.opts.ContextWindow, 0.8) {
		return
	}
	used := c.counter.CountHistory(history)
	c.opts.Logger.Warn("conversation approaching context window",
		"used_tokens", used, "context_window", c.opts.ContextWindow)
	c.emitter.Emit(EventWarning, map[string]interface{}{
		"reason":         "context_window",
		"used_tokens":    used,
		"context_window": c.opts.ContextWindow,
	})
}

func (c *Client) buildRequest() openaichat.Request {
	c.mu.Lock()
	messages := make([]openaichat.Message, len(c.history))
	copy(messages, c.history)
	c.mu.Unlock()
	return openaichat.Request{
		Model:       c.opts.Model,
		Messages:    messages,
		Tools:       c.tools.Definitions(),
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) finishTurn(state State, err error) {
	c.setState(state)
	if err != nil {
		c.finalErr = err
	}
	c.emitter.Emit(EventTurnEnd, map[string]interface{}{"state": string(state)})
}
