// Package agent implements a stateful conversation loop on top of the
// openaichat wire layer.
//
// It provides a programmable agentic loop pairing an OpenAI-compatible model
// with caller-supplied tools. The loop orchestrates streamed model calls,
// tool execution, lifecycle hooks, retry, iteration limits, and cooperative
// interruption into a reliable autonomous workflow.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Client: The central orchestrator holding conversation history, driving
//     request/stream/aggregate/execute cycles, and enforcing limits.
//   - Hooks: Ordered lifecycle callbacks (UserPromptSubmit, PreToolUse,
//     PostToolUse) that can observe, rewrite, or veto pending operations.
//   - Tool / ToolBuilder: Tool definitions with JSON-schema parameter
//     generation and a handler invoked during auto-execution.
//   - EventEmitter: Typed event stream for host application integration.
//   - Query: One-shot streaming without persistent state.
//
// # Quick Start
//
//	opts, err := agent.NewOptions().
//	    SystemPrompt("You are a helpful assistant").
//	    Model("qwen2.5-32b-instruct").
//	    BaseURL("http://localhost:1234/v1").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, _ := agent.NewClient(opts)
//	if err := client.Send(ctx, "What's 2+2?"); err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    block, err := client.Receive(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if block == nil {
//	        break // end of turn
//	    }
//	    if block.Kind == openaichat.BlockText {
//	        fmt.Print(block.Text.Text)
//	    }
//	}
package agent
