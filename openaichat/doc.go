// Package openaichat is a streaming client layer for OpenAI-compatible
// chat-completion servers (LM Studio, Ollama, llama.cpp, vLLM, and anything
// else that speaks the chat/completions wire protocol).
//
// # Architecture
//
// The package follows a four-layer structure:
//
//   - Layer 1 (Data model): Message, ContentBlock and friends, the tagged
//     union that conversation history is built from.
//   - Layer 2 (Wire protocol): outbound request serialization (the three-way
//     text / tool_calls / tool_result message split) and the EventDecoder,
//     which turns the server's event-stream bytes into DeltaEvent values.
//   - Layer 3 (Aggregation): TurnAggregator, which reassembles fragmented
//     text and index-keyed tool-call deltas into finalized ContentBlocks.
//   - Layer 4 (Client): Transport, HTTPTransport, RetryPolicy and Client,
//     which tie the layers together for one streamed model turn.
//
// # Quick Start
//
//	transport := openaichat.NewHTTPTransport("http://localhost:1234/v1", "")
//	client := openaichat.NewClient(transport)
//
//	stream, err := client.Stream(ctx, openaichat.Request{
//	    Model:    "qwen2.5-32b-instruct",
//	    Messages: []openaichat.Message{openaichat.UserMessage("Hello")},
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	blocks, err := stream.Collect(ctx)
//
// Higher-level conversation management (history, hooks, automatic tool
// execution) lives in the agent package, which drives this one.
package openaichat
