package openaichat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// scriptedTransport returns canned SSE bodies in sequence and records calls.
type scriptedTransport struct {
	bodies []string
	errs   []error
	calls  int
}

func (t *scriptedTransport) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	i := t.calls
	t.calls++
	if i < len(t.errs) && t.errs[i] != nil {
		return nil, t.errs[i]
	}
	body := t.bodies[i]
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestClientStreamCollect(t *testing.T) {
	transport := &scriptedTransport{bodies: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"there\"}}]}\n" +
			"data: {\"choices\":[{\"finish_reason\":\"stop\",\"delta\":{}}]}\n" +
			"data: [DONE]\n",
	}}

	client := NewClient(transport)
	stream, err := client.Stream(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	blocks, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text.Text != "Hello there" {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
}

func TestClientRetriesConnectionEstablishment(t *testing.T) {
	transport := &scriptedTransport{
		bodies: []string{"", "data: [DONE]\n"},
		errs: []error{
			&NetworkError{SDKError: SDKError{Message: "refused"}},
			nil,
		},
	}
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 2}

	client := NewClient(transport, WithRetryPolicy(policy))
	stream, err := client.Stream(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
	stream.Close()
	if transport.calls != 2 {
		t.Errorf("expected 2 connection attempts, got %d", transport.calls)
	}
}

func TestClientDoesNotRetryPermanentFailures(t *testing.T) {
	transport := &scriptedTransport{
		bodies: []string{""},
		errs: []error{&AuthenticationError{ProviderError: ProviderError{
			SDKError:   SDKError{Message: "bad key"},
			StatusCode: 401,
		}}},
	}
	client := NewClient(transport, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 2}))
	_, err := client.Stream(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	var auth *AuthenticationError
	if !errors.As(err, &auth) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
	if transport.calls != 1 {
		t.Errorf("expected a single attempt, got %d", transport.calls)
	}
}

func TestCollectCancelledContext(t *testing.T) {
	transport := &scriptedTransport{bodies: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\ndata: [DONE]\n",
	}}
	client := NewClient(transport)
	stream, err := client.Stream(context.Background(), Request{Model: "m", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stream.Collect(ctx)
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Errorf("expected AbortError, got %T: %v", err, err)
	}
}
