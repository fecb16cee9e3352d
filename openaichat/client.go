package openaichat

import (
	"context"
	"io"
)

// Client ties a Transport, the retry policy, the EventDecoder and the
// TurnAggregator together for single streamed turns. Connection
// establishment is retried under the policy; once bytes are flowing, stream
// errors are surfaced rather than retried, because a half-consumed turn
// cannot be transparently replayed.
type Client struct {
	transport Transport
	retry     RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient creates a Client over the given transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetryPolicy returns the client's retry policy.
func (c *Client) RetryPolicy() RetryPolicy { return c.retry }

// Stream issues the request and returns an EventStream over the response.
func (c *Client) Stream(ctx context.Context, req Request) (*EventStream, error) {
	body, err := Retry(ctx, c.retry, func(ctx context.Context) (io.ReadCloser, error) {
		return c.transport.Stream(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return &EventStream{
		body:    body,
		decoder: NewEventDecoder(body),
	}, nil
}

// EventStream is one in-flight streamed turn: a decoder over the live
// response body.
type EventStream struct {
	body    io.ReadCloser
	decoder *EventDecoder
}

// Next returns the next delta event, or io.EOF at end of turn.
func (s *EventStream) Next() (*DeltaEvent, error) {
	return s.decoder.Next()
}

// Close releases the underlying connection. Safe to call more than once.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// Collect drains the stream into finalized content blocks. Decode errors
// abort the collection; ctx is observed between events so a cancelled caller
// is not stuck behind a slow stream.
func (s *EventStream) Collect(ctx context.Context) ([]ContentBlock, error) {
	agg := NewTurnAggregator()
	for {
		select {
		case <-ctx.Done():
			return nil, &AbortError{SDKError: SDKError{Message: "stream cancelled", Cause: ctx.Err()}}
		default:
		}

		ev, err := s.Next()
		if err == io.EOF {
			return agg.Finalize()
		}
		if err != nil {
			return nil, err
		}
		agg.Add(*ev)
	}
}
