package openaichat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Transport delivers one fully-formed request to the server and returns the
// raw byte-level event stream. Implementations own connection setup, TLS, and
// timeouts; the caller owns decoding. Errors returned by Stream are already
// classified (see ErrorFromStatusCode) so the retry policy can act on them.
type Transport interface {
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}

// HTTPTransport is the default Transport, speaking HTTP to an
// OpenAI-compatible chat/completions endpoint.
type HTTPTransport struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom http.Client (custom TLS config, proxies,
// connection pooling).
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithRequestTimeout sets the per-request timeout on the transport's client.
func WithRequestTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// NewHTTPTransport creates a transport for the given base URL (e.g.
// "http://localhost:1234/v1"). The API key may be empty for local servers.
func NewHTTPTransport(baseURL, apiKey string, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// maxErrorBodyLen bounds how much of an error response body is read back for
// diagnostics.
const maxErrorBodyLen = 2048

// Stream POSTs the request and returns the response body for decoding. The
// caller must close it. Non-2xx responses are drained, classified by status
// code, and returned as typed errors; the API key never appears in error
// text.
func (t *HTTPTransport) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	body, err := marshalRequest(req)
	if err != nil {
		return nil, err
	}

	url := t.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "invalid request URL " + url, Cause: err}}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: ctx.Err()}}
		}
		return nil, &NetworkError{SDKError: SDKError{Message: "request to " + url + " failed", Cause: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		resp.Body.Close()
		msg := fmt.Sprintf("server returned status %d: %s", resp.StatusCode, string(errBody))
		return nil, ErrorFromStatusCode(resp.StatusCode, msg, "", parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	return resp.Body, nil
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(value string) *float64 {
	if value == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return nil
	}
	return &seconds
}
