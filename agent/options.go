package agent

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/martinemde/openagent/openaichat"
)

// Options configures a session. Build instances with NewOptions; the zero
// value is not valid.
type Options struct {
	Provider     Provider
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string

	Temperature *float64
	MaxTokens   *int

	// RequestTimeout bounds each HTTP request. Zero keeps the transport
	// default.
	RequestTimeout time.Duration
	// HTTPClient replaces the default client on the built-in transport.
	HTTPClient *http.Client

	// AutoExecuteTools controls whether finalized tool calls are run through
	// registered handlers automatically. When false the loop stops after
	// delivering the tool use blocks and waits for AddToolResult.
	AutoExecuteTools bool
	// Tools are registered on the session at construction.
	Tools []*Tool

	// ContextWindow is the model's context size in tokens. When set, the
	// loop warns once history consumes most of it. Zero disables the check.
	ContextWindow int

	// MaxToolIterations bounds request/execute cycles within a single turn.
	// MaxTurns bounds user turns over the session lifetime; zero means
	// unlimited.
	MaxToolIterations int
	MaxTurns          int

	AllowEmptyPrompt bool

	Retry  openaichat.RetryPolicy
	Hooks  *Hooks
	Logger *slog.Logger

	// Transport overrides the default HTTP transport. Mainly useful for
	// custom TLS setups and for tests.
	Transport openaichat.Transport
}

// OptionsBuilder assembles Options with validation deferred to Build.
type OptionsBuilder struct {
	opts Options
}

// NewOptions starts an options builder with defaults suitable for a local
// OpenAI-compatible server.
func NewOptions() *OptionsBuilder {
	return &OptionsBuilder{opts: Options{
		MaxToolIterations: 10,
		AutoExecuteTools:  true,
		Retry:             openaichat.DefaultRetryPolicy(),
	}}
}

// Provider selects a known local inference server preset.
func (b *OptionsBuilder) Provider(p Provider) *OptionsBuilder {
	b.opts.Provider = p
	return b
}

// BaseURL sets an explicit server base URL, overriding provider and
// environment values.
func (b *OptionsBuilder) BaseURL(url string) *OptionsBuilder {
	b.opts.BaseURL = url
	return b
}

// Model sets the model name sent with every request.
func (b *OptionsBuilder) Model(model string) *OptionsBuilder {
	b.opts.Model = model
	return b
}

// APIKey sets the bearer token. Local servers usually need none.
func (b *OptionsBuilder) APIKey(key string) *OptionsBuilder {
	b.opts.APIKey = key
	return b
}

// SystemPrompt sets the system message prepended to every request.
func (b *OptionsBuilder) SystemPrompt(prompt string) *OptionsBuilder {
	b.opts.SystemPrompt = prompt
	return b
}

// Temperature sets the sampling temperature.
func (b *OptionsBuilder) Temperature(t float64) *OptionsBuilder {
	b.opts.Temperature = &t
	return b
}

// MaxTokens caps the completion length per request.
func (b *OptionsBuilder) MaxTokens(n int) *OptionsBuilder {
	b.opts.MaxTokens = &n
	return b
}

// RequestTimeout bounds each HTTP request.
func (b *OptionsBuilder) RequestTimeout(d time.Duration) *OptionsBuilder {
	b.opts.RequestTimeout = d
	return b
}

// HTTPClient replaces the default HTTP client (custom TLS, proxies).
func (b *OptionsBuilder) HTTPClient(client *http.Client) *OptionsBuilder {
	b.opts.HTTPClient = client
	return b
}

// ContextWindow sets the model's context size in tokens, enabling
// near-capacity warnings.
func (b *OptionsBuilder) ContextWindow(tokens int) *OptionsBuilder {
	b.opts.ContextWindow = tokens
	return b
}

// ManualToolExecution disables auto-execution; finalized tool calls are
// delivered to the caller, who answers them with Client.AddToolResult.
func (b *OptionsBuilder) ManualToolExecution() *OptionsBuilder {
	b.opts.AutoExecuteTools = false
	return b
}

// Tool registers a tool on the session at construction.
func (b *OptionsBuilder) Tool(tool *Tool) *OptionsBuilder {
	b.opts.Tools = append(b.opts.Tools, tool)
	return b
}

// MaxToolIterations bounds tool request/execute cycles within one turn.
func (b *OptionsBuilder) MaxToolIterations(n int) *OptionsBuilder {
	b.opts.MaxToolIterations = n
	return b
}

// MaxTurns bounds the number of user turns for the session. Zero means
// unlimited.
func (b *OptionsBuilder) MaxTurns(n int) *OptionsBuilder {
	b.opts.MaxTurns = n
	return b
}

// AllowEmptyPrompt permits sending an empty user prompt.
func (b *OptionsBuilder) AllowEmptyPrompt() *OptionsBuilder {
	b.opts.AllowEmptyPrompt = true
	return b
}

// Retry replaces the default retry policy.
func (b *OptionsBuilder) Retry(policy openaichat.RetryPolicy) *OptionsBuilder {
	b.opts.Retry = policy
	return b
}

// Hooks attaches a hook registry.
func (b *OptionsBuilder) Hooks(h *Hooks) *OptionsBuilder {
	b.opts.Hooks = h
	return b
}

// Transport replaces the default HTTP transport.
func (b *OptionsBuilder) Transport(t openaichat.Transport) *OptionsBuilder {
	b.opts.Transport = t
	return b
}

// Logger sets the structured logger. Defaults to slog.Default.
func (b *OptionsBuilder) Logger(l *slog.Logger) *OptionsBuilder {
	b.opts.Logger = l
	return b
}

// Build validates the assembled options.
func (b *OptionsBuilder) Build() (Options, error) {
	opts := b.opts
	if opts.BaseURL != "" && !strings.HasPrefix(opts.BaseURL, "http://") && !strings.HasPrefix(opts.BaseURL, "https://") {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("base URL must start with http:// or https://, got %q", opts.BaseURL),
		}}
	}
	if opts.RequestTimeout < 0 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "request timeout cannot be negative",
		}}
	}
	if opts.ContextWindow < 0 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "context window cannot be negative",
		}}
	}
	if opts.MaxToolIterations < 1 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("max tool iterations must be at least 1, got %d", opts.MaxToolIterations),
		}}
	}
	if opts.MaxTurns < 0 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("max turns cannot be negative, got %d", opts.MaxTurns),
		}}
	}
	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("temperature must be between 0 and 2, got %g", *opts.Temperature),
		}}
	}
	if opts.MaxTokens != nil && *opts.MaxTokens < 1 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("max tokens must be positive, got %d", *opts.MaxTokens),
		}}
	}
	if opts.Retry.MaxAttempts < 1 {
		return Options{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "retry policy needs at least one attempt",
		}}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts, nil
}
