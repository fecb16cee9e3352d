package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/martinemde/openagent/openaichat"
)

// ToolHandler executes a tool. It receives the validated JSON input and
// returns the result payload sent back to the model. Handlers run
// sequentially within one turn, in the order the model issued the calls.
type ToolHandler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool pairs a serializable definition with its handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Handler     ToolHandler
}

// Definition returns the wire-level tool definition.
func (t *Tool) Definition() openaichat.ToolDefinition {
	return openaichat.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// ToolBuilder constructs tools with fluent parameter definition. Parameters
// can be declared one by one, or generated from a Go struct via InputStruct.
type ToolBuilder struct {
	name        string
	description string
	properties  map[string]interface{}
	required    []string
	order       []string
	schema      map[string]interface{} // set by InputStruct, wins over properties
	handler     ToolHandler
	err         error
}

// NewTool starts building a tool with the given name and description.
func NewTool(name, description string) *ToolBuilder {
	return &ToolBuilder{
		name:        name,
		description: description,
		properties:  make(map[string]interface{}),
	}
}

func (b *ToolBuilder) param(name, typ, description string, required bool) *ToolBuilder {
	if _, exists := b.properties[name]; exists {
		b.err = &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("tool %s declares parameter %q twice", b.name, name),
		}}
		return b
	}
	b.properties[name] = map[string]interface{}{
		"type":        typ,
		"description": description,
	}
	b.order = append(b.order, name)
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// StringParam adds a string parameter.
func (b *ToolBuilder) StringParam(name, description string, required bool) *ToolBuilder {
	return b.param(name, "string", description, required)
}

// NumberParam adds a numeric parameter.
func (b *ToolBuilder) NumberParam(name, description string, required bool) *ToolBuilder {
	return b.param(name, "number", description, required)
}

// BoolParam adds a boolean parameter.
func (b *ToolBuilder) BoolParam(name, description string, required bool) *ToolBuilder {
	return b.param(name, "boolean", description, required)
}

// InputStruct derives the full parameter schema from a Go struct using JSON
// schema reflection. It replaces any individually declared parameters.
func (b *ToolBuilder) InputStruct(v interface{}) *ToolBuilder {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		b.err = &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("tool %s: reflecting input schema failed", b.name), Cause: err,
		}}
		return b
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(raw, &schema); err != nil {
		b.err = &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("tool %s: decoding reflected schema failed", b.name), Cause: err,
		}}
		return b
	}
	// The chat/completions tools field wants a bare object schema.
	delete(schema, "$schema")
	delete(schema, "$id")
	b.schema = schema
	return b
}

// Handler sets the tool's execution handler.
func (b *ToolBuilder) Handler(fn ToolHandler) *ToolBuilder {
	b.handler = fn
	return b
}

// Build validates and returns the tool.
func (b *ToolBuilder) Build() (*Tool, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.name == "" {
		return nil, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{Message: "tool name is required"}}
	}
	if b.handler == nil {
		return nil, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("tool %s has no handler", b.name),
		}}
	}

	params := b.schema
	if params == nil {
		params = map[string]interface{}{
			"type":       "object",
			"properties": b.properties,
		}
		if len(b.required) > 0 {
			params["required"] = b.required
		}
	}

	return &Tool{
		Name:        b.name,
		Description: b.description,
		Parameters:  params,
		Handler:     b.handler,
	}, nil
}

// ToolRegistry manages tool registration and name lookup.
type ToolRegistry struct {
	tools map[string]*Tool
	names []string // registration order, for stable definitions
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds or replaces a tool in the registry.
func (r *ToolRegistry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; !exists {
		r.names = append(r.names, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// Get returns a registered tool by name, or nil if not found.
func (r *ToolRegistry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns all tool definitions in registration order.
func (r *ToolRegistry) Definitions() []openaichat.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]openaichat.ToolDefinition, 0, len(r.tools))
	for _, name := range r.names {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
