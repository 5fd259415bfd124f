package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// ErrUnknownTool indicates an execution request for a name that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds the tools available to a single query and dispatches
// execution by name.
//
// A Registry is built fresh for every query so that citation state recorded
// by its tools can never leak between concurrent requests. It is not safe
// for concurrent use; each query owns its own instance.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its definition name. Registering a second tool
// with the same name replaces the first; the catalog position is kept.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the catalog entries of all registered tools in
// registration order.
func (r *Registry) Definitions() []*ai.ToolDefinition {
	defs := make([]*ai.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. Requests for unregistered names fail with
// ErrUnknownTool; tool errors pass through unchanged.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args)
}

// LastSources returns the citations recorded by all source-tracking tools,
// in registration order.
func (r *Registry) LastSources() []Source {
	var sources []Source
	for _, name := range r.order {
		if rec, ok := r.tools[name].(SourceRecorder); ok {
			sources = append(sources, rec.LastSources()...)
		}
	}
	return sources
}

// ResetSources clears the citations of all source-tracking tools.
func (r *Registry) ResetSources() {
	for _, name := range r.order {
		if rec, ok := r.tools[name].(SourceRecorder); ok {
			rec.ResetSources()
		}
	}
}
