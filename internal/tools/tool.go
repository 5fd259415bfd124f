// Package tools provides the tool catalog the model can invoke during a
// query: tool definitions, a registry that dispatches execution by name, and
// citation tracking for retrieval tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a capability the model can invoke.
//
// Execute returns the text the model sees. An error return signals tool
// failure to the conversation loop; recoverable conditions (no results,
// unknown course) are reported as returned text instead, so the model can
// explain them to the user.
type Tool interface {
	// Definition returns the tool's catalog entry sent to the model.
	Definition() *ai.ToolDefinition

	// Execute runs the tool with the model-provided arguments.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Source is a citation produced by a retrieval tool.
type Source struct {
	Label string // display text, e.g. "Python Course - Lesson 5"
	URL   string // deep link, empty when none is known
}

// SourceRecorder is implemented by tools that track citations for the
// results of their most recent execution.
type SourceRecorder interface {
	// LastSources returns the citations from the most recent execution.
	LastSources() []Source

	// ResetSources clears the recorded citations.
	ResetSources()
}

// inputSchema converts a jsonschema object schema to the map form carried
// in ai.ToolDefinition.
func inputSchema(s *jsonschema.Schema) map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("BUG: marshal tool schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("BUG: unmarshal tool schema: %v", err))
	}
	return m
}

// stringArg extracts an optional string argument.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an optional integer argument. JSON numbers decode as
// float64; models occasionally send stringified numbers as well.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}
