// Package tools implements the C6 component: a declarative catalog of
// read-only domain tools over the Store (C4), each with a hand-rolled
// JSON-schema-shaped parameter description consumable by the LLM Adapter.
// The registry is populated at startup from constant data and checks each
// call's required parameters, types and enum values before a handler runs;
// date values and ranges are checked inside the handlers.
package tools

import (
	"context"
	"encoding/json"

	"finagent/pkg/apperr"
	"finagent/pkg/core/store"
)

// ParamSchema describes one tool parameter the way a JSON Schema property
// would, without actually depending on a JSON Schema library — the
// teacher's prompt/tool definitions are similarly hand-rolled constant data
// rather than reflected from Go structs.
type ParamSchema struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "number", "array", "boolean"
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Handler executes a tool given its raw (already-validated) arguments.
type Handler func(ctx context.Context, st *store.Store, args map[string]interface{}) (interface{}, error)

// Tool is one registry entry: its schema plus the handler that implements it.
type Tool struct {
	Name        string
	Description string
	Parameters  []ParamSchema
	Handler     Handler
}

// Registry is the C6 map name -> Tool, built once at startup.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds the registry with the full tool set: the nine tools
// from the minimum contract plus two supplemental analytical tools.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range allTools() {
		r.tools[t.Name] = t
	}
	return r
}

// Catalog returns every registered tool's name/description/schema, the form
// the LLM Adapter hands to a provider as its tool-calling catalog.
func (r *Registry) Catalog() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute validates argsJSON against the named tool's parameter schema and,
// if it passes, runs the handler. Unknown tool names, malformed JSON and
// required/type/enum failures return ValidationError before the handler
// runs; date and range checks happen inside the handlers.
func (r *Registry) Execute(ctx context.Context, st *store.Store, name string, argsJSON string) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, apperr.ValidationError("unknown tool %q", name)
	}

	var args map[string]interface{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, apperr.ValidationError("tool %q: arguments are not valid JSON: %v", name, err)
		}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	if err := validateArgs(t, args); err != nil {
		return nil, err
	}

	return t.Handler(ctx, st, args)
}
