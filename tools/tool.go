// Package tools provides the tool system for agents.
//
// Information Hiding:
// - Tool execution details hidden behind Handler
// - Argument schemas derived from Spec, never written by hand
// - Every failure mode surfaces as a Result string
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Parameter describes one named tool argument.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Spec describes what a tool does and how to call it.
// Parameter order is preserved in the generated schema and in listings.
type Spec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// String returns a string representation of the spec.
func (s Spec) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Description)
}

// Schema returns the JSON Schema for the tool's arguments.
func (s Spec) Schema() map[string]any {
	properties := make(map[string]any, len(s.Parameters))
	var required []string

	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Type == "array" {
			prop["items"] = map[string]any{"type": "string"}
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Handler executes a tool. It always returns a descriptive string; failures
// are reported in the string, conventionally starting with "Error".
type Handler func(ctx context.Context, args Args) string

// Result is the outcome of one tool invocation.
type Result struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// Failed reports whether the output describes a failure.
func (r Result) Failed() bool {
	return strings.HasPrefix(r.Output, "Error") || strings.HasSuffix(r.Output, "not found")
}

// String returns the raw output.
func (r Result) String() string {
	return r.Output
}

// Args holds validated tool arguments.
type Args map[string]any

// Has reports whether key is present and non-null.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the string value of key, or "".
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the numeric value of key, or 0.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// Int returns the integer value of key, or 0.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return int(a.Float(key))
	}
}

// Strings returns the string list value of key, or nil.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
