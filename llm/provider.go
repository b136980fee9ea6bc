// Package llm provides LLM provider abstractions.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific tool calling conventions

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends the conversation with the available tool definitions.
	// The model may answer with text, with tool calls in Response.ToolCalls,
	// or with both.
	Complete(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Response, error)
}
