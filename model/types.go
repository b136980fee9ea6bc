// Package model provides domain types shared across packages.
package model

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation memory.
// Values are never mutated after creation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ReasoningStep is the normalized record of one decide/act/observe cycle.
// Input and Observation only ever hold JSON-safe values: nil, string, bool,
// numbers, map[string]any or []any.
type ReasoningStep struct {
	Thought     *string `json:"thought,omitempty"`
	Action      *string `json:"action,omitempty"`
	Input       any     `json:"input"`
	Observation any     `json:"observation"`
}

// ActionName returns the tool name or "" when the model acted without a tool.
func (s ReasoningStep) ActionName() string {
	if s.Action == nil {
		return ""
	}
	return *s.Action
}

// ToolCall contains metrics about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// Item is a resource of the remote item service.
type Item struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags"`
}

// ItemInput is the create/replace payload for an Item.
type ItemInput struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags,omitempty"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
