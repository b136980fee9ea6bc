// Decision parsing at the model boundary.
//
// Information Hiding:
// - Provider tool calls and text-encoded JSON actions both map to Decision
// - Argument decoding failures captured per call, never raised

package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonutil "github.com/richinex/apiagent/internal/json"
	"github.com/richinex/apiagent/llm"
)

// emptyReply is fed back when the model says nothing actionable.
const emptyReply = "Error: the model returned neither a tool call nor an answer. " +
	"Call one of the available tools or reply with the final answer."

// emptyFinalAnswer is fed back when a final-answer action carries no text.
const emptyFinalAnswer = "Error: the final answer was empty. " +
	"Reply with the final answer explained in natural language."

// textAction is a JSON action written into the reply text, as produced by
// models prompted for the structured-chat format.
type textAction struct {
	Thought     string          `json:"thought"`
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
	Tool        string          `json:"tool"`
	ToolInput   json.RawMessage `json:"tool_input"`
}

func (t textAction) name() string {
	if t.Action != "" {
		return t.Action
	}
	return t.Tool
}

func (t textAction) input() json.RawMessage {
	if len(t.ActionInput) > 0 {
		return t.ActionInput
	}
	return t.ToolInput
}

func (t textAction) final() bool {
	switch strings.ToLower(strings.TrimSpace(t.name())) {
	case "final answer", "final_answer", "finish":
		return true
	}
	return false
}

// ParseDecision classifies one model reply. Provider tool calls take
// precedence; otherwise a JSON action in the text is honoured; otherwise
// non-empty text is the final answer.
func ParseDecision(resp llm.Response) Decision {
	d := Decision{Content: resp.Content, Chunks: resp.Parts}
	if len(d.Chunks) == 0 && strings.TrimSpace(resp.Content) != "" {
		d.Chunks = []string{resp.Content}
	}

	if len(resp.ToolCalls) > 0 {
		d.Kind = DecisionAct
		for i, tc := range resp.ToolCalls {
			d.Calls = append(d.Calls, parseToolCall(tc, i))
		}
		return d
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		d.Kind = DecisionInvalid
		d.Problem = emptyReply
		return d
	}

	if action, err := jsonutil.ExtractJSONFromResponse[textAction](text); err == nil && action.name() != "" {
		d.Log = action.Thought
		if action.final() {
			answer := finalText(action.input())
			if answer == "" {
				d.Kind = DecisionInvalid
				d.Problem = emptyFinalAnswer
				return d
			}
			d.Kind = DecisionFinish
			d.Answer = answer
			return d
		}
		d.Kind = DecisionAct
		d.Calls = []ToolInvocation{decodeInvocation("", action.name(), action.input())}
		return d
	}

	d.Kind = DecisionFinish
	d.Answer = text
	return d
}

func parseToolCall(tc llm.ToolCall, index int) ToolInvocation {
	id := tc.ID
	if id == "" {
		id = fmt.Sprintf("call_%d", index)
	}
	return decodeInvocation(id, tc.Name, tc.Arguments)
}

// decodeInvocation decodes arguments that may also arrive as a JSON string
// holding the object.
func decodeInvocation(id, name string, raw json.RawMessage) ToolInvocation {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			text = inner
		}
	}

	args, err := jsonutil.DecodeObject(text)
	return ToolInvocation{ID: id, Name: name, Arguments: args, Raw: string(raw), Err: err}
}

func finalText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
