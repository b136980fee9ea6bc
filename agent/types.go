// Package agent provides the tool-invoking agent.
//
// Contains the types exchanged between the decision parser, the loop and
// callers.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/apiagent/llm"
	"github.com/richinex/apiagent/model"
)

// DecisionKind tags the shape of a model decision.
type DecisionKind int

const (
	// DecisionInvalid is output that is neither a tool call nor an answer.
	DecisionInvalid DecisionKind = iota
	// DecisionAct asks for one or more tool invocations.
	DecisionAct
	// DecisionFinish carries the final answer.
	DecisionFinish
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAct:
		return "act"
	case DecisionFinish:
		return "finish"
	default:
		return "invalid"
	}
}

// Decision is the parsed model output for one cycle.
type Decision struct {
	Kind DecisionKind
	// Log is an explicit explanation supplied by the model, if any.
	Log string
	// Chunks are the text blocks of the reply.
	Chunks []string
	// Calls are the requested tool invocations (DecisionAct).
	Calls []ToolInvocation
	// Answer is the final answer (DecisionFinish).
	Answer string
	// Problem describes why the output was rejected (DecisionInvalid).
	Problem string
	// Content is the raw reply text.
	Content string
}

// Thought returns the free text explaining the decision, or nil.
func (d Decision) Thought() *string {
	return thoughtFrom(d.Log, d.Chunks)
}

// native reports whether the calls came from provider tool calling rather
// than a JSON action written into the reply text.
func (d Decision) native() bool {
	return len(d.Calls) > 0 && d.Calls[0].ID != ""
}

// assistantMessage is the conversation entry recording this decision.
func (d Decision) assistantMessage() llm.ChatMessage {
	msg := llm.AssistantMessage(d.Content)
	if d.native() {
		for _, c := range d.Calls {
			msg.ToolCalls = append(msg.ToolCalls, c.toolCall())
		}
	}
	return msg
}

// Summary renders the decision for observers: the reply text followed by
// one line per requested tool.
func (d Decision) Summary() string {
	var b strings.Builder
	if text := strings.TrimSpace(d.Content); text != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}
	for _, c := range d.Calls {
		fmt.Fprintf(&b, "Invoking: `%s` with `%s`\n", c.Name, c.InputJSON())
	}
	if d.Kind == DecisionInvalid {
		b.WriteString(d.Problem)
	}
	return strings.TrimSpace(b.String())
}

// ToolInvocation is one tool call requested by the model. Err is set when the
// arguments could not be decoded; such a call is never executed.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments map[string]any
	Raw       string
	Err       error
}

// InputJSON returns the arguments as JSON, or the raw text when they did not
// decode.
func (c ToolInvocation) InputJSON() string {
	if c.Err != nil {
		return c.Raw
	}
	data, err := json.Marshal(c.Arguments)
	if err != nil {
		return c.Raw
	}
	return string(data)
}

func (c ToolInvocation) toolCall() llm.ToolCall {
	args := json.RawMessage(c.Raw)
	if c.Err == nil {
		args = json.RawMessage(c.InputJSON())
	} else if !json.Valid(args) {
		quoted, _ := json.Marshal(map[string]string{"raw": c.Raw})
		args = quoted
	}
	return llm.ToolCall{ID: c.ID, Name: c.Name, Arguments: args}
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopFinished       StopReason = "finished"
	StopIterationLimit StopReason = "iteration_limit"
	StopTimeLimit      StopReason = "time_limit"
)

// Metadata contains metadata about a run.
type Metadata struct {
	ExecutionTimeMs uint64           `json:"execution_time_ms"`
	ToolCalls       []model.ToolCall `json:"tool_calls,omitempty"`
	TokenUsage      llm.TokenUsage   `json:"token_usage"`
	LLMCalls        int              `json:"llm_calls"`
}

// RunResult is the outcome of Agent.Run.
type RunResult struct {
	RunID     string                `json:"run_id"`
	Output    string                `json:"output"`
	Reasoning []model.ReasoningStep `json:"reasoning"`
	Stop      StopReason            `json:"stop"`
	Metadata  Metadata              `json:"metadata"`
}

// Finished reports whether the model produced the final answer itself.
func (r RunResult) Finished() bool {
	return r.Stop == StopFinished
}
