package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/apiagent/llm"
)

func TestParseDecisionToolCalls(t *testing.T) {
	d := ParseDecision(llm.Response{
		Content: "Creating it now",
		Parts:   []string{"Creating it now"},
		ToolCalls: []llm.ToolCall{
			{ID: "a", Name: "createItem", Arguments: json.RawMessage(`{"name":"Widget","price":9.99}`)},
			{Name: "listItems", Arguments: json.RawMessage(``)},
		},
	})

	assert.Equal(t, DecisionAct, d.Kind)
	require.Len(t, d.Calls, 2)
	assert.Equal(t, map[string]any{"name": "Widget", "price": 9.99}, d.Calls[0].Arguments)
	assert.Equal(t, "call_1", d.Calls[1].ID)
	assert.Equal(t, map[string]any{}, d.Calls[1].Arguments)
	assert.Equal(t, "Creating it now", *d.Thought())

	msg := d.assistantMessage()
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "a", msg.ToolCalls[0].ID)
	assert.Contains(t, d.Summary(), "Invoking: `createItem` with")
}

func TestParseDecisionBadArguments(t *testing.T) {
	d := ParseDecision(llm.Response{ToolCalls: []llm.ToolCall{
		{ID: "x", Name: "getItem", Arguments: json.RawMessage(`[1]`)},
	}})

	require.Len(t, d.Calls, 1)
	call := d.Calls[0]
	assert.Error(t, call.Err)
	assert.Equal(t, "[1]", call.InputJSON())
	assert.JSONEq(t, `[1]`, string(call.toolCall().Arguments))

	broken := ParseDecision(llm.Response{ToolCalls: []llm.ToolCall{
		{ID: "y", Name: "getItem", Arguments: json.RawMessage(`{"id":`)},
	}})
	assert.JSONEq(t, `{"raw":"{\"id\":"}`, string(broken.Calls[0].toolCall().Arguments))
}

func TestParseDecisionStringEncodedArguments(t *testing.T) {
	d := ParseDecision(llm.Response{ToolCalls: []llm.ToolCall{
		{ID: "s", Name: "getItem", Arguments: json.RawMessage(`"{\"id\": 3}"`)},
	}})
	require.NoError(t, d.Calls[0].Err)
	assert.Equal(t, map[string]any{"id": float64(3)}, d.Calls[0].Arguments)
}

func TestParseDecisionTextAction(t *testing.T) {
	d := ParseDecision(llm.Response{Content: "```json\n{\"action\": \"deleteItem\", \"action_input\": {\"id\": 1}}\n```"})

	assert.Equal(t, DecisionAct, d.Kind)
	require.Len(t, d.Calls, 1)
	assert.Empty(t, d.Calls[0].ID)
	assert.Equal(t, "deleteItem", d.Calls[0].Name)
	assert.False(t, d.native())
	assert.Empty(t, d.assistantMessage().ToolCalls)
}

func TestParseDecisionTextFinal(t *testing.T) {
	d := ParseDecision(llm.Response{Content: `{"action": "Final Answer", "action_input": "All done."}`})
	assert.Equal(t, DecisionFinish, d.Kind)
	assert.Equal(t, "All done.", d.Answer)

	d = ParseDecision(llm.Response{Content: `{"tool": "final_answer", "tool_input": {"count": 2}}`})
	assert.Equal(t, DecisionFinish, d.Kind)
	assert.Equal(t, `{"count": 2}`, d.Answer)
}

func TestParseDecisionEmptyFinalAnswer(t *testing.T) {
	for _, content := range []string{
		`{"action": "Final Answer"}`,
		`{"action": "Final Answer", "action_input": ""}`,
		`{"action": "finish", "action_input": "   "}`,
		`{"action": "final_answer", "action_input": null}`,
	} {
		d := ParseDecision(llm.Response{Content: content})
		assert.Equal(t, DecisionInvalid, d.Kind, content)
		assert.Equal(t, emptyFinalAnswer, d.Problem, content)
		assert.Empty(t, d.Answer, content)
	}
}

func TestParseDecisionPlainText(t *testing.T) {
	d := ParseDecision(llm.Response{Content: `Created item: {"id": 1, "name": "Widget"}`})
	assert.Equal(t, DecisionFinish, d.Kind)
	assert.Equal(t, `Created item: {"id": 1, "name": "Widget"}`, d.Answer)
}

func TestParseDecisionEmpty(t *testing.T) {
	d := ParseDecision(llm.Response{Content: "  \n"})
	assert.Equal(t, DecisionInvalid, d.Kind)
	assert.Equal(t, emptyReply, d.Problem)
	assert.Equal(t, "invalid", d.Kind.String())
}
