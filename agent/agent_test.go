package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/apiagent/llm"
	"github.com/richinex/apiagent/model"
	"github.com/richinex/apiagent/observer"
	"github.com/richinex/apiagent/server"
	"github.com/richinex/apiagent/tools"
)

// scripted is a Provider whose replies are computed from the conversation.
type scripted func(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error)

func (scripted) Name() string  { return "scripted" }
func (scripted) Model() string { return "scripted-1" }
func (s scripted) Complete(ctx context.Context, messages []llm.ChatMessage, _ []llm.ToolDefinition) (llm.Response, error) {
	return s(ctx, messages)
}

func callTool(name, args string) llm.Response {
	return llm.Response{ToolCalls: []llm.ToolCall{{ID: "call_" + name, Name: name, Arguments: json.RawMessage(args)}}}
}

func answer(text string) llm.Response {
	return llm.Response{Content: text, Parts: []string{text}}
}

func last(messages []llm.ChatMessage) llm.ChatMessage {
	return messages[len(messages)-1]
}

func lastUser(messages []llm.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

type harness struct {
	agent   *Agent
	service *server.Server
	console *bytes.Buffer
}

func newHarness(t *testing.T, provider llm.Provider, configure ...func(*Config)) *harness {
	t.Helper()

	svc := server.New("", zerolog.Nop())
	ts := httptest.NewServer(svc.Handler())
	t.Cleanup(ts.Close)

	registry := tools.NewRegistry().WithTimeout(5 * time.Second)
	require.NoError(t, tools.RegisterAPITools(registry, tools.NewAPIClient(ts.URL, "", tools.WithRetries(0))))

	config := DefaultConfig()
	for _, fn := range configure {
		fn(&config)
	}

	a, err := New(config, provider, registry)
	require.NoError(t, err)

	var buf bytes.Buffer
	a.WithObservers(observer.NewConsole(&buf).WithoutPrompts())
	return &harness{agent: a, service: svc, console: &buf}
}

func TestRunCreateItem(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		if last(messages).Role == llm.RoleTool {
			return answer("Created Widget priced at $9.99."), nil
		}
		return callTool(tools.ToolCreateItem, `{"name": "Widget", "price": 9.99}`), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "Create item Widget at price 9.99")
	require.NoError(t, err)

	assert.Equal(t, "Created Widget priced at $9.99.", result.Output)
	assert.Equal(t, StopFinished, result.Stop)
	require.Len(t, result.Reasoning, 1)

	step := result.Reasoning[0]
	assert.Equal(t, tools.ToolCreateItem, step.ActionName())
	assert.Equal(t, map[string]any{"name": "Widget", "price": 9.99}, step.Input)
	assert.Contains(t, step.Observation, "Created item:")

	assert.Equal(t, []model.Message{
		model.UserMessage("Create item Widget at price 9.99"),
		model.AssistantMessage("Created Widget priced at $9.99."),
	}, h.agent.History())

	item, ok := h.service.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, "Widget", item.Name)

	assert.Equal(t, 2, result.Metadata.LLMCalls)
	require.Len(t, result.Metadata.ToolCalls, 1)
	assert.True(t, result.Metadata.ToolCalls[0].Success)
	assert.NotEmpty(t, result.RunID)
}

func TestRunListThenDeleteKeepsFourMessages(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		if m := last(messages); m.Role == llm.RoleTool {
			return answer("Done. " + m.Content), nil
		}
		switch lastUser(messages) {
		case "List items":
			return callTool(tools.ToolListItems, `{}`), nil
		case "Delete item 1":
			return callTool(tools.ToolDeleteItem, `{"id": 1}`), nil
		}
		return answer("I don't know how to help with that."), nil
	})
	h := newHarness(t, provider)
	h.service.Store().Create(model.ItemInput{Name: "Laptop", Price: 999.99})

	_, err := h.agent.Run(context.Background(), "List items")
	require.NoError(t, err)
	deleted, err := h.agent.Run(context.Background(), "Delete item 1")
	require.NoError(t, err)
	assert.Contains(t, deleted.Output, "Successfully deleted item 1")

	history := h.agent.History()
	require.Len(t, history, 4)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, "List items", history[0].Content)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Contains(t, history[1].Content, "Found 1 items")
	assert.Equal(t, "Delete item 1", history[2].Content)
	assert.Equal(t, model.RoleAssistant, history[3].Role)
}

func TestRunSendsHistoryToModel(t *testing.T) {
	var seen []llm.ChatMessage
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		seen = messages
		return answer("hi"), nil
	})
	h := newHarness(t, provider)

	_, err := h.agent.Run(context.Background(), "first")
	require.NoError(t, err)
	_, err = h.agent.Run(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, llm.RoleSystem, seen[0].Role)
	assert.Equal(t, "first", seen[1].Content)
	assert.Equal(t, "hi", seen[2].Content)
	assert.Equal(t, "second", seen[3].Content)
}

func TestRunEmptyFinalAnswerIsRetried(t *testing.T) {
	calls := 0
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		calls++
		if calls == 1 {
			return answer(`{"action": "Final Answer"}`), nil
		}
		return answer("Retried: " + last(messages).Content), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, StopFinished, result.Stop)
	assert.Equal(t, "Retried: "+emptyFinalAnswer, result.Output)
	require.Len(t, result.Reasoning, 1)
	assert.Equal(t, emptyFinalAnswer, result.Reasoning[0].Observation)
	for _, m := range h.agent.History() {
		assert.NotEmpty(t, strings.TrimSpace(m.Content))
	}
}

func TestRunSkipsBlankHistoryMessages(t *testing.T) {
	var seen []llm.ChatMessage
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		seen = messages
		return answer("hi"), nil
	})
	h := newHarness(t, provider)
	h.agent.Memory().Commit(model.UserMessage("earlier"), model.AssistantMessage(" "))

	_, err := h.agent.Run(context.Background(), "now")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, "earlier", seen[1].Content)
	assert.Equal(t, "now", seen[2].Content)
}

func TestRunStopsAtIterationLimit(t *testing.T) {
	calls := 0
	provider := scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		calls++
		return callTool(tools.ToolHealth, `{}`), nil
	})
	h := newHarness(t, provider, func(c *Config) { c.MaxIterations = 3 })

	result, err := h.agent.Run(context.Background(), "Check health forever")
	require.NoError(t, err)

	assert.Equal(t, StopIterationLimit, result.Stop)
	assert.Contains(t, result.Output, "iteration limit (3)")
	assert.Len(t, result.Reasoning, 3)
	assert.Equal(t, 3, calls)
	assert.Len(t, h.agent.History(), 2)
}

func TestRunStopsAtTimeLimit(t *testing.T) {
	provider := scripted(func(ctx context.Context, _ []llm.ChatMessage) (llm.Response, error) {
		select {
		case <-time.After(20 * time.Millisecond):
			return callTool(tools.ToolHealth, `{}`), nil
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	})
	h := newHarness(t, provider, func(c *Config) {
		c.MaxIterations = 1000
		c.RunTimeout = 100 * time.Millisecond
	})

	result, err := h.agent.Run(context.Background(), "Loop")
	require.NoError(t, err)
	assert.Equal(t, StopTimeLimit, result.Stop)
	assert.Contains(t, result.Output, "time limit")
	assert.Len(t, h.agent.History(), 2)
}

func TestRunFeedsBackMalformedSelections(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		var toolResults int
		for _, m := range messages {
			if m.Role == llm.RoleTool {
				toolResults++
			}
		}
		switch toolResults {
		case 0:
			return callTool("dropTables", `{}`), nil
		case 1:
			return callTool(tools.ToolGetItem, `{"id": `), nil
		case 2:
			return callTool(tools.ToolCreateItem, `{"name": "NoPrice"}`), nil
		}
		return answer("Sorry, I could not complete that."), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "Do something odd")
	require.NoError(t, err)
	require.Len(t, result.Reasoning, 3)

	assert.Contains(t, result.Reasoning[0].Observation, "unknown tool 'dropTables'")
	assert.Equal(t, `{"id": `, result.Reasoning[1].Input)
	assert.Contains(t, result.Reasoning[1].Observation, "could not parse arguments")
	assert.Contains(t, result.Reasoning[2].Observation, "price is required")

	assert.Empty(t, h.service.Store().List("", 100, 0))
	assert.Equal(t, "Sorry, I could not complete that.", result.Output)
	for _, tc := range result.Metadata.ToolCalls {
		assert.False(t, tc.Success)
	}
}

func TestRunModelErrorBecomesObservation(t *testing.T) {
	calls := 0
	provider := scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		calls++
		if calls == 1 {
			return llm.Response{}, errors.New("rate limited")
		}
		return answer("recovered"), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Output)
	require.Len(t, result.Reasoning, 1)
	assert.Nil(t, result.Reasoning[0].Action)
	assert.Contains(t, result.Reasoning[0].Observation, "rate limited")
}

func TestRunEmptyReplyIsRetried(t *testing.T) {
	calls := 0
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		calls++
		if calls == 1 {
			return llm.Response{}, nil
		}
		return answer("ok: " + last(messages).Content[:5]), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, result.Reasoning, 1)
	assert.Contains(t, result.Reasoning[0].Observation, "neither a tool call nor an answer")
	assert.Equal(t, "ok: Error", result.Output)
}

func TestRunTextEncodedAction(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		if m := last(messages); strings.HasPrefix(m.Content, "Observation: ") {
			return answer(`{"action": "Final Answer", "action_input": "Item 999 does not exist."}`), nil
		}
		return answer(`{"thought": "look it up", "action": "getItem", "action_input": {"id": 999}}`), nil
	})
	h := newHarness(t, provider)

	result, err := h.agent.Run(context.Background(), "Show item 999")
	require.NoError(t, err)

	assert.Equal(t, "Item 999 does not exist.", result.Output)
	require.Len(t, result.Reasoning, 1)
	require.NotNil(t, result.Reasoning[0].Thought)
	assert.Equal(t, "look it up", *result.Reasoning[0].Thought)
	assert.Equal(t, "Item with ID 999 not found", result.Reasoning[0].Observation)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	provider := scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		t.Fatal("model must not be called")
		return llm.Response{}, nil
	})
	h := newHarness(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.agent.Run(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCancelled(err))
	assert.Empty(t, h.agent.History())
}

func TestRunCancelledDuringCycleLetsToolFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		cancel()
		return callTool(tools.ToolCreateItem, `{"name": "Late", "price": 1}`), nil
	})
	h := newHarness(t, provider)

	_, err := h.agent.Run(ctx, "Create Late")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.agent.History())

	_, created := h.service.Store().Get(1)
	assert.True(t, created, "in-flight tool call should complete")
}

func TestConcurrentRunsCommitWholePairs(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		if last(messages).Role == llm.RoleTool {
			return answer("answer to " + lastUser(messages)), nil
		}
		return callTool(tools.ToolHealth, `{}`), nil
	})
	h := newHarness(t, provider, func(c *Config) { c.MaxHistoryPairs = 50 })

	const runs = 16
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.agent.Run(context.Background(), fmt.Sprintf("req-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history := h.agent.History()
	require.Len(t, history, 2*runs)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, model.RoleUser, history[i].Role)
		assert.Equal(t, "answer to "+history[i].Content, history[i+1].Content)
	}
}

func TestRunNotifiesObservers(t *testing.T) {
	provider := scripted(func(_ context.Context, messages []llm.ChatMessage) (llm.Response, error) {
		if last(messages).Role == llm.RoleTool {
			return answer("All good."), nil
		}
		return callTool(tools.ToolHealth, `{}`), nil
	})
	h := newHarness(t, provider)

	_, err := h.agent.Run(context.Background(), "Is the API up?")
	require.NoError(t, err)

	out := h.console.String()
	assert.Contains(t, out, "[LLM] Invoking: `health` with `{}`")
	assert.Contains(t, out, "[Tool > health] {}")
	assert.Contains(t, out, `[Tool <] API is healthy: {"status":"ok"}`)
	assert.Contains(t, out, "[Agent] All good.")
	assert.Less(t, strings.Index(out, "[Tool > health]"), strings.Index(out, "[Agent]"))
}

func TestClearMemory(t *testing.T) {
	h := newHarness(t, scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		return answer("hi"), nil
	}))

	_, err := h.agent.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, h.agent.History(), 2)

	h.agent.ClearMemory()
	assert.Empty(t, h.agent.History())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	provider := scripted(func(context.Context, []llm.ChatMessage) (llm.Response, error) {
		return answer(""), nil
	})

	config := DefaultConfig()
	config.MaxIterations = 0
	_, err := New(config, provider, tools.NewRegistry())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultConfig(), nil, tools.NewRegistry())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(DefaultConfig(), provider, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuilder(t *testing.T) {
	config := NewBuilder("items").
		MaxIterations(4).
		MaxHistoryPairs(2).
		RunTimeout(time.Minute).
		Build()

	assert.Equal(t, "items", config.Name)
	assert.Equal(t, 4, config.MaxIterations)
	assert.Equal(t, 2, config.MaxHistoryPairs)
	assert.Equal(t, time.Minute, config.RunTimeout)
	assert.Equal(t, DefaultSystemPrompt, config.SystemPrompt)

	custom := NewBuilder("x").SystemPrompt("").Build()
	assert.Contains(t, custom.SystemPrompt, "agent named x")
}
