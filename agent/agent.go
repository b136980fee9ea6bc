// Decide/act/observe loop implementation.
//
// Information Hiding:
// - Loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden
// - Memory management hidden

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richinex/apiagent/llm"
	"github.com/richinex/apiagent/model"
	"github.com/richinex/apiagent/observer"
	"github.com/richinex/apiagent/tools"
)

// Agent answers requests by invoking tools chosen by a language model.
// Run may be called concurrently; only memory updates are serialized.
type Agent struct {
	config    Config
	llmClient *llm.Client
	registry  *tools.Registry
	memory    *Memory
	observer  observer.Observer
	logger    zerolog.Logger
}

// New creates an agent. It fails when config is invalid or a dependency is
// missing.
func New(config Config, provider llm.Provider, registry *tools.Registry) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", ErrInvalidConfig)
	}

	return &Agent{
		config:    config,
		llmClient: llm.NewClient(provider, config.ModelTimeout),
		registry:  registry,
		memory:    NewMemory(config.MaxHistoryPairs),
		observer:  observer.Nop{},
		logger:    zerolog.Nop(),
	}, nil
}

// WithObservers attaches progress observers. Each gets every notification.
func (a *Agent) WithObservers(observers ...observer.Observer) *Agent {
	a.observer = observer.NewMulti(observers...)
	return a
}

// WithLogger sets the structured logger.
func (a *Agent) WithLogger(logger zerolog.Logger) *Agent {
	a.logger = logger
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Memory exposes the conversation memory, e.g. for restoring a session.
func (a *Agent) Memory() *Memory {
	return a.memory
}

// History returns the remembered conversation.
func (a *Agent) History() []model.Message {
	return a.memory.History()
}

// ClearMemory forgets the conversation.
func (a *Agent) ClearMemory() {
	a.memory.Clear()
}

// Run answers one request. Tool failures, malformed model output and model
// errors are fed back to the model as observations; only cancellation of ctx
// returns an error, in which case memory is left untouched.
func (a *Agent) Run(ctx context.Context, request string) (RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := a.logger.With().Str("run_id", runID).Str("agent", a.config.Name).Logger()
	log.Info().Str("request", request).Msg("run started")

	// runCtx carries the run time bound; ctx alone decides cancellation.
	runCtx := ctx
	if a.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.config.RunTimeout)
		defer cancel()
	}

	conversation := a.buildConversation(a.memory.History(), request)
	definitions := toolDefinitions(a.registry.List())

	var (
		steps  []model.ReasoningStep
		meta   Metadata
		output string
		stop   = StopIterationLimit
	)

loop:
	for iteration := 0; iteration < a.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			log.Info().Err(err).Int("iteration", iteration).Msg("run cancelled")
			return RunResult{}, err
		}
		if runCtx.Err() != nil {
			stop = StopTimeLimit
			break
		}

		a.observer.PromptSent(renderConversation(conversation))
		resp, err := a.llmClient.Complete(runCtx, conversation, definitions)
		meta.LLMCalls++
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Err(ctx.Err()).Int("iteration", iteration).Msg("run cancelled")
				return RunResult{}, ctx.Err()
			}
			if runCtx.Err() != nil {
				stop = StopTimeLimit
				break
			}
			observation := fmt.Sprintf("Error: model call failed: %v", err)
			log.Warn().Err(err).Int("iteration", iteration).Msg("model call failed")
			a.observer.ModelOutput(observation)
			steps = append(steps, NormalizeStep(Decision{}, nil, observation))
			continue
		}
		meta.TokenUsage.Add(resp.Usage)

		decision := ParseDecision(resp)
		a.observer.ModelOutput(decision.Summary())
		log.Debug().Int("iteration", iteration).Stringer("decision", decision.Kind).Int("calls", len(decision.Calls)).Msg("model decided")

		switch decision.Kind {
		case DecisionFinish:
			output = decision.Answer
			stop = StopFinished
			break loop

		case DecisionInvalid:
			steps = append(steps, NormalizeStep(decision, nil, decision.Problem))
			if decision.Content != "" {
				conversation = append(conversation, llm.AssistantMessage(decision.Content))
			}
			conversation = append(conversation, llm.UserMessage(decision.Problem))

		case DecisionAct:
			conversation = append(conversation, decision.assistantMessage())
			for _, call := range decision.Calls {
				result, toolCall := a.act(ctx, call)
				meta.ToolCalls = append(meta.ToolCalls, toolCall)
				steps = append(steps, NormalizeStep(decision, &call, result.Output))
				conversation = append(conversation, observationMessage(decision, call, result.Output))

				if err := ctx.Err(); err != nil {
					log.Info().Err(err).Str("tool", call.Name).Msg("run cancelled during tool call")
					return RunResult{}, err
				}
			}
		}
	}

	switch stop {
	case StopIterationLimit:
		output = fmt.Sprintf("Agent stopped: reached the iteration limit (%d) without a final answer.", a.config.MaxIterations)
	case StopTimeLimit:
		output = fmt.Sprintf("Agent stopped: reached the time limit (%s) without a final answer.", a.config.RunTimeout)
	}

	a.observer.Finished(output)
	a.memory.Commit(model.UserMessage(request), model.AssistantMessage(output))

	meta.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
	log.Info().
		Str("stop", string(stop)).
		Int("steps", len(steps)).
		Int("llm_calls", meta.LLMCalls).
		Uint64("elapsed_ms", meta.ExecutionTimeMs).
		Msg("run finished")

	return RunResult{
		RunID:     runID,
		Output:    output,
		Reasoning: steps,
		Stop:      stop,
		Metadata:  meta,
	}, nil
}

// act runs one invocation. A tool call already in flight is allowed to
// complete even if ctx is cancelled; the caller discards its result.
func (a *Agent) act(ctx context.Context, call ToolInvocation) (tools.Result, model.ToolCall) {
	a.observer.ToolStarted(call.Name, call.InputJSON())
	start := time.Now()

	var result tools.Result
	if call.Err != nil {
		result = tools.Result{
			Tool:   call.Name,
			Output: fmt.Sprintf("Error: could not parse arguments for %s: %v", call.Name, call.Err),
		}
	} else {
		result = a.registry.Invoke(context.WithoutCancel(ctx), call.Name, call.Arguments)
	}

	a.observer.ToolFinished(result.Output)
	return result, model.ToolCall{
		Name:       call.Name,
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    !result.Failed(),
	}
}

func (a *Agent) buildConversation(history []model.Message, request string) []llm.ChatMessage {
	conversation := make([]llm.ChatMessage, 0, len(history)+2)
	conversation = append(conversation, llm.SystemMessage(a.config.SystemPrompt))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			conversation = append(conversation, llm.UserMessage(m.Content))
		case model.RoleAssistant:
			conversation = append(conversation, llm.AssistantMessage(m.Content))
		}
	}
	return append(conversation, llm.UserMessage(request))
}

func observationMessage(d Decision, call ToolInvocation, output string) llm.ChatMessage {
	if d.native() {
		return llm.ToolResultMessage(call.toolCall(), output)
	}
	return llm.UserMessage("Observation: " + output)
}

func toolDefinitions(specs []tools.Spec) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(specs))
	for i, s := range specs {
		defs[i] = llm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Schema(),
		}
	}
	return defs
}

// renderConversation flattens the conversation the way it is shown to
// observers.
func renderConversation(messages []llm.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			b.WriteString("System: ")
		case llm.RoleUser:
			b.WriteString("Human: ")
		case llm.RoleAssistant:
			b.WriteString("AI: ")
		case llm.RoleTool:
			fmt.Fprintf(&b, "Tool (%s): ", m.ToolName)
		}
		b.WriteString(m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, "\n  -> %s %s", tc.Name, string(tc.Arguments))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// IsCancelled reports whether err came from a cancelled run.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
