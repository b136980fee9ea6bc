// Package observer delivers live progress notifications from an agent run.
//
// Information Hiding:
// - Rendering of notifications hidden behind Observer
// - Fan-out to several sinks hidden behind Multi
//
// Observers are called synchronously, in order, from the run's goroutine.
// Concurrent runs may call the same observer concurrently.
package observer

// Observer receives notifications as a run progresses.
type Observer interface {
	// PromptSent is called with the rendered conversation before each model call.
	PromptSent(prompt string)
	// ModelOutput is called with the model's reply, including chosen tools.
	ModelOutput(output string)
	// ToolStarted is called before a tool runs, with its JSON input.
	ToolStarted(name, input string)
	// ToolFinished is called with the tool's output.
	ToolFinished(output string)
	// Finished is called once with the final answer.
	Finished(final string)
}

// Nop ignores every notification. Embed it to implement a subset of hooks.
type Nop struct{}

func (Nop) PromptSent(string)          {}
func (Nop) ModelOutput(string)         {}
func (Nop) ToolStarted(string, string) {}
func (Nop) ToolFinished(string)        {}
func (Nop) Finished(string)            {}

// Multi forwards every notification to each observer in order.
type Multi []Observer

// NewMulti combines observers, skipping nil entries.
func NewMulti(observers ...Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m Multi) PromptSent(prompt string) {
	for _, o := range m {
		o.PromptSent(prompt)
	}
}

func (m Multi) ModelOutput(output string) {
	for _, o := range m {
		o.ModelOutput(output)
	}
}

func (m Multi) ToolStarted(name, input string) {
	for _, o := range m {
		o.ToolStarted(name, input)
	}
}

func (m Multi) ToolFinished(output string) {
	for _, o := range m {
		o.ToolFinished(output)
	}
}

func (m Multi) Finished(final string) {
	for _, o := range m {
		o.Finished(final)
	}
}

var (
	_ Observer = Nop{}
	_ Observer = Multi(nil)
)
