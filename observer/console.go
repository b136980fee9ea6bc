package observer

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

// Line categories written by Console.
const (
	CategoryPrompt = "Prompt"
	CategoryLLM    = "LLM"
	CategoryAgent  = "Agent"
	CategoryResult = "Tool <"
)

// ToolCategory returns the category for a tool about to run.
func ToolCategory(name string) string {
	return "Tool > " + name
}

// Console writes each non-empty line of a notification as
// "[<Category>] <line>". One notification is written under one lock, so lines
// from concurrent runs never interleave mid-line.
type Console struct {
	mu    sync.Mutex
	out   *bufio.Writer
	quiet bool
}

// NewConsole creates a console observer writing to w (stdout when nil).
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: bufio.NewWriter(w)}
}

// WithoutPrompts suppresses [Prompt] output, which repeats the whole
// conversation on every cycle.
func (c *Console) WithoutPrompts() *Console {
	c.quiet = true
	return c
}

func (c *Console) PromptSent(prompt string) {
	if c.quiet {
		return
	}
	c.render(CategoryPrompt, prompt)
}

func (c *Console) ModelOutput(output string) {
	c.render(CategoryLLM, output)
}

func (c *Console) ToolStarted(name, input string) {
	c.render(ToolCategory(name), input)
}

func (c *Console) ToolFinished(output string) {
	c.render(CategoryResult, output)
}

func (c *Console) Finished(final string) {
	c.render(CategoryAgent, final)
}

func (c *Console) render(category, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := "[" + category + "] "
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.out.WriteString(prefix)
		c.out.WriteString(line)
		c.out.WriteByte('\n')
	}
	_ = c.out.Flush()
}

var _ Observer = (*Console)(nil)
