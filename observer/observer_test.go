package observer

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.PromptSent("System: be helpful\n\nHuman: list items\n")
	c.ModelOutput("Calling listItems")
	c.ToolStarted("listItems", `{"limit":10}`)
	c.ToolFinished("Found 0 items: []")
	c.Finished("There are no items.")

	assert.Equal(t, strings.Join([]string{
		"[Prompt] System: be helpful",
		"[Prompt] Human: list items",
		"[LLM] Calling listItems",
		`[Tool > listItems] {"limit":10}`,
		"[Tool <] Found 0 items: []",
		"[Agent] There are no items.",
	}, "\n")+"\n", buf.String())
}

func TestConsoleSkipsEmptyContent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.ModelOutput("   \n\n")
	c.ToolFinished("")
	assert.Empty(t, buf.String())
}

func TestConsoleWithoutPrompts(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf).WithoutPrompts()

	c.PromptSent("secret conversation")
	c.Finished("done")
	assert.Equal(t, "[Agent] done\n", buf.String())
}

func TestConsoleConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.ToolFinished(fmt.Sprintf("run-%d line-%d\nrun-%d tail-%d", i, j, i, j))
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 20*50*2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[Tool <] run-"), line)
	}
}

type recorder struct {
	Nop
	events []string
}

func (r *recorder) ToolStarted(name, input string) {
	r.events = append(r.events, name+" "+input)
}

func (r *recorder) Finished(final string) {
	r.events = append(r.events, "final "+final)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.PromptSent("ignored")
	m.ToolStarted("health", "{}")
	m.Finished("ok")

	want := []string{"health {}", "final ok"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.PromptSent("not logged at debug")
	l.ToolStarted("getItem", `{"id":1}`)
	l.ToolStarted("broken", "not json")
	l.Finished("Item 1 is a Laptop")

	out := buf.String()
	assert.NotContains(t, out, "not logged at debug")
	assert.Contains(t, out, `"input":{"id":1}`)
	assert.Contains(t, out, `"input":"not json"`)
	assert.Contains(t, out, `"answer":"Item 1 is a Laptop"`)
}
