// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"
	"time"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	config Config
}

// NewBuilder starts from DefaultConfig with the given name.
func NewBuilder(name string) *Builder {
	config := DefaultConfig()
	config.Name = name
	return &Builder{config: config}
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// MaxIterations sets the decide/act bound.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// MaxHistoryPairs sets the memory cap.
func (b *Builder) MaxHistoryPairs(n int) *Builder {
	b.config.MaxHistoryPairs = n
	return b
}

// ModelTimeout bounds each model call.
func (b *Builder) ModelTimeout(d time.Duration) *Builder {
	b.config.ModelTimeout = d
	return b
}

// RunTimeout bounds each run.
func (b *Builder) RunTimeout(d time.Duration) *Builder {
	b.config.RunTimeout = d
	return b
}

// Build returns the configuration.
func (b *Builder) Build() Config {
	config := b.config
	if config.Name == "" {
		config.Name = "agent"
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = fmt.Sprintf(
			"You are an agent named %s. Use available tools to complete tasks.",
			config.Name,
		)
	}
	return config
}

// Name returns the builder's agent name.
func (b *Builder) Name() string {
	return b.config.Name
}
