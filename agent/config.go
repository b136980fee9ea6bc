// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New for unusable configurations.
var ErrInvalidConfig = errors.New("invalid agent configuration")

// DefaultMaxIterations is the decide/act bound used by DefaultConfig.
const DefaultMaxIterations = 10

// DefaultSystemPrompt describes the item service assistant.
const DefaultSystemPrompt = `You are an AI assistant that helps users interact with REST APIs.

Your capabilities:
- Manage items: create, list, retrieve, update, and delete items
- Upload files to the server
- Check API health status
- Access secure endpoints (when API key is provided)

When a user asks you to do something:
1. Understand their intent
2. Choose the appropriate API endpoint(s)
3. Execute the API calls
4. Provide clear feedback about what was done

Always be helpful, clear, and informative. If an operation fails, explain what went wrong and suggest alternatives.`

// Config holds agent configuration.
type Config struct {
	// Name identifies the agent in logs.
	Name string

	// SystemPrompt guides the agent's behavior.
	SystemPrompt string

	// MaxIterations bounds the decide/act cycles of one run. Required.
	MaxIterations int

	// MaxHistoryPairs caps memory at this many request/answer pairs.
	MaxHistoryPairs int

	// ModelTimeout bounds each model call. Zero means no bound.
	ModelTimeout time.Duration

	// RunTimeout bounds a whole run; checked between cycles. Zero means no bound.
	RunTimeout time.Duration
}

// DefaultConfig returns the item service assistant configuration.
func DefaultConfig() Config {
	return Config{
		Name:            "apiagent",
		SystemPrompt:    DefaultSystemPrompt,
		MaxIterations:   DefaultMaxIterations,
		MaxHistoryPairs: DefaultMaxHistoryPairs,
		ModelTimeout:    60 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.ModelTimeout < 0 || c.RunTimeout < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidConfig)
	}
	return nil
}
