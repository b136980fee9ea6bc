// Agent construction for CLI commands.
//
// Information Hiding:
// - Provider selection and API key lookup hidden
// - Registry, HTTP client and observer wiring hidden

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/apiagent/agent"
	"github.com/richinex/apiagent/config"
	"github.com/richinex/apiagent/llm"
	"github.com/richinex/apiagent/observer"
	"github.com/richinex/apiagent/tools"
)

// Options holds everything needed to build an agent for one command.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64

	BaseURL string
	APIKey  string

	MaxIterations   int
	MaxHistoryPairs int
	ModelTimeout    time.Duration
	ToolTimeout     time.Duration
	RunTimeout      time.Duration
	ToolRetries     int

	// Quiet suppresses the console trace of the decide/act/observe loop.
	Quiet bool
	// ShowPrompts includes the full rendered prompt in the console trace.
	ShowPrompts bool
}

// OptionsFromSettings converts environment settings into command options.
func OptionsFromSettings(settings config.Settings) Options {
	return Options{
		Provider:        settings.LLM.Provider,
		Model:           settings.LLM.Model,
		MaxTokens:       settings.LLM.MaxTokens,
		Temperature:     settings.LLM.Temperature,
		BaseURL:         settings.Service.BaseURL,
		APIKey:          settings.Service.APIKey,
		MaxIterations:   settings.Agent.MaxIterations,
		MaxHistoryPairs: settings.Agent.MaxHistoryPairs,
		ModelTimeout:    settings.Agent.ModelTimeout,
		ToolTimeout:     settings.Agent.ToolTimeout,
		RunTimeout:      settings.Agent.RunTimeout,
		ToolRetries:     settings.Agent.ToolRetries,
	}
}

// CreateProvider builds the LLM provider named by opts.Provider.
func CreateProvider(opts Options) (llm.Provider, error) {
	if opts.Provider == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	providerType, err := llm.ParseProviderType(opts.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(opts.Provider)
	if err != nil {
		return nil, err
	}

	builder := providerType.Model(opts.Model).Temperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		builder = builder.MaxTokens(opts.MaxTokens)
	}
	return builder.APIKey(apiKey)
}

// NewRegistry registers the item service tools against opts.BaseURL.
func NewRegistry(opts Options, logger zerolog.Logger) (*tools.Registry, error) {
	client := tools.NewAPIClient(opts.BaseURL, opts.APIKey,
		tools.WithRetries(opts.ToolRetries),
		tools.WithClientLogger(logger),
	)

	registry := tools.NewRegistry().WithTimeout(opts.ToolTimeout).WithLogger(logger)
	if err := tools.RegisterAPITools(registry, client); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return registry, nil
}

// NewAgent wires provider, tools and observers into an agent.
// The console trace goes to out unless opts.Quiet is set.
func NewAgent(opts Options, provider llm.Provider, out io.Writer, logger zerolog.Logger) (*agent.Agent, error) {
	registry, err := NewRegistry(opts, logger)
	if err != nil {
		return nil, err
	}

	cfg := agent.NewBuilder("apiagent").
		MaxIterations(opts.MaxIterations).
		MaxHistoryPairs(opts.MaxHistoryPairs).
		ModelTimeout(opts.ModelTimeout).
		RunTimeout(opts.RunTimeout).
		Build()

	a, err := agent.New(cfg, provider, registry)
	if err != nil {
		return nil, err
	}

	observers := []observer.Observer{observer.NewLog(logger)}
	if !opts.Quiet {
		console := observer.NewConsole(out)
		if !opts.ShowPrompts {
			console = console.WithoutPrompts()
		}
		observers = append(observers, console)
	}

	return a.WithObservers(observers...).WithLogger(logger), nil
}
