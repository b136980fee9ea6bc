// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
// - Item service location and credential

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Service ServiceConfig
	Agent   AgentConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// ServiceConfig locates the item service the tools call.
type ServiceConfig struct {
	BaseURL string
	// APIKey is sent as X-API-Key when set.
	APIKey string
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxIterations   int
	MaxHistoryPairs int
	ModelTimeout    time.Duration
	ToolTimeout     time.Duration
	RunTimeout      time.Duration
	ToolRetries     int
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// DefaultBaseURL is where the demo item service listens by default.
const DefaultBaseURL = "http://localhost:8000"

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.0)
	if err != nil {
		return Settings{}, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return Settings{}, err
	}

	// Get model from environment or use default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Service: ServiceConfig{
			BaseURL: baseURL,
			APIKey:  os.Getenv("API_KEY"),
		},
		Agent: agent,
	}, nil
}

func loadAgentConfig() (AgentConfig, error) {
	var (
		cfg AgentConfig
		err error
	)

	if cfg.MaxIterations, err = getEnvInt("AGENT_MAX_ITERATIONS", 10); err != nil {
		return cfg, err
	}
	if cfg.MaxIterations <= 0 {
		return cfg, fmt.Errorf("invalid value for AGENT_MAX_ITERATIONS: must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.MaxHistoryPairs, err = getEnvInt("AGENT_MAX_HISTORY_PAIRS", 10); err != nil {
		return cfg, err
	}
	if cfg.ModelTimeout, err = getEnvDuration("AGENT_MODEL_TIMEOUT", 60*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ToolTimeout, err = getEnvDuration("AGENT_TOOL_TIMEOUT", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.RunTimeout, err = getEnvDuration("AGENT_RUN_TIMEOUT", 0); err != nil {
		return cfg, err
	}
	if cfg.ToolRetries, err = getEnvInt("AGENT_TOOL_RETRIES", 2); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

// getEnvDuration accepts Go duration strings ("45s", "2m") or plain seconds.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if secs, convErr := strconv.Atoi(val); convErr == nil {
		d, err = time.Duration(secs)*time.Second, nil
	}
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: %q: must not be negative", key, val)
	}
	return d, nil
}
