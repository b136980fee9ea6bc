// Package main provides the apiagent CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/richinex/apiagent/agent"
	"github.com/richinex/apiagent/cli"
	"github.com/richinex/apiagent/config"
	"github.com/richinex/apiagent/storage"
)

var (
	// Global flags
	provider     string
	modelName    string
	baseURL      string
	apiKey       string
	temperature  float64
	maxIter      int
	maxHistory   int
	toolRetries  int
	modelTimeout time.Duration
	toolTimeout  time.Duration
	runTimeout   time.Duration
	verbose      bool
	quiet        bool
	showPrompts  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if agent.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree with its persistent flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apiagent",
		Short: "Natural-language agent for the item REST API",
		Long: `A CLI for an LLM agent that turns natural-language requests into calls
against an item REST API (health, items CRUD, file upload, secure secret).

Start the demo service with "apiagent serve", then talk to it with
"apiagent run", "apiagent chat" or "apiagent demo".`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&provider, "provider", "p", "openai", "LLM provider (openai, anthropic, deepseek, gemini)")
	flags.StringVar(&modelName, "model", "", "Model name (defaults to the provider's configured model)")
	flags.StringVar(&baseURL, "base-url", "", "Item service base URL (env API_BASE_URL)")
	flags.StringVar(&apiKey, "api-key", "", "Item service API key (env API_KEY)")
	flags.Float64Var(&temperature, "temperature", 0, "Sampling temperature (env LLM_TEMPERATURE)")
	flags.IntVarP(&maxIter, "max-iter", "m", 0, "Maximum decide/act cycles per request (env AGENT_MAX_ITERATIONS)")
	flags.IntVar(&maxHistory, "max-history", 0, "Remembered request/answer pairs (env AGENT_MAX_HISTORY_PAIRS)")
	flags.IntVar(&toolRetries, "tool-retries", 0, "Retries for read-only tool calls (env AGENT_TOOL_RETRIES)")
	flags.DurationVar(&modelTimeout, "model-timeout", 0, "Timeout per model call (env AGENT_MODEL_TIMEOUT)")
	flags.DurationVar(&toolTimeout, "tool-timeout", 0, "Timeout per tool call (env AGENT_TOOL_TIMEOUT)")
	flags.DurationVar(&runTimeout, "run-timeout", 0, "Time bound per request, 0 for none (env AGENT_RUN_TIMEOUT)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Hide the step-by-step trace")
	flags.BoolVar(&showPrompts, "show-prompts", false, "Include full prompts in the trace")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadOptions reads environment settings, then applies explicitly set flags.
func loadOptions(cmd *cobra.Command) (cli.Options, error) {
	settings, err := config.New(provider)
	if err != nil {
		return cli.Options{}, err
	}

	opts := cli.OptionsFromSettings(settings)
	opts.Quiet = quiet
	opts.ShowPrompts = showPrompts

	changed := cmd.Flags().Changed
	if changed("model") {
		opts.Model = modelName
	}
	if changed("base-url") {
		opts.BaseURL = baseURL
	}
	if changed("api-key") {
		opts.APIKey = apiKey
	}
	if changed("temperature") {
		opts.Temperature = temperature
	}
	if changed("max-iter") {
		opts.MaxIterations = maxIter
	}
	if changed("max-history") {
		opts.MaxHistoryPairs = maxHistory
	}
	if changed("tool-retries") {
		opts.ToolRetries = toolRetries
	}
	if changed("model-timeout") {
		opts.ModelTimeout = modelTimeout
	}
	if changed("tool-timeout") {
		opts.ToolTimeout = toolTimeout
	}
	if changed("run-timeout") {
		opts.RunTimeout = runTimeout
	}
	return opts, nil
}

func buildAgent(cmd *cobra.Command) (*agent.Agent, error) {
	opts, err := loadOptions(cmd)
	if err != nil {
		return nil, err
	}

	p, err := cli.CreateProvider(opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	logger.Debug().
		Str("provider", p.Name()).
		Str("model", p.Model()).
		Str("base_url", opts.BaseURL).
		Bool("api_key", opts.APIKey != "").
		Msg("agent configured")

	return cli.NewAgent(opts, p, cmd.OutOrStdout(), logger)
}

func runCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "run [request]",
		Short: "Answer a single request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			return cli.RunTask(cmd.Context(), a, args[0], trace, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "Print the full run result as JSON")

	return cmd
}

func chatCmd() *cobra.Command {
	var sessionID string
	var persist bool
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session. Type 'quit' to exit and 'clear' to
forget the conversation.

With --session (or --persist for a fresh session id) the conversation is
stored in SQLite and restored the next time the same session is opened.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent(cmd)
			if err != nil {
				return err
			}

			session := cli.ChatSession{ID: sessionID}
			if persist && session.ID == "" {
				session.ID = uuid.NewString()
				fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", session.ID)
			}
			if session.ID != "" {
				store, err := storage.OpenSqlite(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer store.Close()
				session.Store = store
			}

			return cli.Chat(cmd.Context(), a, session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")
	cmd.Flags().BoolVar(&persist, "persist", false, "Persist under a newly generated session ID")
	cmd.Flags().StringVar(&dbPath, "db", storage.DefaultDBPath, "Database path for sessions")

	return cmd
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the scripted item service tour",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			return cli.Demo(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func batchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch [request...]",
		Short: "Answer several requests concurrently with one agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent(cmd)
			if err != nil {
				return err
			}
			return cli.Batch(cmd.Context(), a, args, concurrency, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Maximum concurrent requests")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools [name...]",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			registry, err := cli.NewRegistry(opts, newLogger())
			if err != nil {
				return err
			}
			return cli.ListTools(cmd.OutOrStdout(), registry, verboseTools, args...)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func sessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved chat sessions",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", storage.DefaultDBPath, "Database path for sessions")

	withStore := func(fn func(cmd *cobra.Command, store storage.ConversationStorage, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, err := storage.OpenSqlite(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()
			return fn(cmd, store, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store storage.ConversationStorage, _ []string) error {
			return cli.ListSessions(cmd.Context(), store, cmd.OutOrStdout())
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store storage.ConversationStorage, args []string) error {
			return cli.DeleteSession(cmd.Context(), store, args[0], cmd.OutOrStdout())
		}),
	})

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	var serverKey string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo item service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverKey == "" {
				serverKey = os.Getenv("API_KEY")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item service on %s. Press Ctrl+C to stop.\n", addr)
			return cli.Serve(cmd.Context(), addr, serverKey, newLogger())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().StringVar(&serverKey, "key", "", "API key guarding /secure/secret (env API_KEY, default secret123)")

	return cmd
}
