// Command execution for CLI commands.
//
// Information Hiding:
// - Session persistence hidden
// - Batch fan-out hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/apiagent/agent"
	"github.com/richinex/apiagent/server"
	"github.com/richinex/apiagent/storage"
	"github.com/richinex/apiagent/tools"
)

// DemoRequests is the scripted tour of the item service.
var DemoRequests = []string{
	"Check if the API is healthy",
	"Create a new item called 'Laptop' with price 999.99 and tags 'electronics' and 'tech'",
	"List all items",
	"Show me item with ID 1",
	"Update item 1 to have price 899.99",
	"Delete item 1",
	"What's the secret?",
}

const separator = "--------------------------------------------------"

// RunTask answers one request and prints the answer. With trace set the full
// run result is printed as JSON afterwards.
func RunTask(ctx context.Context, a *agent.Agent, request string, trace bool, out io.Writer) error {
	result, err := a.Run(ctx, request)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", result.Output)
	if !trace {
		return nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	fmt.Fprintf(out, "\n%s\n", data)
	return nil
}

// Demo runs DemoRequests in order against one agent, so later requests can
// refer to earlier ones.
func Demo(ctx context.Context, a *agent.Agent, out io.Writer) error {
	fmt.Fprintf(out, "=== AI Agent Demo ===\n\n")
	for _, request := range DemoRequests {
		fmt.Fprintf(out, "User: %s\n", request)
		result, err := a.Run(ctx, request)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Agent: %s\n\n%s\n", result.Output, separator)
	}
	return nil
}

// ChatSession configures interactive chat persistence.
// A nil Store keeps the conversation in process memory only.
type ChatSession struct {
	Store storage.ConversationStorage
	ID    string
}

// Chat reads requests line by line until EOF or "quit". "clear" forgets the
// conversation. When a session store is set the memory is restored first and
// saved after every answer.
func Chat(ctx context.Context, a *agent.Agent, session ChatSession, in io.Reader, out io.Writer) error {
	if session.Store != nil {
		history, err := session.Store.Load(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(history) > 0 {
			a.Memory().Commit(history...)
			fmt.Fprintf(out, "Resuming session '%s' (%d messages)\n\n", session.ID, len(history))
		}
	}

	fmt.Fprintf(out, "=== Interactive Mode ===\n")
	fmt.Fprintf(out, "Type 'quit' to exit, 'clear' to clear memory\n\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "clear":
			a.ClearMemory()
			if err := saveSession(ctx, a, session); err != nil {
				return err
			}
			fmt.Fprintf(out, "Memory cleared!\n\n")
			continue
		}

		result, err := a.Run(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Agent: %s\n\n", result.Output)

		if err := saveSession(ctx, a, session); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func saveSession(ctx context.Context, a *agent.Agent, session ChatSession) error {
	if session.Store == nil {
		return nil
	}
	if err := session.Store.Save(ctx, session.ID, a.History()); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Batch runs requests concurrently against one agent, at most concurrency at
// a time, and prints the answers in request order.
func Batch(ctx context.Context, a *agent.Agent, requests []string, concurrency int, out io.Writer) error {
	results := make([]agent.RunResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, request := range requests {
		g.Go(func() error {
			result, err := a.Run(gctx, request)
			if err != nil {
				return fmt.Errorf("request %d: %w", i+1, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, result := range results {
		fmt.Fprintf(out, "[%d] %s\n%s\n\n", i+1, requests[i], result.Output)
	}
	return nil
}

// ListTools prints the tools held by registry, or only the named ones.
// verbose adds parameters. An unknown name is an error.
func ListTools(out io.Writer, registry *tools.Registry, verbose bool, names ...string) error {
	specs := registry.List()
	if len(names) > 0 {
		specs = make([]tools.Spec, 0, len(names))
		for _, name := range names {
			spec, ok := registry.Get(name)
			if !ok {
				return fmt.Errorf("unknown tool '%s' (available: %s)", name, strings.Join(registry.Names(), ", "))
			}
			specs = append(specs, spec)
		}
	}

	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)

	for _, spec := range specs {
		fmt.Fprintf(out, "  %s\n", spec.Name)
		fmt.Fprintf(out, "    %s\n", spec.Description)

		if verbose && len(spec.Parameters) > 0 {
			fmt.Fprintln(out, "    Parameters:")
			for _, param := range spec.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(out, "      %s%s: %s - %s\n", param.Name, req, param.Type, param.Description)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

// Serve runs the demo item service until ctx is cancelled.
func Serve(ctx context.Context, addr, apiKey string, logger zerolog.Logger) error {
	return server.New(apiKey, logger).ListenAndServe(ctx, addr)
}
