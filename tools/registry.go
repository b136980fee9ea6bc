// Tool registry: registration, listing and guarded invocation.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Argument validation (JSON Schema) hidden
// - Timeouts and panics in handlers converted to Result strings

package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	spec    Spec
	handler Handler
	schema  *gojsonschema.Schema
}

// Registry manages available tools. Invoke never panics and never returns
// an error; every failure becomes an "Error..." Result.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  zerolog.Nop(),
	}
}

// WithTimeout bounds every handler call. Zero means no bound.
func (r *Registry) WithTimeout(timeout time.Duration) *Registry {
	r.timeout = timeout
	return r
}

// WithLogger sets the logger used for invocation failures.
func (r *Registry) WithLogger(logger zerolog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a tool. The spec's argument schema is compiled once here.
func (r *Registry) Register(spec Spec, handler Handler) error {
	if spec.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool '%s' has no handler", spec.Name)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Schema()))
	if err != nil {
		return fmt.Errorf("tool '%s' has an invalid schema: %w", spec.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[spec.Name]; exists {
		return fmt.Errorf("tool '%s' already registered", spec.Name)
	}
	r.entries[spec.Name] = &entry{spec: spec, handler: handler, schema: schema}
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns a tool spec by name.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Spec{}, false
	}
	return e.spec, true
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// List returns all specs in registration order.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.entries[name].spec)
	}
	return specs
}

// Description returns a formatted description of all tools.
func (r *Registry) Description() string {
	var descriptions []string
	for _, spec := range r.List() {
		var params []string
		for _, p := range spec.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.Type, p.Description, required))
		}

		paramStr := "  (none)"
		if len(params) > 0 {
			paramStr = strings.Join(params, "\n")
		}
		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			spec.Name, spec.Description, paramStr))
	}

	return strings.Join(descriptions, "\n\n")
}

// Invoke validates args against the named tool's schema and runs it.
// The handler is not called when validation fails.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return r.fail(name, fmt.Sprintf("Error: unknown tool '%s'. Available tools: %s",
			name, strings.Join(r.Names(), ", ")))
	}

	prepared := withDefaults(e.spec, args)
	if err := validate(e.schema, prepared); err != nil {
		return r.fail(name, fmt.Sprintf("Error: invalid arguments for %s: %v", name, err))
	}

	result := Result{Tool: name, Output: r.execute(ctx, e, prepared)}
	if result.Failed() {
		r.logger.Debug().Str("tool", name).Str("output", result.Output).Msg("tool reported failure")
	}
	return result
}

func (r *Registry) fail(name, output string) Result {
	r.logger.Warn().Str("tool", name).Msg(output)
	return Result{Tool: name, Output: output}
}

// execute runs the handler under the registry timeout. A handler that
// ignores cancellation is abandoned; its late result is discarded.
func (r *Registry) execute(ctx context.Context, e *entry, args Args) string {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan string, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Sprintf("Error: tool %s panicked: %v", e.spec.Name, p)
			}
		}()
		done <- e.handler(ctx, args)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && r.timeout > 0 {
			return fmt.Sprintf("Error: tool %s timed out after %s", e.spec.Name, r.timeout)
		}
		return fmt.Sprintf("Error: tool %s interrupted: %v", e.spec.Name, ctx.Err())
	}
}

// withDefaults copies args, dropping nulls, and fills absent parameters that
// declare a default.
func withDefaults(spec Spec, args map[string]any) Args {
	prepared := make(Args, len(args)+len(spec.Parameters))
	for k, v := range args {
		if v != nil {
			prepared[k] = v
		}
	}
	for _, p := range spec.Parameters {
		if p.Default == nil {
			continue
		}
		if _, ok := prepared[p.Name]; !ok {
			prepared[p.Name] = p.Default
		}
	}
	return prepared
}

func validate(schema *gojsonschema.Schema, args Args) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
