package tools

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spySpec() Spec {
	return Spec{
		Name:        "createItem",
		Description: "Create an item",
		Parameters: []Parameter{
			{Name: "name", Type: "string", Required: true},
			{Name: "price", Type: "number", Required: true},
			{Name: "limit", Type: "integer", Default: 10},
		},
	}
}

func TestInvokeMissingRequiredSkipsHandler(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(spySpec(), func(context.Context, Args) string {
		calls.Add(1)
		return "ok"
	}))

	result := r.Invoke(context.Background(), "createItem", map[string]any{"name": "Widget"})

	assert.True(t, result.Failed())
	assert.Contains(t, result.Output, "Error: invalid arguments for createItem")
	assert.Contains(t, result.Output, "price is required")
	assert.Zero(t, calls.Load())
}

func TestInvokeWrongTypeSkipsHandler(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(spySpec(), func(context.Context, Args) string {
		calls.Add(1)
		return "ok"
	}))

	result := r.Invoke(context.Background(), "createItem", map[string]any{"name": "Widget", "price": "cheap"})

	assert.True(t, result.Failed())
	assert.Contains(t, result.Output, "price")
	assert.Zero(t, calls.Load())
}

func TestInvokeAppliesDefaults(t *testing.T) {
	var got Args
	r := NewRegistry()
	require.NoError(t, r.Register(spySpec(), func(_ context.Context, args Args) string {
		got = args
		return "done"
	}))

	result := r.Invoke(context.Background(), "createItem", map[string]any{"name": "Widget", "price": 9.99, "limit": nil})

	assert.False(t, result.Failed())
	assert.Equal(t, "done", result.Output)
	assert.Equal(t, 10, got.Int("limit"))
	assert.Equal(t, 9.99, got.Float("price"))
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(spySpec(), func(context.Context, Args) string { return "" }))

	result := r.Invoke(context.Background(), "dropTables", nil)
	assert.True(t, result.Failed())
	assert.Contains(t, result.Output, "unknown tool 'dropTables'")
	assert.Contains(t, result.Output, "createItem")
}

func TestInvokeRecoversPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Spec{Name: "boom"}, func(context.Context, Args) string {
		panic("kaboom")
	}))

	result := r.Invoke(context.Background(), "boom", map[string]any{})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Output, "kaboom")
}

func TestInvokeTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(Spec{Name: "slow"}, func(ctx context.Context, _ Args) string {
		<-ctx.Done()
		return "late"
	}))

	result := r.Invoke(context.Background(), "slow", nil)
	assert.True(t, result.Failed())
	assert.Contains(t, result.Output, "timed out")
}

func TestRegisterRejectsDuplicatesAndEmptyNames(t *testing.T) {
	r := NewRegistry()
	handler := func(context.Context, Args) string { return "" }

	require.NoError(t, r.Register(Spec{Name: "health"}, handler))
	assert.Error(t, r.Register(Spec{Name: "health"}, handler))
	assert.Error(t, r.Register(Spec{}, handler))
	assert.Error(t, r.Register(Spec{Name: "nil"}, nil))
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	handler := func(context.Context, Args) string { return "" }
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(Spec{Name: name}, handler))
	}

	var names []string
	for _, spec := range r.List() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
	assert.Contains(t, r.Description(), "Tool: alpha")
}

func TestSpecSchema(t *testing.T) {
	schema := Spec{
		Name: "updateItem",
		Parameters: []Parameter{
			{Name: "id", Type: "integer", Required: true},
			{Name: "tags", Type: "array"},
		},
	}.Schema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"id"}, schema["required"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["tags"].(map[string]any)["items"])
}

func TestResultFailed(t *testing.T) {
	assert.True(t, Result{Output: "Error creating item: boom"}.Failed())
	assert.True(t, Result{Output: "Item with ID 3 not found"}.Failed())
	assert.False(t, Result{Output: "Created item: {}"}.Failed())
}
