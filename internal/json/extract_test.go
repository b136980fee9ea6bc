package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{"pure", `{"name": "Widget", "price": 9.99}`, map[string]any{"name": "Widget", "price": 9.99}},
		{"fenced", "```json\n{\"id\": 1}\n```", map[string]any{"id": float64(1)}},
		{"bare fence", "```\n{\"id\": 2}\n```", map[string]any{"id": float64(2)}},
		{"commentary", `Sure, here you go: {"query": "lap"} hope that helps`, map[string]any{"query": "lap"}},
		{"empty", "   ", map[string]any{}},
		{"null", "null", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeObjectRejectsNonObjects(t *testing.T) {
	_, err := DecodeObject(`[1, 2, 3]`)
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = DecodeObject(`{"name": "Widget"`)
	assert.Error(t, err)

	_, err = DecodeObject(`no json here`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract valid JSON")
}

func TestExtractJSONFromResponse(t *testing.T) {
	type item struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	got, err := ExtractJSONFromResponse[item](`Result: {"name": "Laptop", "price": 999.99} done`)
	require.NoError(t, err)
	assert.Equal(t, item{Name: "Laptop", Price: 999.99}, got)

	_, err = ExtractJSONFromResponse[item]("nothing")
	assert.Error(t, err)
}

func TestErrorPreviewTruncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	_, err := DecodeObject(string(long))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "...")
}
