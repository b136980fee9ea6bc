// Package json extracts JSON objects from model output.
//
// Models usually return tool arguments as a clean JSON object, but some wrap
// them in markdown fences or surround them with commentary. DecodeObject
// accepts all of these shapes and rejects anything that is not an object.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotObject is returned when the payload parses as JSON but is not an object.
var ErrNotObject = errors.New("arguments must be a JSON object")

// extractJSON finds and returns the JSON portion of a response string.
// It handles common response patterns:
// 1. Pure JSON - returns the full response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object embedded in text - finds first '{' and last '}'
func extractJSON(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	if json.Valid([]byte(response)) {
		return response, nil
	}

	start := strings.Index(response, "{")
	if start != -1 {
		end := strings.LastIndex(response, "}")
		if end > start {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview(response))
}

// stripMarkdownCodeBlocks removes ```json / ``` fences around a payload.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

// DecodeObject decodes tool-call arguments into a map.
// Empty input (or a bare "null") yields an empty map.
func DecodeObject(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}

	payload, err := extractJSON(trimmed)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		if value == nil {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("%w, got %q", ErrNotObject, preview(payload))
	}
	return obj, nil
}

// ExtractJSONFromResponse extracts and parses JSON from a model response.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	payload, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}
