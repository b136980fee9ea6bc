// Step normalization.
//
// Information Hiding:
// - Thought extraction priority hidden
// - JSON-safe conversion hidden behind JSONSafe

package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/richinex/apiagent/model"
)

// NormalizeStep builds the trace record for one cycle. call is nil when the
// cycle produced no tool invocation.
func NormalizeStep(d Decision, call *ToolInvocation, observation any) model.ReasoningStep {
	step := model.ReasoningStep{
		Thought:     d.Thought(),
		Observation: JSONSafe(observation),
	}
	if call != nil {
		name := call.Name
		step.Action = &name
		if call.Err != nil {
			step.Input = call.Raw
		} else {
			step.Input = JSONSafe(call.Arguments)
		}
	}
	return step
}

// maxSafeDepth bounds container nesting so cyclic values terminate.
const maxSafeDepth = 64

// JSONSafe converts v into a value encoding/json can always marshal: nil,
// bool, string, finite numbers, map[string]any and []any. Values outside that
// set are replaced by their text form, which loses structure. NaN and
// infinities become "NaN", "+Inf" and "-Inf".
func JSONSafe(v any) any {
	return jsonSafe(v, 0)
}

func jsonSafe(v any, depth int) any {
	if depth > maxSafeDepth {
		switch reflect.ValueOf(v).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
			return fmt.Sprintf("<%T nested too deep>", v)
		}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}

	switch x := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case float32:
		return safeFloat(float64(x), x)
	case float64:
		return safeFloat(x, x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = jsonSafe(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = jsonSafe(val, depth+1)
		}
		return out
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(x, &decoded); err != nil {
			return string(x)
		}
		return jsonSafe(decoded, depth+1)
	case []byte:
		return string(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return jsonSafe(rv.Elem().Interface(), depth+1)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = jsonSafe(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonSafe(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return safeFloat(rv.Float(), rv.Float())
	}

	return fmt.Sprintf("%+v", v)
}

// safeFloat returns v unchanged unless f is not finite.
func safeFloat(f float64, v any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

// thoughtFrom picks the richest free text: the explicit log, then the text
// chunks. Blank text counts as absent.
func thoughtFrom(log string, chunks []string) *string {
	if s := strings.TrimSpace(log); s != "" {
		return &s
	}
	if s := strings.TrimSpace(strings.Join(chunks, "")); s != "" {
		return &s
	}
	return nil
}
