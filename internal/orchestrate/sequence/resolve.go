package sequence

import (
	"fmt"
	"strings"
)

// Responses is the completed-step-id -> response-payload map a Sequence
// accumulates as it progresses (§3 Sequence, §4.2.1).
type Responses map[string]any

// DynamicRef is the sentinel shape `{lookup: "stepId.jsonPath"}` recognized
// in a step's params (§3 DynamicReference).
type DynamicRef struct {
	Lookup string `json:"lookup"`
}

// asDynamicRef recognizes both the structured sentinel and the legacy
// `:stepId.path` string form (§4.2.1).
func asDynamicRef(v any) (DynamicRef, bool) {
	switch t := v.(type) {
	case DynamicRef:
		return t, true
	case map[string]any:
		if lookup, ok := t["lookup"].(string); ok && len(t) == 1 {
			return DynamicRef{Lookup: lookup}, true
		}
	case string:
		if strings.HasPrefix(t, ":") {
			return DynamicRef{Lookup: strings.TrimPrefix(t, ":")}, true
		}
	}
	return DynamicRef{}, false
}

// ResolveParams resolves every dynamic reference in params against the
// responses map, then layers the result under the raw incoming request
// (request wins on key collision) — §4.2.1's "conductor-supplied statics
// get through unless the next step explicitly overrides".
func ResolveParams(params map[string]any, responses Responses, request map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(params))
	for key, raw := range params {
		ref, isRef := asDynamicRef(raw)
		if !isRef {
			resolved[key] = raw
			continue
		}
		val, err := lookupPath(ref.Lookup, responses)
		if err != nil {
			return nil, fmt.Errorf("sequence: resolving param %q via %q: %w", key, ref.Lookup, err)
		}
		resolved[key] = val
	}

	for key, val := range request {
		resolved[key] = val
	}
	return resolved, nil
}

// lookupPath implements the JSON-pointer-style "stepId.jsonPath" lookup of
// §4.2.1 against the responses map.
func lookupPath(lookup string, responses Responses) (any, error) {
	parts := strings.Split(lookup, ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty lookup path")
	}

	stepID := parts[0]
	cur, ok := responses[stepID]
	if !ok {
		return nil, fmt.Errorf("no completed response for step %q", stepID)
	}

	for _, segment := range parts[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path segment %q: not traversable at %q", segment, stepID)
		}
		val, ok := m[segment]
		if !ok {
			return nil, fmt.Errorf("path segment %q does not exist on step %q response", segment, stepID)
		}
		cur = val
	}
	return cur, nil
}
