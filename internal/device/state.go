package device

import "time"

// humanTimeLayout is the human-readable half of last_update.
const humanTimeLayout = "2006-01-02 15:04:05"

// lastUpdateStamp builds the last_update document for a mutation at t.
func lastUpdateStamp(t time.Time) map[string]any {
	return map[string]any{
		"unix":  t.Unix(),
		"human": t.Format(humanTimeLayout),
	}
}

// LastUpdateUnix extracts the unix timestamp from a state document's
// last_update field. Handles both freshly stamped int64 values and
// float64 values that went through a JSON round trip.
func LastUpdateUnix(state map[string]any) (int64, bool) {
	lu, ok := state["last_update"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := lu["unix"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// cloneDoc makes a deep copy of a state document. Nested maps and
// slices are recursively copied so callers can mutate the result freely.
func cloneDoc(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = cloneValue(v)
	}
	return cpy
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneDoc(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = cloneValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// mergeDoc shallow-merges src into dst: new keys are added, existing
// keys overwritten. Nested objects are replaced, not deep-merged.
func mergeDoc(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// intValue coerces JSON-decoded numbers to an int. Floats only convert
// when they are whole, so 1.5 is rejected rather than truncated.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
