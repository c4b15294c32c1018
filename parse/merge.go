package parse

// Merge deep-merges src over dst and returns a new document. When both sides
// hold an object at a key the objects are merged recursively; otherwise the
// value from src replaces the one in dst. Arrays are replaced, never
// concatenated. Neither input is modified.
func Merge(dst, src map[string]any) map[string]any {
	out := cloneMap(dst)
	mergeInto(out, src)
	return out
}

// mergeInto merges src into dst in place. dst must be owned by the caller;
// values taken from src are copied.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		incoming, incomingIsMap := v.(map[string]any)
		existing, existingIsMap := dst[k].(map[string]any)
		if incomingIsMap && existingIsMap {
			mergeInto(existing, incoming)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}
