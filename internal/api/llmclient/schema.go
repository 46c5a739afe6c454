package llmclient

// EnforceNoAdditionalProperties returns a deep copy of schema in which every
// object-typed node carries "additionalProperties": false. Strict providers
// reject schemas that leave it open; guided decoders drift without it. The walk
// covers properties, items, $defs/definitions and the anyOf/allOf/oneOf
// combinators.
func EnforceNoAdditionalProperties(schema map[string]any) map[string]any {
	copied := deepCopyMap(schema)
	enforce(copied)
	return copied
}

func enforce(node map[string]any) {
	if t, ok := node["type"].(string); ok && t == "object" {
		node["additionalProperties"] = false
	}
	for _, key := range []string{"properties", "$defs", "definitions"} {
		if children, ok := node[key].(map[string]any); ok {
			for _, child := range children {
				if m, ok := child.(map[string]any); ok {
					enforce(m)
				}
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		enforce(items)
	}
	for _, key := range []string{"anyOf", "allOf", "oneOf"} {
		if variants, ok := node[key].([]any); ok {
			for _, v := range variants {
				if m, ok := v.(map[string]any); ok {
					enforce(m)
				}
			}
		}
	}
}

func deepCopyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
