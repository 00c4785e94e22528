package authclient

import "strings"

// Extract walks a dot-separated key path through nested maps. The second
// return is false when any segment is missing or the current value is not a
// map; absence is not an error condition. An empty path yields v itself.
func Extract(v any, path string) (any, bool) {
	if path == "" {
		return v, v != nil
	}

	current := v
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// ExtractString is Extract narrowed to string values.
func ExtractString(v any, path string) (string, bool) {
	raw, ok := Extract(v, path)
	if !ok {
		return "", false
	}

	s, ok := raw.(string)
	return s, ok
}
