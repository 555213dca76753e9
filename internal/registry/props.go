package registry

import (
	"fmt"
	"strconv"
)

// String reads a string property, falling back to def.
func String(props map[string]any, key, def string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Int reads a numeric property. JSON numbers decode as float64, so both
// float and integer values are accepted, as are numeric strings.
func Int(props map[string]any, key string, def int) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool reads a boolean property.
func Bool(props map[string]any, key string, def bool) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// StringList reads a list property made of strings.
func StringList(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	}
	return nil
}
