package mcpserver

import (
	"encoding/json"
	"fmt"
)

// parseProperties reads a JSON object argument. Agents sometimes send the
// object itself instead of a string; both are accepted.
func parseProperties(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var props map[string]any
		if err := json.Unmarshal([]byte(v), &props); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
		return props, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}

// getIndex returns a non-negative index argument, or -1 when absent.
func getIndex(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok && v >= 0 {
		return int(v)
	}
	return -1
}
