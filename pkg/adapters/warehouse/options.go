package warehouse

import (
	"fmt"
	"strconv"
)

// StringOption reads the first string value present under keys.
func StringOption(config map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := config[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// RequiredString is StringOption that fails with "<key> is required".
func RequiredString(config map[string]any, keys ...string) (string, error) {
	if s, ok := StringOption(config, keys...); ok {
		return s, nil
	}
	return "", fmt.Errorf("%s is required", keys[0])
}

// IntOption reads an int that may arrive as a JSON number, a Go int or a string.
func IntOption(config map[string]any, key string, fallback int) int {
	switch v := config[key].(type) {
	case float64: // JSON numbers are float64
		return int(v)
	case int:
		if v != 0 {
			return v
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
