// Package jsonutil decodes tool arguments written by language models, which
// do not reliably respect the declared JSON types.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString returns raw as a string whether the model sent a string, a
// number or a boolean. Null and empty input give "".
func FlexibleString(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return string(raw)
}

// FlexibleInt reads an integer sent as a number or a numeric string.
// Null, empty input and "" give fallback.
func FlexibleInt(raw json.RawMessage, fallback int) (int, error) {
	if isAbsent(raw) {
		return fallback, nil
	}
	s := strings.TrimSpace(FlexibleString(raw))
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %s", raw)
	}
	return n, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
