package models

import (
	"fmt"
	"strings"
)

// RawConfig is an untyped bag of variable values from one source: pattern
// defaults, auto-detection, or explicit user input. Values may be strings,
// string lists, or nil. Blank strings and nil count as unset.
type RawConfig map[string]any

// Get returns the trimmed value for key and whether it is set. Lists are
// joined with commas; numbers and booleans are formatted with fmt.
func (r RawConfig) Get(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case *string:
		if t == nil {
			return "", false
		}
		s = *t
	case []string:
		s = joinNonEmpty(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if item != nil {
				items = append(items, fmt.Sprint(item))
			}
		}
		s = joinNonEmpty(items)
	default:
		s = fmt.Sprint(t)
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// First returns the first set value among keys. Canonical names go first,
// aliases after.
func (r RawConfig) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := r.Get(k); ok {
			return v, true
		}
	}
	return "", false
}

// Has reports whether any of keys is set.
func (r RawConfig) Has(keys ...string) bool {
	_, ok := r.First(keys...)
	return ok
}

// MergeRawConfig layers configs in increasing priority. A set value in a later
// layer overrides the same key from earlier layers; unset values never do.
func MergeRawConfig(layers ...RawConfig) RawConfig {
	merged := RawConfig{}
	for _, layer := range layers {
		for k := range layer {
			if v, ok := layer.Get(k); ok {
				merged[k] = v
			}
		}
	}
	return merged
}

// RawConfigFromStrings converts a string map, dropping blank values.
func RawConfigFromStrings(m map[string]string) RawConfig {
	raw := RawConfig{}
	for k, v := range m {
		if strings.TrimSpace(v) != "" {
			raw[k] = v
		}
	}
	return raw
}

func joinNonEmpty(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ",")
}
