package compiler

import (
	"strconv"
	"strings"
)

// Fields reads a section's content object. Every accessor falls back when a
// value is missing, empty or of the wrong kind.
type Fields map[string]any

// Str returns the value of key as text, or fallback when it is absent or falsy.
func (f Fields) Str(key, fallback string) string {
	if s := text(f[key]); s != "" {
		return s
	}
	return fallback
}

// Obj returns a nested object.
func (f Fields) Obj(key string) Fields {
	m, _ := f[key].(map[string]any)
	return m
}

// List returns the objects of a list value, limited to max entries. Non-object
// items become empty objects. An absent or empty list yields fallback.
func (f Fields) List(key string, fallback []Fields, limit int) []Fields {
	raw, _ := f[key].([]any)
	if len(raw) == 0 {
		return truncate(fallback, limit)
	}
	out := make([]Fields, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]any)
		out = append(out, m)
	}
	return truncate(out, limit)
}

// Num returns a numeric value, or fallback.
func (f Fields) Num(key string, fallback float64) float64 {
	switch v := f[key].(type) {
	case float64:
		if v != 0 {
			return v
		}
	case int:
		if v != 0 {
			return float64(v)
		}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && n != 0 {
			return n
		}
	}
	return fallback
}

func truncate(in []Fields, limit int) []Fields {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

// text converts a JSON scalar to display text; falsy values yield "".
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}
