// Package normalization folds free-form configuration strings onto closed
// string enums.
package normalization

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Enum maps spellings (canonical names and aliases) onto values of T.
// Lookups are case-insensitive and ignore surrounding whitespace.
type Enum[T ~string] struct {
	name     string
	values   map[string]T
	fallback T
	keys     []string
}

// NewEnum builds an Enum named name. Unknown input resolves to fallback.
func NewEnum[T ~string](name string, spellings map[string]T, fallback T) *Enum[T] {
	e := &Enum[T]{
		name:     name,
		values:   make(map[string]T, len(spellings)),
		fallback: fallback,
	}
	for k, v := range spellings {
		key := fold(k)
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	slices.Sort(e.keys)
	return e
}

// Name is the human-readable enum name used in errors.
func (e *Enum[T]) Name() string { return e.name }

// Fallback is the value unknown input resolves to.
func (e *Enum[T]) Fallback() T { return e.fallback }

// Normalize resolves raw, returning the fallback when raw is unknown.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[fold(raw)]; ok {
		return v
	}
	return e.fallback
}

// Parse resolves raw or returns a validation error listing the accepted spellings.
func (e *Enum[T]) Parse(raw string) (T, error) {
	if v, ok := e.values[fold(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, errors.ValidationError("invalid "+e.name).
		WithContext("value", raw).
		WithContext("valid", strings.Join(e.keys, ", ")).
		Build()
}

// Valid reports whether v is one of the enum's values.
func (e *Enum[T]) Valid(v T) bool {
	for _, known := range e.values {
		if known == v {
			return true
		}
	}
	return false
}

// Spellings returns every accepted spelling, sorted.
func (e *Enum[T]) Spellings() []string {
	return slices.Clone(e.keys)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
