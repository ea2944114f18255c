// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Argument helpers for namespace handlers and builtins
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// Args wraps handler arguments with typed accessors. Every accessor names
// the function in its error so DAL code sees which call was wrong.
type Args struct {
	Function string
	Values   []Value
}

// NewArgs wraps values passed to function
func NewArgs(function string, values []Value) Args {
	return Args{Function: function, Values: values}
}

func (a Args) Len() int { return len(a.Values) }

// Want fails unless at least min arguments were passed
func (a Args) Want(min int) error {
	if len(a.Values) < min {
		return NewError(mdwerror.CodeArgumentCount, "%s expects at least %d argument(s), got %d",
			a.Function, min, len(a.Values))
	}
	return nil
}

// Exactly fails unless n arguments were passed
func (a Args) Exactly(n int) error {
	if len(a.Values) != n {
		return NewError(mdwerror.CodeArgumentCount, "%s expects %d argument(s), got %d",
			a.Function, n, len(a.Values))
	}
	return nil
}

// Get returns argument i or Null when absent
func (a Args) Get(i int) Value {
	if i < 0 || i >= len(a.Values) {
		return Null
	}
	return a.Values[i]
}

func (a Args) mismatch(i int, want string) error {
	return NewError(mdwerror.CodeTypeMismatch, "%s argument %d must be %s, got %s",
		a.Function, i+1, want, a.Get(i).TypeName())
}

func (a Args) String(i int) (string, error) {
	if err := a.Want(i + 1); err != nil {
		return "", err
	}
	s, ok := a.Values[i].AsString()
	if !ok {
		return "", a.mismatch(i, "string")
	}
	return s, nil
}

// StringOr returns argument i as a string, or def when absent
func (a Args) StringOr(i int, def string) (string, error) {
	if i >= len(a.Values) {
		return def, nil
	}
	return a.String(i)
}

func (a Args) Int(i int) (int64, error) {
	if err := a.Want(i + 1); err != nil {
		return 0, err
	}
	n, ok := a.Values[i].AsInt()
	if !ok {
		if f, isFloat := a.Values[i].AsFloat(); isFloat && f == float64(int64(f)) {
			return int64(f), nil
		}
		return 0, a.mismatch(i, "int")
	}
	return n, nil
}

// IntOr returns argument i as an int, or def when absent
func (a Args) IntOr(i int, def int64) (int64, error) {
	if i >= len(a.Values) {
		return def, nil
	}
	return a.Int(i)
}

func (a Args) Number(i int) (float64, error) {
	if err := a.Want(i + 1); err != nil {
		return 0, err
	}
	f, ok := a.Values[i].AsNumber()
	if !ok {
		return 0, a.mismatch(i, "number")
	}
	return f, nil
}

func (a Args) Map(i int) (*Map, error) {
	if err := a.Want(i + 1); err != nil {
		return nil, err
	}
	m, ok := a.Values[i].AsMap()
	if !ok {
		return nil, a.mismatch(i, "map")
	}
	return m, nil
}

func (a Args) Vector(i int) (*Vector, error) {
	if err := a.Want(i + 1); err != nil {
		return nil, err
	}
	v, ok := a.Values[i].AsVector()
	if !ok {
		return nil, a.mismatch(i, "vector")
	}
	return v, nil
}

// Strings returns argument i as a list of strings. A single string is
// accepted as a one-element list.
func (a Args) Strings(i int) ([]string, error) {
	if err := a.Want(i + 1); err != nil {
		return nil, err
	}
	if s, ok := a.Values[i].AsString(); ok {
		return []string{s}, nil
	}
	vec, ok := a.Values[i].AsVector()
	if !ok {
		return nil, a.mismatch(i, "vector of strings")
	}
	items := vec.Items()
	out := make([]string, len(items))
	for j, item := range items {
		out[j] = item.String()
	}
	return out, nil
}
