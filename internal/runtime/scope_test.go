// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Tests for scopes, values and the namespace registry
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// TestScope_PushPop tests frame nesting and shadowing
func TestScope_PushPop(t *testing.T) {
	globals := NewEnvironment(nil)
	globals.Define("x", Int(1))
	s := NewScope(globals)

	inner := s.Push()
	inner.Define("x", Int(2))
	v, _ := s.Current().Lookup("x")
	assert.Equal(t, Int(2), v)
	assert.Equal(t, 1, s.Depth())

	assert.True(t, s.Current().Assign("x", Int(3)))
	require.NoError(t, s.Pop())
	v, _ = s.Current().Lookup("x")
	assert.Equal(t, Int(1), v, "inner binding shadowed the global")

	err := s.Pop()
	require.Error(t, err)
	assert.Equal(t, mdwerror.CodeStackUnderflow, mdwerror.GetCode(err))
	assert.False(t, globals.Assign("missing", Int(0)))
}

// TestValue_EqualAndTruthy tests value comparison rules
func TestValue_EqualAndTruthy(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2)))
	assert.False(t, Int(2).Equal(String("2")))
	assert.True(t, Null.Equal(Null))
	vec := NewVectorValue(Int(1))
	assert.True(t, vec.Equal(vec))
	assert.False(t, vec.Equal(NewVectorValue(Int(1))), "vectors compare by identity")

	assert.False(t, Null.Truthy())
	assert.False(t, Int(0).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, String("x").Truthy())
}

// TestValue_FromInterface tests conversion of plain Go data
func TestValue_FromInterface(t *testing.T) {
	v := FromInterface(map[string]interface{}{
		"n":    3,
		"list": []interface{}{"a", 1.5},
		"ok":   true,
	})
	m, ok := v.AsMap()
	require.True(t, ok)
	n, _ := m.Get("n")
	assert.Equal(t, Int(3), n)
	list, _ := m.Get("list")
	vec, ok := list.AsVector()
	require.True(t, ok)
	assert.Equal(t, 2, vec.Len())
	assert.Equal(t, map[string]interface{}{"n": int64(3), "list": []interface{}{"a", 1.5}, "ok": true}, v.Interface())
}

// TestZeroValue tests field defaults by declared type
func TestZeroValue(t *testing.T) {
	assert.Equal(t, Int(0), zeroValue("u256"))
	assert.Equal(t, String(""), zeroValue("address"))
	assert.Equal(t, Bool(false), zeroValue("bool"))
	assert.Equal(t, KindMap, zeroValue("map<string, int>").Kind())
	assert.Equal(t, KindVector, zeroValue("vec<int>").Kind())
	assert.True(t, zeroValue("Order").IsNull())
}

// TestRegistry_Call tests namespace dispatch errors
func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	r.Register("util", FuncTable{
		"echo": func(_ context.Context, args []Value) (Value, error) { return args[0], nil },
	})
	assert.Equal(t, []string{"util"}, r.Namespaces())

	v, err := r.Call(context.Background(), "util", "echo", []Value{String("hi")})
	require.NoError(t, err)
	assert.Equal(t, String("hi"), v)

	_, err = r.Call(context.Background(), "util", "nope", nil)
	require.Error(t, err)
	assert.Equal(t, mdwerror.CodeFunctionNotFound, mdwerror.GetCode(err))
	assert.Contains(t, err.Error(), "util::nope")

	_, err = r.Call(context.Background(), "other", "echo", nil)
	assert.Equal(t, mdwerror.CodeFunctionNotFound, mdwerror.GetCode(err))
}

// TestArgs tests argument coercion
func TestArgs(t *testing.T) {
	a := NewArgs("f", []Value{Float(3), String("x"), NewVectorValue(String("a"), String("b"))})

	n, err := a.Int(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = a.Int(1)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "TypeMismatch", rerr.Kind)

	strs, err := a.Strings(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, strs)

	assert.Equal(t, "ArgumentCountMismatch", a.Want(4).(*Error).Kind)
	assert.NoError(t, a.Exactly(3))
	assert.True(t, a.Get(9).IsNull())
}

// TestError_Matches tests catch clause matching
func TestError_Matches(t *testing.T) {
	err := NewError(mdwerror.CodeDivisionByZero, "x")
	assert.True(t, err.Matches(""))
	assert.True(t, err.Matches("Error"))
	assert.True(t, err.Matches("DivisionByZero"))
	assert.False(t, err.Matches("TypeMismatch"))

	wrapped := AsError(errors.New("boom"), err.Pos)
	assert.Equal(t, "Internal", wrapped.Kind)
	assert.False(t, catchable(context.Canceled))
	assert.True(t, catchable(err))
}
