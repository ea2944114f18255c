// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Builtin functions and methods on vectors, maps and strings
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/ast"
)

func (e *Engine) newBuiltins() map[string]*Function {
	native := func(name string, fn NativeFunc) *Function {
		return &Function{Name: name, Native: fn}
	}
	return map[string]*Function{
		"print": native("print", func(_ context.Context, args []Value) (Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.String()
			}
			e.outMu.Lock()
			defer e.outMu.Unlock()
			_, err := fmt.Fprintln(e.options.Output, strings.Join(parts, " "))
			return Null, err
		}),
		"len": native("len", func(_ context.Context, args []Value) (Value, error) {
			a := NewArgs("len", args)
			if err := a.Exactly(1); err != nil {
				return Null, err
			}
			n, ok := length(args[0])
			if !ok {
				return Null, NewError(mdwerror.CodeTypeMismatch, "len is not defined for %s", args[0].TypeName())
			}
			return Int(int64(n)), nil
		}),
		"type_of": native("type_of", func(_ context.Context, args []Value) (Value, error) {
			if err := NewArgs("type_of", args).Exactly(1); err != nil {
				return Null, err
			}
			return String(args[0].TypeName()), nil
		}),
		"to_string": native("to_string", func(_ context.Context, args []Value) (Value, error) {
			if err := NewArgs("to_string", args).Exactly(1); err != nil {
				return Null, err
			}
			return String(args[0].String()), nil
		}),
		"to_int": native("to_int", func(_ context.Context, args []Value) (Value, error) {
			if err := NewArgs("to_int", args).Exactly(1); err != nil {
				return Null, err
			}
			return toInt(args[0])
		}),
		"to_float": native("to_float", func(_ context.Context, args []Value) (Value, error) {
			if err := NewArgs("to_float", args).Exactly(1); err != nil {
				return Null, err
			}
			return toFloat(args[0])
		}),
		"now": native("now", func(_ context.Context, args []Value) (Value, error) {
			return Int(time.Now().Unix()), nil
		}),
	}
}

func length(v Value) (int, bool) {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return len([]rune(s)), true
	case KindVector:
		vec, _ := v.AsVector()
		return vec.Len(), true
	case KindMap:
		m, _ := v.AsMap()
		return m.Len(), true
	}
	return 0, false
}

func toInt(v Value) (Value, error) {
	switch v.Kind() {
	case KindInt:
		return v, nil
	case KindFloat:
		f, _ := v.AsFloat()
		return Int(int64(f)), nil
	case KindBool:
		if b, _ := v.AsBool(); b {
			return Int(1), nil
		}
		return Int(0), nil
	case KindString:
		s, _ := v.AsString()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Null, NewError(mdwerror.CodeTypeMismatch, "cannot convert %q to int", s)
		}
		return Int(n), nil
	}
	return Null, NewError(mdwerror.CodeTypeMismatch, "cannot convert %s to int", v.TypeName())
}

func toFloat(v Value) (Value, error) {
	if f, ok := v.AsNumber(); ok {
		return Float(f), nil
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Null, NewError(mdwerror.CodeTypeMismatch, "cannot convert %q to float", s)
		}
		return Float(f), nil
	}
	return Null, NewError(mdwerror.CodeTypeMismatch, "cannot convert %s to float", v.TypeName())
}

// callValueMethod implements methods on vectors, maps, strings and agent
// handles
func (e *Engine) callValueMethod(ctx context.Context, fr *frame, recv Value, method string, args []Value, pos ast.Position) (Value, error) {
	a := NewArgs(recv.TypeName()+"."+method, args)
	var (
		v   Value
		err error
	)
	switch recv.Kind() {
	case KindVector:
		vec, _ := recv.AsVector()
		v, err = e.vectorMethod(ctx, fr, vec, method, a, pos)
	case KindMap:
		m, _ := recv.AsMap()
		v, err = mapMethod(m, method, a)
	case KindString:
		s, _ := recv.AsString()
		v, err = stringMethod(s, method, a)
	case KindAgent:
		h, _ := recv.AsAgent()
		v, err = e.agentMethod(ctx, h, method)
	case KindFunction:
		fn, _ := recv.AsFunction()
		if method != "call" {
			err = NewError(mdwerror.CodeFunctionNotFound, "function has no method %s", method)
			break
		}
		return e.callFunction(ctx, fr, fn, nil, args, pos)
	default:
		err = NewError(mdwerror.CodeFunctionNotFound, "%s has no method %s", recv.TypeName(), method)
	}
	if err != nil {
		return Null, AsError(err, pos)
	}
	return v, nil
}

func (e *Engine) vectorMethod(ctx context.Context, fr *frame, vec *Vector, method string, a Args, pos ast.Position) (Value, error) {
	switch method {
	case "len", "length":
		return Int(int64(vec.Len())), nil
	case "is_empty":
		return Bool(vec.Len() == 0), nil
	case "push", "append":
		if err := a.Want(1); err != nil {
			return Null, err
		}
		vec.Append(a.Values...)
		return Int(int64(vec.Len())), nil
	case "pop":
		v, _ := vec.Pop()
		return v, nil
	case "get":
		i, err := a.Int(0)
		if err != nil {
			return Null, err
		}
		v, _ := vec.Get(int(i))
		return v, nil
	case "first":
		v, _ := vec.Get(0)
		return v, nil
	case "last":
		v, _ := vec.Get(vec.Len() - 1)
		return v, nil
	case "contains":
		if err := a.Exactly(1); err != nil {
			return Null, err
		}
		for _, item := range vec.Items() {
			if item.Equal(a.Values[0]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case "join":
		sep, err := a.StringOr(0, ",")
		if err != nil {
			return Null, err
		}
		items := vec.Items()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.String()
		}
		return String(strings.Join(parts, sep)), nil
	case "map", "filter", "for_each":
		if err := a.Exactly(1); err != nil {
			return Null, err
		}
		fn, ok := a.Values[0].AsFunction()
		if !ok {
			return Null, a.mismatch(0, "function")
		}
		var out []Value
		for _, item := range vec.Items() {
			r, err := e.callFunction(ctx, fr, fn, nil, []Value{item}, pos)
			if err != nil {
				return Null, err
			}
			switch method {
			case "map":
				out = append(out, r)
			case "filter":
				if r.Truthy() {
					out = append(out, item)
				}
			}
		}
		if method == "for_each" {
			return Null, nil
		}
		return NewVectorValue(out...), nil
	}
	return Null, NewError(mdwerror.CodeFunctionNotFound, "vector has no method %s", method)
}

func mapMethod(m *Map, method string, a Args) (Value, error) {
	switch method {
	case "len", "length":
		return Int(int64(m.Len())), nil
	case "is_empty":
		return Bool(m.Len() == 0), nil
	case "keys":
		keys := m.Keys()
		out := make([]Value, len(keys))
		for i, k := range keys {
			out[i] = String(k)
		}
		return NewVectorValue(out...), nil
	case "values":
		keys := m.Keys()
		out := make([]Value, 0, len(keys))
		for _, k := range keys {
			v, _ := m.Get(k)
			out = append(out, v)
		}
		return NewVectorValue(out...), nil
	case "has", "contains_key", "contains":
		if err := a.Exactly(1); err != nil {
			return Null, err
		}
		return Bool(m.Has(a.Values[0].String())), nil
	case "get":
		if err := a.Want(1); err != nil {
			return Null, err
		}
		if v, ok := m.Get(a.Values[0].String()); ok {
			return v, nil
		}
		return a.Get(1), nil
	case "insert", "set":
		if err := a.Exactly(2); err != nil {
			return Null, err
		}
		m.Set(a.Values[0].String(), a.Values[1])
		return a.Values[1], nil
	case "remove":
		if err := a.Exactly(1); err != nil {
			return Null, err
		}
		key := a.Values[0].String()
		v, _ := m.Get(key)
		m.Delete(key)
		return v, nil
	}
	return Null, NewError(mdwerror.CodeFunctionNotFound, "map has no method %s", method)
}

func stringMethod(s, method string, a Args) (Value, error) {
	switch method {
	case "len", "length":
		return Int(int64(len([]rune(s)))), nil
	case "is_empty":
		return Bool(s == ""), nil
	case "to_upper", "upper":
		return String(strings.ToUpper(s)), nil
	case "to_lower", "lower":
		return String(strings.ToLower(s)), nil
	case "trim":
		return String(strings.TrimSpace(s)), nil
	case "contains", "starts_with", "ends_with":
		sub, err := a.String(0)
		if err != nil {
			return Null, err
		}
		switch method {
		case "contains":
			return Bool(strings.Contains(s, sub)), nil
		case "starts_with":
			return Bool(strings.HasPrefix(s, sub)), nil
		}
		return Bool(strings.HasSuffix(s, sub)), nil
	case "split":
		sep, err := a.StringOr(0, " ")
		if err != nil {
			return Null, err
		}
		parts := strings.Split(s, sep)
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = String(p)
		}
		return NewVectorValue(out...), nil
	case "replace":
		old, err := a.String(0)
		if err != nil {
			return Null, err
		}
		repl, err := a.String(1)
		if err != nil {
			return Null, err
		}
		return String(strings.ReplaceAll(s, old, repl)), nil
	}
	return Null, NewError(mdwerror.CodeFunctionNotFound, "string has no method %s", method)
}

func (e *Engine) agentMethod(ctx context.Context, h *AgentHandle, method string) (Value, error) {
	switch method {
	case "id":
		return String(h.ID), nil
	case "name":
		return String(h.Name), nil
	case "status":
		a, err := e.agents.Get(h.ID)
		if err != nil {
			return Null, err
		}
		return String(string(a.Status())), nil
	case "wait", "result":
		result, err := e.agents.Wait(ctx, h.ID)
		if err != nil {
			return Null, err
		}
		if v, ok := result.(Value); ok {
			return v, nil
		}
		return FromInterface(result), nil
	}
	return Null, NewError(mdwerror.CodeFunctionNotFound, "agent has no method %s", method)
}
