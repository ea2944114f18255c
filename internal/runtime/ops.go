// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Operator semantics
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"math"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/ast"
)

// binary applies a non-short-circuit operator. Mixed int/float operands
// promote to float; int arithmetic is overflow-checked.
func binary(op string, l, r Value, pos ast.Position) (Value, error) {
	switch op {
	case "==":
		return Bool(l.Equal(r)), nil
	case "!=":
		return Bool(!l.Equal(r)), nil
	case "<", "<=", ">", ">=":
		return compare(op, l, r, pos)
	case "+":
		if l.Kind() == KindString || r.Kind() == KindString {
			return String(l.String() + r.String()), nil
		}
		if lv, ok := l.AsVector(); ok {
			if rv, ok := r.AsVector(); ok {
				return NewVectorValue(append(lv.Items(), rv.Items()...)...), nil
			}
		}
	}

	li, lInt := l.AsInt()
	ri, rInt := r.AsInt()
	if lInt && rInt {
		return intArith(op, li, ri, pos)
	}
	lf, lNum := l.AsNumber()
	rf, rNum := r.AsNumber()
	if lNum && rNum {
		return floatArith(op, lf, rf, pos)
	}
	return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "operator %s not defined for %s and %s",
		op, l.TypeName(), r.TypeName())
}

func intArith(op string, a, b int64, pos ast.Position) (Value, error) {
	switch op {
	case "+":
		c := a + b
		if (a^c)&(b^c) < 0 {
			return Null, errorAt(pos, mdwerror.CodeOverflow, "integer overflow in %d + %d", a, b)
		}
		return Int(c), nil
	case "-":
		c := a - b
		if (a^b)&(a^c) < 0 {
			return Null, errorAt(pos, mdwerror.CodeOverflow, "integer overflow in %d - %d", a, b)
		}
		return Int(c), nil
	case "*":
		if a == 0 || b == 0 {
			return Int(0), nil
		}
		c := a * b
		if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return Null, errorAt(pos, mdwerror.CodeOverflow, "integer overflow in %d * %d", a, b)
		}
		return Int(c), nil
	case "/":
		if b == 0 {
			return Null, errorAt(pos, mdwerror.CodeDivisionByZero, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return Null, errorAt(pos, mdwerror.CodeOverflow, "integer overflow in %d / %d", a, b)
		}
		return Int(a / b), nil
	case "%":
		if b == 0 {
			return Null, errorAt(pos, mdwerror.CodeDivisionByZero, "modulo by zero")
		}
		if b == -1 {
			return Int(0), nil
		}
		return Int(a % b), nil
	}
	return Null, errorAt(pos, mdwerror.CodeUnsupportedOperation, "unknown operator %s", op)
}

func floatArith(op string, a, b float64, pos ast.Position) (Value, error) {
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		if b == 0 {
			return Null, errorAt(pos, mdwerror.CodeDivisionByZero, "division by zero")
		}
		return Float(a / b), nil
	case "%":
		if b == 0 {
			return Null, errorAt(pos, mdwerror.CodeDivisionByZero, "modulo by zero")
		}
		return Float(math.Mod(a, b)), nil
	}
	return Null, errorAt(pos, mdwerror.CodeUnsupportedOperation, "unknown operator %s", op)
}

func compare(op string, l, r Value, pos ast.Position) (Value, error) {
	var c int
	if ls, ok := l.AsString(); ok {
		rs, ok := r.AsString()
		if !ok {
			return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "cannot compare string with %s", r.TypeName())
		}
		switch {
		case ls < rs:
			c = -1
		case ls > rs:
			c = 1
		}
	} else {
		li, lInt := l.AsInt()
		ri, rInt := r.AsInt()
		lf, lNum := l.AsNumber()
		rf, rNum := r.AsNumber()
		switch {
		case lInt && rInt:
			c = cmpInt(li, ri)
		case lNum && rNum:
			c = cmpFloat(lf, rf)
		default:
			return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "cannot compare %s with %s",
				l.TypeName(), r.TypeName())
		}
	}

	switch op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	}
	return Bool(c >= 0), nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func unary(op string, v Value, pos ast.Position) (Value, error) {
	switch op {
	case "!":
		return Bool(!v.Truthy()), nil
	case "-":
		if i, ok := v.AsInt(); ok {
			if i == math.MinInt64 {
				return Null, errorAt(pos, mdwerror.CodeOverflow, "integer overflow negating %d", i)
			}
			return Int(-i), nil
		}
		if f, ok := v.AsFloat(); ok {
			return Float(-f), nil
		}
		return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "cannot negate %s", v.TypeName())
	}
	return Null, errorAt(pos, mdwerror.CodeUnsupportedOperation, "unknown unary operator %s", op)
}
