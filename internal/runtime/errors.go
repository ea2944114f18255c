// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Runtime errors catchable by try/catch
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"errors"
	"fmt"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/ast"
)

// Error is a runtime failure. Kind is the name DAL code matches in
// catch clauses (DivisionByZero, AccessDenied, ...).
type Error struct {
	Kind    string
	Message string
	Pos     ast.Position
	// Thrown holds the value of a throw expression
	Thrown Value

	code  mdwerror.Code
	cause error
}

func (e *Error) Error() string {
	loc := ""
	if e.Pos.Line > 0 {
		loc = fmt.Sprintf(" at line %d:%d", e.Pos.Line, e.Pos.Column)
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, loc, e.Message)
}

// Code implements mdwerror.Coder
func (e *Error) Code() mdwerror.Code { return e.code }

func (e *Error) Unwrap() error { return e.cause }

// Matches reports whether a catch clause naming typeName handles e.
// An empty name, Error and Exception catch everything.
func (e *Error) Matches(typeName string) bool {
	switch typeName {
	case "", "Error", "Exception", "RuntimeError":
		return true
	}
	return typeName == e.Kind
}

// Value returns what a catch variable is bound to: the thrown value, or a
// map describing the error.
func (e *Error) Value() Value {
	if e.code == mdwerror.CodeThrown && !e.Thrown.IsNull() {
		return e.Thrown
	}
	m := NewMap()
	m.Set("type", String(e.Kind))
	m.Set("message", String(e.Message))
	m.Set("code", String(string(e.code)))
	if e.Pos.Line > 0 {
		m.Set("line", Int(int64(e.Pos.Line)))
	}
	return MapOf(m)
}

// NewError creates a runtime error for code
func NewError(code mdwerror.Code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    code.KindName(),
		Message: fmt.Sprintf(format, args...),
		code:    code,
	}
}

func errorAt(pos ast.Position, code mdwerror.Code, format string, args ...interface{}) *Error {
	e := NewError(code, format, args...)
	e.Pos = pos
	return e
}

// thrown builds the error raised by `throw value`. A map with a "type"
// entry names the kind; anything else is a Thrown error.
func thrown(pos ast.Position, v Value) *Error {
	e := &Error{
		Kind:    mdwerror.CodeThrown.KindName(),
		Message: v.String(),
		Pos:     pos,
		Thrown:  v,
		code:    mdwerror.CodeThrown,
	}
	if m, ok := v.AsMap(); ok {
		if kind, ok := m.Get("type"); ok {
			if s, ok := kind.AsString(); ok && s != "" {
				e.Kind = s
			}
		}
		if msg, ok := m.Get("message"); ok {
			e.Message = msg.String()
		}
	}
	return e
}

// AsError converts any error raised during execution into *Error. Errors
// from subsystems keep their code and message and become the cause.
func AsError(err error, pos ast.Position) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		if re.Pos.Line == 0 {
			re.Pos = pos
		}
		return re
	}
	code := mdwerror.GetCode(err)
	if code == mdwerror.CodeUnknown {
		code = mdwerror.CodeInternal
	}
	return &Error{
		Kind:    code.KindName(),
		Message: err.Error(),
		Pos:     pos,
		code:    code,
		cause:   err,
	}
}

// catchable reports whether DAL code may handle err. Cancellation of the
// surrounding context always propagates.
func catchable(err error) bool {
	var cs *controlSignal
	if errors.As(err, &cs) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
