// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Statement execution and function calls
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"strings"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/security"
)

// signal carries non-local control flow out of statements
type signal int

const (
	sigNone signal = iota
	sigReturn
	sigBreak
	sigContinue
)

func (s signal) String() string {
	switch s {
	case sigReturn:
		return "return"
	case sigBreak:
		return "break"
	case sigContinue:
		return "continue"
	}
	return "none"
}

// frame is the state of one call path through one function
type frame struct {
	scope *Scope
	self  *Instance
	fn    *Function
	depth int
}

// controlSignal carries break, continue or return out of an expression,
// such as a match arm. exec turns it back into a signal.
type controlSignal struct {
	sig   signal
	value Value
}

func (c *controlSignal) Error() string { return c.sig.String() + " outside of a statement" }

func (e *Engine) exec(ctx context.Context, fr *frame, stmt ast.Statement) (Value, signal, error) {
	v, sig, err := e.execStatement(ctx, fr, stmt)
	if cs, ok := err.(*controlSignal); ok {
		return cs.value, cs.sig, nil
	}
	return v, sig, err
}

func (e *Engine) execStatement(ctx context.Context, fr *frame, stmt ast.Statement) (Value, signal, error) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		v, err := e.eval(ctx, fr, s.Expr)
		return v, sigNone, err

	case *ast.LetStatement:
		v := Null
		if s.Value != nil {
			var err error
			if v, err = e.eval(ctx, fr, s.Value); err != nil {
				return Null, sigNone, err
			}
		}
		fr.scope.Current().Define(s.Name, v)
		return Null, sigNone, nil

	case *ast.BlockStatement:
		return e.execBlock(ctx, fr, s)

	case *ast.ReturnStatement:
		if s.Value == nil {
			return Null, sigReturn, nil
		}
		v, err := e.eval(ctx, fr, s.Value)
		return v, sigReturn, err

	case *ast.BreakStatement:
		if s.Value == nil {
			return Null, sigBreak, nil
		}
		v, err := e.eval(ctx, fr, s.Value)
		return v, sigBreak, err

	case *ast.ContinueStatement:
		return Null, sigContinue, nil

	case *ast.IfStatement:
		cond, err := e.eval(ctx, fr, s.Condition)
		if err != nil {
			return Null, sigNone, err
		}
		if cond.Truthy() {
			return e.execBlock(ctx, fr, s.Then)
		}
		if s.Else != nil {
			return e.exec(ctx, fr, s.Else)
		}
		return Null, sigNone, nil

	case *ast.WhileStatement:
		return e.execWhile(ctx, fr, s)
	case *ast.ForInStatement:
		return e.execForIn(ctx, fr, s)
	case *ast.LoopStatement:
		return e.execLoop(ctx, fr, s)
	case *ast.TryStatement:
		return e.execTry(ctx, fr, s)

	case *ast.SpawnStatement:
		v, err := e.execSpawn(ctx, fr, s)
		return v, sigNone, err
	case *ast.MsgStatement:
		return Null, sigNone, e.execMsg(ctx, fr, s)
	case *ast.EventStatement:
		return Null, sigNone, e.execEvent(ctx, fr, s)

	case *ast.FunctionStatement, *ast.ServiceStatement, *ast.AgentStatement, *ast.ImportStatement:
		e.declare([]ast.Statement{stmt}, fr.scope.Current())
		return Null, sigNone, nil
	}
	return Null, sigNone, errorAt(stmt.Position(), mdwerror.CodeUnsupportedOperation, "cannot execute %T", stmt)
}

// execBlock runs a block in a fresh frame that is popped on every exit
func (e *Engine) execBlock(ctx context.Context, fr *frame, block *ast.BlockStatement) (v Value, sig signal, err error) {
	fr.scope.Push()
	defer func() {
		if popErr := fr.scope.Pop(); popErr != nil && err == nil {
			err = popErr
		}
	}()
	return e.execStatements(ctx, fr, block.Statements)
}

// execStatements runs statements in the current frame. The value of an
// unterminated trailing expression (or of a trailing if) is the result.
func (e *Engine) execStatements(ctx context.Context, fr *frame, stmts []ast.Statement) (Value, signal, error) {
	var last Value
	for i, stmt := range stmts {
		v, sig, err := e.exec(ctx, fr, stmt)
		if err != nil {
			return Null, sigNone, err
		}
		if sig != sigNone {
			return v, sig, nil
		}
		if i == len(stmts)-1 && producesValue(stmt) {
			last = v
		}
	}
	return last, sigNone, nil
}

func producesValue(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return !s.Terminated
	case *ast.IfStatement, *ast.TryStatement, *ast.BlockStatement:
		return true
	}
	return false
}

func (e *Engine) execWhile(ctx context.Context, fr *frame, s *ast.WhileStatement) (Value, signal, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Null, sigNone, err
		}
		cond, err := e.eval(ctx, fr, s.Condition)
		if err != nil {
			return Null, sigNone, err
		}
		if !cond.Truthy() {
			return Null, sigNone, nil
		}
		v, sig, err := e.execBlock(ctx, fr, s.Body)
		if err != nil {
			return Null, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		}
	}
}

func (e *Engine) execForIn(ctx context.Context, fr *frame, s *ast.ForInStatement) (Value, signal, error) {
	iterable, err := e.eval(ctx, fr, s.Iterable)
	if err != nil {
		return Null, sigNone, err
	}
	items, err := iterate(iterable, s.Pos)
	if err != nil {
		return Null, sigNone, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return Null, sigNone, err
		}
		env := fr.scope.Push()
		env.Define(s.Variable, item)
		v, sig, err := e.execStatements(ctx, fr, s.Body.Statements)
		if popErr := fr.scope.Pop(); popErr != nil && err == nil {
			err = popErr
		}
		if err != nil {
			return Null, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		}
	}
	return Null, sigNone, nil
}

// iterate lists the elements a for loop visits: vector items, map keys in
// insertion order, or the characters of a string
func iterate(v Value, pos ast.Position) ([]Value, error) {
	switch v.Kind() {
	case KindVector:
		vec, _ := v.AsVector()
		return vec.Items(), nil
	case KindMap:
		m, _ := v.AsMap()
		keys := m.Keys()
		out := make([]Value, len(keys))
		for i, k := range keys {
			out[i] = String(k)
		}
		return out, nil
	case KindString:
		s, _ := v.AsString()
		out := make([]Value, 0, len(s))
		for _, r := range s {
			out = append(out, String(string(r)))
		}
		return out, nil
	}
	return nil, errorAt(pos, mdwerror.CodeTypeMismatch, "cannot iterate over %s", v.TypeName())
}

// execLoop runs an unconditional loop under an iteration budget and a
// wall-clock deadline. Exceeding either is LoopTimeout.
func (e *Engine) execLoop(ctx context.Context, fr *frame, s *ast.LoopStatement) (Value, signal, error) {
	deadline := time.Now().Add(e.options.LoopTimeout)
	for i := 0; ; i++ {
		if i >= e.options.MaxLoopIterations {
			return Null, sigNone, errorAt(s.Pos, mdwerror.CodeLoopTimeout,
				"loop exceeded %d iterations", e.options.MaxLoopIterations)
		}
		if time.Now().After(deadline) {
			return Null, sigNone, errorAt(s.Pos, mdwerror.CodeLoopTimeout,
				"loop exceeded %s", e.options.LoopTimeout)
		}
		if err := ctx.Err(); err != nil {
			return Null, sigNone, err
		}
		v, sig, err := e.execBlock(ctx, fr, s.Body)
		if err != nil {
			return Null, sigNone, err
		}
		switch sig {
		case sigBreak:
			return v, sigNone, nil
		case sigReturn:
			return v, sig, nil
		}
	}
}

// execTry runs the body, hands a catchable error to the first matching
// clause and always runs finally. A control signal or error raised by
// finally replaces the outcome of body and catch.
func (e *Engine) execTry(ctx context.Context, fr *frame, s *ast.TryStatement) (Value, signal, error) {
	v, sig, err := e.execBlock(ctx, fr, s.Body)
	if err != nil && catchable(err) {
		rerr := AsError(err, s.Pos)
		for _, clause := range s.Catches {
			if !rerr.Matches(clause.Type) {
				continue
			}
			e.logger.Debug("Error caught", mdwlog.Fields{"kind": rerr.Kind, "line": rerr.Pos.Line})
			v, sig, err = e.execCatch(ctx, fr, clause, rerr)
			break
		}
	}

	if s.Finally != nil {
		fv, fsig, ferr := e.execBlock(ctx, fr, s.Finally)
		if ferr != nil {
			return Null, sigNone, ferr
		}
		if fsig != sigNone {
			return fv, fsig, nil
		}
	}
	return v, sig, err
}

func (e *Engine) execCatch(ctx context.Context, fr *frame, clause *ast.CatchClause, rerr *Error) (v Value, sig signal, err error) {
	env := fr.scope.Push()
	defer func() {
		if popErr := fr.scope.Pop(); popErr != nil && err == nil {
			err = popErr
		}
	}()
	if clause.Variable != "" {
		env.Define(clause.Variable, rerr.Value())
	}
	return e.execStatements(ctx, fr, clause.Body.Statements)
}

// effectiveSecure applies attribute precedence: a function-level @secure
// always applies, a function-level @public overrides the service, and
// otherwise the service's @secure is inherited.
func effectiveSecure(fn, svc ast.Attributes) bool {
	if fn.Has("secure") {
		return true
	}
	if fn.Has("public") {
		return false
	}
	return svc.Has("secure")
}

// advancedSecurity returns the @advanced_security attribute governing a
// method, preferring the function's own
func advancedSecurity(fn, svc ast.Attributes) *ast.Attribute {
	if attr := fn.Get("advanced_security"); attr != nil {
		return attr
	}
	return svc.Get("advanced_security")
}

func attributeMode(attr *ast.Attribute) security.Mode {
	if len(attr.Args) == 0 {
		return ""
	}
	var raw string
	switch a := attr.Args[0].(type) {
	case *ast.StringLiteral:
		raw = a.Value
	case *ast.Identifier:
		raw = a.Name
	}
	mode, err := security.ParseMode(raw)
	if err != nil {
		return ""
	}
	return mode
}

// callFunction runs the method-call protocol: guard and authentication
// for @secure, classification for @advanced_security, the time-lock
// check, then the body in a fresh scope.
func (e *Engine) callFunction(ctx context.Context, caller *frame, fn *Function, self *Instance, args []Value, pos ast.Position) (Value, error) {
	if fn.Native != nil {
		v, err := fn.Native(ctx, args)
		if err != nil {
			return Null, AsError(err, pos)
		}
		return v, nil
	}

	depth := caller.depth + 1
	if depth > e.options.MaxCallDepth {
		return Null, errorAt(pos, mdwerror.CodeStackOverflow, "call depth exceeded %d calling %s",
			e.options.MaxCallDepth, fn.Name)
	}

	var svcAttrs ast.Attributes
	if fn.Service != nil {
		svcAttrs = fn.Service.Attributes
	}
	instanceID := ""
	if self != nil {
		instanceID = self.ID
	}

	if effectiveSecure(fn.Attributes, svcAttrs) {
		token, err := e.checker.Acquire(instanceID, fn.Name)
		if err != nil {
			return Null, AsError(err, pos)
		}
		defer token.Release()
	}

	if len(args) != len(fn.Params) {
		return Null, errorAt(pos, mdwerror.CodeArgumentCount, "%s expects %d argument(s), got %d",
			fn.Name, len(fn.Params), len(args))
	}

	if attr := advancedSecurity(fn.Attributes, svcAttrs); attr != nil && fn.Body != nil {
		body := strings.Join(ast.Words(fn.Body), " ")
		if _, err := e.classifier.Check(fn.Name, body, attributeMode(attr)); err != nil {
			return Null, AsError(err, pos)
		}
	}

	if e.timelocks != nil {
		if err := e.timelocks.CheckLock(fn.Name); err != nil {
			return Null, AsError(err, pos)
		}
	}

	base := fn.Closure
	if base == nil {
		base = e.globals
	}
	callee := &frame{scope: NewScope(base), self: self, fn: fn, depth: depth}
	env := callee.scope.Push()
	if self != nil {
		env.Define("self", InstanceOf(self))
	}
	for i, p := range fn.Params {
		env.Define(p.Name, args[i])
	}

	v, sig, err := e.execStatements(ctx, callee, fn.Body.Statements)
	if popErr := callee.scope.Pop(); popErr != nil && err == nil {
		err = popErr
	}
	if err != nil {
		return Null, err
	}
	if sig == sigBreak || sig == sigContinue {
		return Null, errorAt(pos, mdwerror.CodeUnsupportedOperation, "%s outside of a loop in %s", sig, fn.Name)
	}
	return v, nil
}

// callMethod resolves a method on an instance's service and calls it
func (e *Engine) callMethod(ctx context.Context, fr *frame, inst *Instance, name string, args []Value, pos ast.Position) (Value, error) {
	decl := inst.Service.Method(name)
	if decl == nil {
		return Null, errorAt(pos, mdwerror.CodeFunctionNotFound, "service %s has no method %s", inst.Type, name)
	}
	return e.callFunction(ctx, fr, newFunction(decl, e.globals, inst.Service), inst, args, pos)
}
