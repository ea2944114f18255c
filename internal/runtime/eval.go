// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Expression evaluation
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"errors"
	"strings"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/validator"
)

func (e *Engine) eval(ctx context.Context, fr *frame, expr ast.Expression) (Value, error) {
	switch x := expr.(type) {
	case *ast.IntegerLiteral:
		return Int(x.Value), nil
	case *ast.FloatLiteral:
		return Float(x.Value), nil
	case *ast.StringLiteral:
		return String(x.Value), nil
	case *ast.BoolLiteral:
		return Bool(x.Value), nil
	case *ast.NullLiteral:
		return Null, nil

	case *ast.Identifier:
		return e.evalIdentifier(fr, x)

	case *ast.VectorLiteral:
		items, err := e.evalArgs(ctx, fr, x.Elements)
		if err != nil {
			return Null, err
		}
		return NewVectorValue(items...), nil

	case *ast.ObjectLiteral:
		m, err := e.evalObject(ctx, fr, x)
		if err != nil {
			return Null, err
		}
		return MapOf(m), nil

	case *ast.UnaryExpression:
		v, err := e.eval(ctx, fr, x.Operand)
		if err != nil {
			return Null, err
		}
		return unary(x.Operator, v, x.Pos)

	case *ast.BinaryExpression:
		return e.evalBinary(ctx, fr, x)

	case *ast.RangeExpression:
		return e.evalRange(ctx, fr, x)

	case *ast.AssignExpression:
		return e.evalAssign(ctx, fr, x)

	case *ast.IndexAssignExpression:
		return e.evalIndexAssign(ctx, fr, x)

	case *ast.CallExpression:
		return e.evalCall(ctx, fr, x)

	case *ast.NamespaceCallExpression:
		return e.evalNamespaceCall(ctx, fr, x)

	case *ast.MethodCallExpression:
		obj, err := e.eval(ctx, fr, x.Object)
		if err != nil {
			return Null, err
		}
		args, err := e.evalArgs(ctx, fr, x.Args)
		if err != nil {
			return Null, err
		}
		if inst, ok := obj.AsInstance(); ok {
			return e.callMethod(ctx, fr, inst, x.Method, args, x.Pos)
		}
		return e.callValueMethod(ctx, fr, obj, x.Method, args, x.Pos)

	case *ast.FieldExpression:
		obj, err := e.eval(ctx, fr, x.Object)
		if err != nil {
			return Null, err
		}
		return field(obj, x.Field, x.Pos)

	case *ast.IndexExpression:
		obj, err := e.eval(ctx, fr, x.Object)
		if err != nil {
			return Null, err
		}
		idx, err := e.eval(ctx, fr, x.Index)
		if err != nil {
			return Null, err
		}
		return index(obj, idx, x.Pos)

	case *ast.ClosureExpression:
		return FunctionOf(&Function{
			Name:    "closure",
			Params:  []ast.Param{{Name: x.Param}},
			Body:    x.Body,
			Closure: fr.scope.Current(),
		}), nil

	case *ast.SpawnExpression:
		return e.evalSpawn(ctx, fr, x)

	case *ast.AwaitExpression:
		return e.evalAwait(ctx, fr, x)

	case *ast.ThrowExpression:
		v, err := e.eval(ctx, fr, x.Value)
		if err != nil {
			return Null, err
		}
		return Null, thrown(x.Pos, v)

	case *ast.MatchExpression:
		return e.evalMatch(ctx, fr, x)
	}
	return Null, errorAt(expr.Position(), mdwerror.CodeUnsupportedOperation, "cannot evaluate %T", expr)
}

func (e *Engine) evalArgs(ctx context.Context, fr *frame, exprs []ast.Expression) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, expr := range exprs {
		v, err := e.eval(ctx, fr, expr)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Engine) evalObject(ctx context.Context, fr *frame, obj *ast.ObjectLiteral) (*Map, error) {
	m := NewMap()
	for _, entry := range obj.Entries {
		key := entry.Key
		if entry.KeyExpr != nil {
			k, err := e.eval(ctx, fr, entry.KeyExpr)
			if err != nil {
				return nil, err
			}
			key = k.String()
		}
		v, err := e.eval(ctx, fr, entry.Value)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	return m, nil
}

// evalIdentifier resolves a variable, then a field of self, then a builtin
func (e *Engine) evalIdentifier(fr *frame, id *ast.Identifier) (Value, error) {
	env := fr.scope.Current()
	if v, ok := env.Lookup(id.Name); ok {
		return v, nil
	}
	if self, ok := selfOf(env); ok {
		if v, ok := self.Field(id.Name); ok {
			return v, nil
		}
	}
	if b, ok := e.builtins[id.Name]; ok {
		return FunctionOf(b), nil
	}
	return Null, errorAt(id.Pos, mdwerror.CodeVariableNotFound, "variable %s not found", id.Name)
}

func selfOf(env *Environment) (*Instance, bool) {
	v, ok := env.Lookup("self")
	if !ok {
		return nil, false
	}
	return v.AsInstance()
}

func (e *Engine) evalBinary(ctx context.Context, fr *frame, x *ast.BinaryExpression) (Value, error) {
	left, err := e.eval(ctx, fr, x.Left)
	if err != nil {
		return Null, err
	}
	switch x.Operator {
	case "&&":
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := e.eval(ctx, fr, x.Right)
		if err != nil {
			return Null, err
		}
		return Bool(right.Truthy()), nil
	case "||":
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := e.eval(ctx, fr, x.Right)
		if err != nil {
			return Null, err
		}
		return Bool(right.Truthy()), nil
	}
	right, err := e.eval(ctx, fr, x.Right)
	if err != nil {
		return Null, err
	}
	return binary(x.Operator, left, right, x.Pos)
}

// evalRange builds the end-exclusive vector start..end
func (e *Engine) evalRange(ctx context.Context, fr *frame, x *ast.RangeExpression) (Value, error) {
	start, err := e.eval(ctx, fr, x.Start)
	if err != nil {
		return Null, err
	}
	end, err := e.eval(ctx, fr, x.End)
	if err != nil {
		return Null, err
	}
	lo, ok1 := start.AsInt()
	hi, ok2 := end.AsInt()
	if !ok1 || !ok2 {
		return Null, errorAt(x.Pos, mdwerror.CodeTypeMismatch, "range bounds must be int, got %s..%s",
			start.TypeName(), end.TypeName())
	}
	if lo < hi && uint64(hi-lo) > uint64(e.options.MaxLoopIterations) {
		return Null, errorAt(x.Pos, mdwerror.CodeUnsupportedOperation, "range %d..%d is longer than %d",
			lo, hi, e.options.MaxLoopIterations)
	}
	items := make([]Value, 0, max(hi-lo, 0))
	for i := lo; i < hi; i++ {
		items = append(items, Int(i))
	}
	return NewVectorValue(items...), nil
}

func (e *Engine) evalAssign(ctx context.Context, fr *frame, x *ast.AssignExpression) (Value, error) {
	ctx, unlock, err := lockOwner(ctx, fieldOwner(fr, x.Target))
	if err != nil {
		return Null, err
	}
	defer unlock()

	v, err := e.eval(ctx, fr, x.Value)
	if err != nil {
		return Null, err
	}

	switch target := x.Target.(type) {
	case *ast.Identifier:
		env := fr.scope.Current()
		if env.Assign(target.Name, v) {
			return v, nil
		}
		if self, ok := selfOf(env); ok && self.HasField(target.Name) {
			self.SetField(target.Name, v)
			return v, nil
		}
		return Null, errorAt(target.Pos, mdwerror.CodeVariableNotFound, "assignment to undeclared variable %s", target.Name)

	case *ast.FieldExpression:
		obj, err := e.eval(ctx, fr, target.Object)
		if err != nil {
			return Null, err
		}
		switch {
		case obj.Kind() == KindInstance:
			inst, _ := obj.AsInstance()
			inst.SetField(target.Field, v)
		case obj.Kind() == KindMap:
			m, _ := obj.AsMap()
			m.Set(target.Field, v)
		default:
			return Null, errorAt(target.Pos, mdwerror.CodeTypeMismatch, "cannot set field %s on %s",
				target.Field, obj.TypeName())
		}
		return v, nil
	}
	return Null, errorAt(x.Pos, mdwerror.CodeUnsupportedOperation, "invalid assignment target")
}

func (e *Engine) evalIndexAssign(ctx context.Context, fr *frame, x *ast.IndexAssignExpression) (Value, error) {
	ctx, unlock, err := lockOwner(ctx, fieldOwner(fr, x.Object))
	if err != nil {
		return Null, err
	}
	defer unlock()

	obj, err := e.eval(ctx, fr, x.Object)
	if err != nil {
		return Null, err
	}
	idx, err := e.eval(ctx, fr, x.Index)
	if err != nil {
		return Null, err
	}
	v, err := e.eval(ctx, fr, x.Value)
	if err != nil {
		return Null, err
	}

	switch obj.Kind() {
	case KindMap:
		m, _ := obj.AsMap()
		m.Set(idx.String(), v)
	case KindVector:
		vec, _ := obj.AsVector()
		i, ok := idx.AsInt()
		if !ok {
			return Null, errorAt(x.Pos, mdwerror.CodeTypeMismatch, "vector index must be int, got %s", idx.TypeName())
		}
		if !vec.Set(int(i), v) {
			return Null, errorAt(x.Pos, mdwerror.CodeIndexOutOfBounds, "index %d out of bounds (len %d)", i, vec.Len())
		}
	case KindInstance:
		inst, _ := obj.AsInstance()
		inst.SetField(idx.String(), v)
	default:
		return Null, errorAt(x.Pos, mdwerror.CodeTypeMismatch, "cannot index-assign into %s", obj.TypeName())
	}
	return v, nil
}

func (e *Engine) evalCall(ctx context.Context, fr *frame, x *ast.CallExpression) (Value, error) {
	callee, err := e.eval(ctx, fr, x.Callee)
	if err != nil {
		var re *Error
		if id, ok := x.Callee.(*ast.Identifier); ok && errors.As(err, &re) && re.code == mdwerror.CodeVariableNotFound {
			return Null, errorAt(x.Pos, mdwerror.CodeFunctionNotFound, "function %s not found", id.Name)
		}
		return Null, err
	}
	fn, ok := callee.AsFunction()
	if !ok {
		return Null, errorAt(x.Pos, mdwerror.CodeTypeMismatch, "%s is not callable", callee.TypeName())
	}
	args, err := e.evalArgs(ctx, fr, x.Args)
	if err != nil {
		return Null, err
	}
	var self *Instance
	if fn.Service != nil {
		self, _ = selfOf(fr.scope.Current())
	}
	return e.callFunction(ctx, fr, fn, self, args, x.Pos)
}

// evalNamespaceCall handles Type::new and service::new, then routes to
// the registry. A call into a namespace forbidden by the compile target of
// the running function is UnauthorizedNamespaceCall.
func (e *Engine) evalNamespaceCall(ctx context.Context, fr *frame, x *ast.NamespaceCallExpression) (Value, error) {
	args, err := e.evalArgs(ctx, fr, x.Args)
	if err != nil {
		return Null, err
	}

	if x.Function == "new" {
		if _, ok := e.service(x.Namespace); ok {
			inst, err := e.instantiate(ctx, fr, x.Namespace, args, x.Pos)
			if err != nil {
				return Null, err
			}
			return InstanceOf(inst), nil
		}
		if x.Namespace == "service" {
			a := NewArgs("service::new", args)
			name, err := a.String(0)
			if err != nil {
				return Null, AsError(err, x.Pos)
			}
			inst, err := e.instantiate(ctx, fr, name, args[1:], x.Pos)
			if err != nil {
				return Null, err
			}
			return InstanceOf(inst), nil
		}
	}

	if err := e.checkTarget(fr, x); err != nil {
		return Null, err
	}

	v, err := e.namespaces.Call(ctx, x.Namespace, x.Function, args)
	if err != nil {
		e.logger.Debug("Namespace call failed", mdwlog.Fields{"call": x.Qualified(), "error": err.Error()})
		return Null, AsError(err, x.Pos)
	}
	return v, nil
}

func (e *Engine) checkTarget(fr *frame, x *ast.NamespaceCallExpression) error {
	if fr.fn == nil {
		return nil
	}
	attr := fr.fn.Attributes.Get("compile_target")
	if attr == nil && fr.fn.Service != nil {
		attr = fr.fn.Service.Attributes.Get("compile_target")
	}
	if attr == nil || len(attr.Args) != 1 {
		return nil
	}
	lit, ok := attr.Args[0].(*ast.StringLiteral)
	if !ok {
		return nil
	}
	target, ok := validator.LookupTarget(lit.Value)
	if !ok {
		return nil
	}
	ns := x.Namespace
	if i := strings.Index(ns, "::"); i >= 0 {
		ns = ns[:i]
	}
	for _, forbidden := range target.ForbiddenNamespaces() {
		if ns == forbidden {
			return errorAt(x.Pos, mdwerror.CodeUnauthorizedNamespace, "%s is forbidden for target %s",
				x.Qualified(), target.Name)
		}
	}
	return nil
}

// field reads obj.name
func field(obj Value, name string, pos ast.Position) (Value, error) {
	switch obj.Kind() {
	case KindInstance:
		inst, _ := obj.AsInstance()
		if v, ok := inst.Field(name); ok {
			return v, nil
		}
		return Null, errorAt(pos, mdwerror.CodeVariableNotFound, "service %s has no field %s", inst.Type, name)
	case KindMap:
		m, _ := obj.AsMap()
		v, _ := m.Get(name)
		return v, nil
	case KindAgent:
		a, _ := obj.AsAgent()
		switch name {
		case "id":
			return String(a.ID), nil
		case "name":
			return String(a.Name), nil
		case "type":
			return String(a.Type), nil
		}
	}
	return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "%s has no field %s", obj.TypeName(), name)
}

// index reads obj[idx]. A missing map key yields null.
func index(obj, idx Value, pos ast.Position) (Value, error) {
	switch obj.Kind() {
	case KindMap:
		m, _ := obj.AsMap()
		v, _ := m.Get(idx.String())
		return v, nil
	case KindVector:
		vec, _ := obj.AsVector()
		i, ok := idx.AsInt()
		if !ok {
			return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "vector index must be int, got %s", idx.TypeName())
		}
		v, ok := vec.Get(int(i))
		if !ok {
			return Null, errorAt(pos, mdwerror.CodeIndexOutOfBounds, "index %d out of bounds (len %d)", i, vec.Len())
		}
		return v, nil
	case KindString:
		s, _ := obj.AsString()
		i, ok := idx.AsInt()
		if !ok {
			return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "string index must be int, got %s", idx.TypeName())
		}
		runes := []rune(s)
		if i < 0 || int(i) >= len(runes) {
			return Null, errorAt(pos, mdwerror.CodeIndexOutOfBounds, "index %d out of bounds (len %d)", i, len(runes))
		}
		return String(string(runes[i])), nil
	case KindInstance:
		inst, _ := obj.AsInstance()
		v, _ := inst.Field(idx.String())
		return v, nil
	}
	return Null, errorAt(pos, mdwerror.CodeTypeMismatch, "cannot index %s", obj.TypeName())
}

// evalMatch runs the first arm whose pattern matches the subject
func (e *Engine) evalMatch(ctx context.Context, fr *frame, x *ast.MatchExpression) (Value, error) {
	subject, err := e.eval(ctx, fr, x.Subject)
	if err != nil {
		return Null, err
	}
	for _, arm := range x.Arms {
		matched, binding, err := e.matches(ctx, fr, arm.Pattern, subject)
		if err != nil {
			return Null, err
		}
		if !matched {
			continue
		}
		env := fr.scope.Push()
		if binding != "" {
			env.Define(binding, subject)
		}
		v, sig, err := e.execStatements(ctx, fr, arm.Body.Statements)
		if popErr := fr.scope.Pop(); popErr != nil && err == nil {
			err = popErr
		}
		if err != nil {
			return Null, err
		}
		if sig != sigNone {
			return v, &controlSignal{sig: sig, value: v}
		}
		return v, nil
	}
	return Null, nil
}

func (e *Engine) matches(ctx context.Context, fr *frame, p ast.Pattern, subject Value) (bool, string, error) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return true, "", nil
	case *ast.BindingPattern:
		return true, pat.Name, nil
	case *ast.LiteralPattern:
		v, err := e.eval(ctx, fr, pat.Value)
		if err != nil {
			return false, "", err
		}
		return subject.Equal(v), "", nil
	case *ast.RangePattern:
		lo, err := e.eval(ctx, fr, pat.Start)
		if err != nil {
			return false, "", err
		}
		hi, err := e.eval(ctx, fr, pat.End)
		if err != nil {
			return false, "", err
		}
		n, ok := subject.AsNumber()
		if !ok {
			return false, "", nil
		}
		l, ok1 := lo.AsNumber()
		h, ok2 := hi.AsNumber()
		if !ok1 || !ok2 {
			return false, "", errorAt(pat.Pos, mdwerror.CodeTypeMismatch, "range pattern bounds must be numbers")
		}
		return n >= l && n < h, "", nil
	}
	return false, "", nil
}
