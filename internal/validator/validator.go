// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     validator
// Description: Post-parse attribute validation of services and functions
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package validator checks attribute value domains, attribute dependencies,
// mutual exclusion and compile-target constraints before execution.
package validator

import (
	"fmt"
	"sort"
	"strings"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/ast"
)

// TrustModels is the closed set of @trust values
var TrustModels = []string{"hybrid", "centralized", "decentralized", "trustless"}

// Chains is the closed set of @chain values, compared case-insensitively
var Chains = []string{
	"ethereum", "polygon", "bsc", "solana", "bitcoin", "avalanche",
	"arbitrum", "optimism", "base", "near", "eth",
}

// SemanticError is a validation failure naming the file and attribute
type SemanticError struct {
	File      string
	Attribute string
	Message   string
	Line      int
}

func (e *SemanticError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d: semantic error in @%s: %s", file, e.Line, e.Attribute, e.Message)
}

// Code implements mdwerror.Coder
func (e *SemanticError) Code() mdwerror.Code { return mdwerror.CodeSemantic }

// Options configures the validator
type Options struct {
	Logger *mdwlog.Logger
	File   string
}

// Validator checks attribute sets on every service and function
type Validator struct {
	logger *mdwlog.Logger
	file   string
}

// New creates a validator
func New(opts Options) *Validator {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	return &Validator{
		logger: opts.Logger.WithField("component", "dal-validator"),
		file:   opts.File,
	}
}

// Validate validates program with default options
func Validate(program *ast.Program) error {
	return New(Options{File: program.File}).Validate(program)
}

// Validate returns the first SemanticError found in program, or nil
func (v *Validator) Validate(program *ast.Program) error {
	if v.file == "" {
		v.file = program.File
	}
	var err error
	ast.Inspect(program, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch node := n.(type) {
		case *ast.ServiceStatement:
			err = v.validateService(node)
			return false
		case *ast.FunctionStatement:
			err = v.validateFunction(node, nil)
			return false
		}
		return true
	})
	if err != nil {
		v.logger.Warn("Attribute validation failed", mdwlog.Fields{
			"file":  v.file,
			"error": err.Error(),
		})
		return err
	}
	v.logger.Debug("Attribute validation passed", mdwlog.Fields{"file": v.file})
	return nil
}

func (v *Validator) fail(attr string, line int, format string, args ...interface{}) error {
	return &SemanticError{
		File:      v.file,
		Attribute: attr,
		Message:   fmt.Sprintf(format, args...),
		Line:      line,
	}
}

func (v *Validator) validateService(svc *ast.ServiceStatement) error {
	if err := v.validateCommon(svc.Attributes, nil); err != nil {
		return err
	}
	if svc.Attributes.Has("secure") && svc.Attributes.Has("public") {
		return v.fail("public", svc.Pos.Line,
			"service %s cannot be both @secure and @public", svc.Name)
	}
	for _, m := range svc.Methods {
		if err := v.validateFunction(m, svc); err != nil {
			return err
		}
	}
	if attr := svc.Attributes.Get("compile_target"); attr != nil {
		return v.validateTarget(attr, svc.Attributes, svc.Methods)
	}
	return nil
}

func (v *Validator) validateFunction(fn *ast.FunctionStatement, svc *ast.ServiceStatement) error {
	var inherited ast.Attributes
	if svc != nil {
		inherited = svc.Attributes
	}
	if err := v.validateCommon(fn.Attributes, inherited); err != nil {
		return err
	}
	if fn.Attributes.Has("secure") && fn.Attributes.Has("public") {
		return v.fail("public", fn.Pos.Line,
			"function %s cannot be both @secure and @public", fn.Name)
	}
	if attr := fn.Attributes.Get("compile_target"); attr != nil {
		all := append(append(ast.Attributes{}, inherited...), fn.Attributes...)
		return v.validateTarget(attr, all, []*ast.FunctionStatement{fn})
	}
	return nil
}

// validateCommon checks value domains and the @trust -> @chain dependency.
// A method's @trust is satisfied by a @chain on its service.
func (v *Validator) validateCommon(attrs, inherited ast.Attributes) error {
	if trust := attrs.Get("trust"); trust != nil {
		if len(trust.Args) == 0 {
			return v.fail("trust", trust.Pos.Line, "a trust model is required (one of %s)", strings.Join(TrustModels, ", "))
		}
		for _, arg := range trust.Args {
			value, ok := stringArg(arg)
			if !ok || !contains(TrustModels, strings.ToLower(value)) {
				return v.fail("trust", trust.Pos.Line, "invalid trust model %s (expected one of %s)",
					arg.String(), strings.Join(TrustModels, ", "))
			}
		}
		if !attrs.Has("chain") && !inherited.Has("chain") {
			return v.fail("trust", trust.Pos.Line, "@trust requires @chain")
		}
	}

	if chain := attrs.Get("chain"); chain != nil {
		if len(chain.Args) == 0 {
			return v.fail("chain", chain.Pos.Line, "at least one chain is required")
		}
		for _, arg := range chain.Args {
			value, ok := stringArg(arg)
			if !ok || !contains(Chains, strings.ToLower(value)) {
				return v.fail("chain", chain.Pos.Line, "unsupported chain %s (supported: %s)",
					arg.String(), strings.Join(Chains, ", "))
			}
		}
	}
	return nil
}

func (v *Validator) validateTarget(attr *ast.Attribute, attrs ast.Attributes, methods []*ast.FunctionStatement) error {
	line := attr.Pos.Line
	if len(attr.Args) != 1 {
		return v.fail("compile_target", line, "exactly one target is required")
	}
	name, ok := stringArg(attr.Args[0])
	if !ok {
		return v.fail("compile_target", line, "target must be a string")
	}
	target, ok := LookupTarget(name)
	if !ok {
		return v.fail("compile_target", line, "unknown target %q (expected one of %s)",
			name, strings.Join(TargetNames(), ", "))
	}

	var missing []string
	for _, req := range target.RequiredAttributes {
		if !attrs.Has(req) {
			missing = append(missing, "@"+req)
		}
	}
	if len(missing) > 0 {
		return v.fail("compile_target", line, "target %s requires %s", target.Name, strings.Join(missing, ", "))
	}

	forbidden := target.ForbiddenNamespaces()
	for _, m := range methods {
		used := make(map[string]bool)
		for _, call := range ast.NamespaceCalls(m.Body) {
			ns := call.Namespace
			if i := strings.Index(ns, "::"); i >= 0 {
				ns = ns[:i]
			}
			if contains(forbidden, ns) {
				used[ns] = true
			}
		}
		if len(used) > 0 {
			names := make([]string, 0, len(used))
			for ns := range used {
				names = append(names, ns)
			}
			sort.Strings(names)
			return v.fail("compile_target", m.Pos.Line,
				"method %s uses namespace(s) %s forbidden for target %s",
				m.Name, strings.Join(names, ", "), target.Name)
		}
	}
	return nil
}

// stringArg accepts "value" or a bare identifier
func stringArg(e ast.Expression) (string, bool) {
	switch x := e.(type) {
	case *ast.StringLiteral:
		return x.Value, true
	case *ast.Identifier:
		return x.Name, true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
