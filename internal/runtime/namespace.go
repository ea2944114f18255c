// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Namespace handler registry for ns::fn dispatch
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"errors"
	"sort"
	"sync"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// Handler implements the functions of one namespace
type Handler interface {
	Call(ctx context.Context, function string, args []Value) (Value, error)
}

// FuncTable is a Handler backed by a map of native functions
type FuncTable map[string]NativeFunc

// Call dispatches function or fails with FunctionNotFound
func (t FuncTable) Call(ctx context.Context, function string, args []Value) (Value, error) {
	fn, ok := t[function]
	if !ok {
		return Null, NewError(mdwerror.CodeFunctionNotFound, "function %s not found", function)
	}
	return fn(ctx, args)
}

// Functions returns the sorted function names
func (t FuncTable) Functions() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry maps namespace names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs or replaces the handler of a namespace
func (r *Registry) Register(namespace string, h Handler) {
	r.mu.Lock()
	r.handlers[namespace] = h
	r.mu.Unlock()
}

// Lookup returns the handler of a namespace
func (r *Registry) Lookup(namespace string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[namespace]
	return h, ok
}

// Namespaces returns the registered namespace names, sorted
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call routes namespace::function to its handler. A missing namespace or
// function is FunctionNotFound.
func (r *Registry) Call(ctx context.Context, namespace, function string, args []Value) (Value, error) {
	h, ok := r.Lookup(namespace)
	if !ok {
		return Null, NewError(mdwerror.CodeFunctionNotFound, "namespace %s is not registered (calling %s::%s)",
			namespace, namespace, function)
	}
	v, err := h.Call(ctx, function, args)
	if err != nil {
		var re *Error
		if errors.As(err, &re) && re.code == mdwerror.CodeFunctionNotFound && re.Message == "function "+function+" not found" {
			re.Message = "function " + namespace + "::" + function + " not found"
		}
		return Null, err
	}
	return v, nil
}

type ctxKey int

const (
	agentIDKey ctxKey = iota
	callPathKey
)

// WithAgentID records the agent a call path runs in
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentIDKey, id)
}

// AgentIDFrom returns the agent a call path runs in, if any
func AgentIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(agentIDKey).(string)
	return id, ok && id != ""
}
