// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     guard
// Description: Reentrancy tracking and caller authentication for @secure calls
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package guard implements the call-path tracker that keeps a @secure method
// from being re-entered while it is active, plus the caller identity check
// that runs after a successful enter.
package guard

import (
	"fmt"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// ZeroAddress is never accepted as an authenticated caller
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// CallKey builds the key tracked for a call: "instance::method" for a
// service method, the bare method name otherwise.
func CallKey(instanceID, method string) string {
	if instanceID == "" {
		return method
	}
	return instanceID + "::" + method
}

// IsAuthenticated reports whether caller identifies a real principal
func IsAuthenticated(caller string) bool {
	return caller != "" && caller != ZeroAddress
}

// ReentrancyError is returned when a key is entered while already active
type ReentrancyError struct {
	CallKey   string
	CallStack []string
}

func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("reentrancy detected: %s is already active (call stack: %s)",
		e.CallKey, strings.Join(e.CallStack, " -> "))
}

// Code implements mdwerror.Coder
func (e *ReentrancyError) Code() mdwerror.Code { return mdwerror.CodeReentrancy }

// AccessDeniedError is returned when the current caller is not authenticated
type AccessDeniedError struct {
	CallKey  string
	Method   string
	Instance string
	Caller   string
}

func (e *AccessDeniedError) Error() string {
	caller := e.Caller
	if caller == "" {
		caller = "<none>"
	}
	return fmt.Sprintf("access denied: %s requires an authenticated caller (caller: %s)", e.CallKey, caller)
}

// Code implements mdwerror.Coder
func (e *AccessDeniedError) Code() mdwerror.Code { return mdwerror.CodeAccessDenied }

// Guard tracks the active keys and the call stack of one instance.
// Safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	active mapset.Set
	stack  []string
}

// New creates an empty guard
func New() *Guard {
	return &Guard{active: mapset.NewThreadUnsafeSet()}
}

// Token is the scoped acquisition returned by Enter
type Token struct {
	guard *Guard
	key   string
	once  sync.Once
}

// Key returns the call key held by the token
func (t *Token) Key() string { return t.key }

// Release removes the key from the active set and pops it from the call
// stack. Calling it more than once has no further effect.
func (t *Token) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.guard.exit(t.key)
	})
}

// Enter marks key active. It fails with *ReentrancyError when key is
// already active.
func (g *Guard) Enter(key string) (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active.Contains(key) {
		snapshot := append(make([]string, 0, len(g.stack)+1), g.stack...)
		snapshot = append(snapshot, key)
		return nil, &ReentrancyError{CallKey: key, CallStack: snapshot}
	}
	g.active.Add(key)
	g.stack = append(g.stack, key)
	return &Token{guard: g, key: key}, nil
}

func (g *Guard) exit(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active.Remove(key)
	// interleaved agents may release out of order
	for i := len(g.stack) - 1; i >= 0; i-- {
		if g.stack[i] == key {
			g.stack = append(g.stack[:i], g.stack[i+1:]...)
			break
		}
	}
}

// IsActive reports whether key is currently entered
func (g *Guard) IsActive(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active.Contains(key)
}

// ActiveCount returns the number of active keys
func (g *Guard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active.Cardinality()
}

// CallStack returns a copy of the current call stack, outermost first
func (g *Guard) CallStack() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.stack...)
}
