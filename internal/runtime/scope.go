// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Variable environments and per-call scope stacks
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"sort"
	"sync"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// Environment is one frame of variables linked to its parent. The global
// environment is shared by agents, so every frame carries its own lock.
type Environment struct {
	mu     sync.RWMutex
	vars   map[string]Value
	parent *Environment
}

// NewEnvironment creates a frame below parent (nil for a root frame)
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{vars: make(map[string]Value), parent: parent}
}

// Define binds name in this frame, shadowing outer bindings
func (e *Environment) Define(name string, v Value) {
	e.mu.Lock()
	e.vars[name] = v
	e.mu.Unlock()
}

// Lookup resolves name from this frame outwards
func (e *Environment) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		env.mu.RLock()
		v, ok := env.vars[name]
		env.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return Null, false
}

// Assign updates the innermost existing binding of name
func (e *Environment) Assign(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			env.mu.Unlock()
			return true
		}
		env.mu.Unlock()
	}
	return false
}

// Names returns the names bound directly in this frame
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scope is the frame stack of one call path. It is never shared between
// goroutines.
type Scope struct {
	base    *Environment
	current *Environment
	depth   int
}

// NewScope starts a stack on top of base
func NewScope(base *Environment) *Scope {
	return &Scope{base: base, current: base}
}

// Current returns the innermost frame
func (s *Scope) Current() *Environment { return s.current }

// Depth returns the number of frames pushed above the base
func (s *Scope) Depth() int { return s.depth }

// Push enters a new frame
func (s *Scope) Push() *Environment {
	s.current = NewEnvironment(s.current)
	s.depth++
	return s.current
}

// Pop leaves the innermost frame. Popping the base frame is an error.
func (s *Scope) Pop() error {
	if s.depth == 0 {
		return NewError(mdwerror.CodeStackUnderflow, "cannot pop the base scope")
	}
	s.current = s.current.parent
	s.depth--
	return nil
}
