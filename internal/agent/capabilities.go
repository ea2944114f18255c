// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Default and type-level capability tables
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"sort"
	"sync"
)

// defaultCapabilities are assigned at spawn when a config carries none
var defaultCapabilities = map[string][]string{
	TypeAI:     {"analysis", "learning", "communication", "task_execution", "problem_solving"},
	TypeSystem: {"monitoring", "coordination", "resource_management", "system_optimization"},
	TypeWorker: {"task_execution", "data_processing", "automation", "workflow_management"},
	TypeCustom: {"custom_processing", "adaptation", "flexibility"},
}

// builtinTypeCapabilities are the type-level lists used by validation.
// They are intentionally narrower than the spawn defaults.
var builtinTypeCapabilities = map[string][]string{
	TypeAI:     {"analysis", "learning", "communication", "task_execution"},
	TypeSystem: {"monitoring", "coordination", "resource_management"},
	TypeWorker: {"task_execution", "data_processing", "automation"},
	TypeCustom: {"custom_processing"},
}

// DefaultCapabilities returns the spawn-time defaults of an agent type
func DefaultCapabilities(agentType string) []string {
	return append([]string(nil), defaultCapabilities[baseType(agentType)]...)
}

// CapabilityRegistry holds type-level overrides. A registered list replaces
// the built-in list of that type for ValidateCapabilities only.
type CapabilityRegistry struct {
	mu        sync.RWMutex
	overrides map[string][]string
}

// NewCapabilityRegistry creates an empty registry
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{overrides: make(map[string][]string)}
}

// Register replaces the type-level list of agentType
func (r *CapabilityRegistry) Register(agentType string, caps []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[agentType] = append([]string(nil), caps...)
}

// Lookup returns the override of agentType, if any
func (r *CapabilityRegistry) Lookup(agentType string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps, ok := r.overrides[agentType]
	if !ok {
		return nil, false
	}
	return append([]string(nil), caps...), true
}

// Types returns the agent types with overrides, sorted
func (r *CapabilityRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.overrides))
	for t := range r.overrides {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TypeCapabilities returns the type-level list for agentType: the registry
// override when present, else the built-in list.
func (r *CapabilityRegistry) TypeCapabilities(agentType string) []string {
	if r != nil {
		if caps, ok := r.Lookup(agentType); ok {
			return caps
		}
	}
	return append([]string(nil), builtinTypeCapabilities[baseType(agentType)]...)
}
