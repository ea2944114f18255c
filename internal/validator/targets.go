// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     validator
// Description: Compile-target constraint table
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package validator

import (
	"sort"
	"strings"
)

// Target describes the constraints of one @compile_target value
type Target struct {
	Name               string
	RequiredAttributes []string // without '@'
	ForbiddenOps       []string // namespace::function
}

// ForbiddenNamespaces returns the namespaces of the forbidden operations.
// Enforcement is per namespace: any call into one of them is rejected.
func (t Target) ForbiddenNamespaces() []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range t.ForbiddenOps {
		ns := op
		if i := strings.Index(op, "::"); i >= 0 {
			ns = op[:i]
		}
		if !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out
}

var targets = map[string]Target{
	"blockchain": {
		Name:               "blockchain",
		RequiredAttributes: []string{"secure", "trust"},
		ForbiddenOps: []string{
			"web::http_request", "web::websocket", "desktop::window",
			"mobile::notification", "iot::sensor_read",
		},
	},
	"webassembly": {
		Name:               "webassembly",
		RequiredAttributes: []string{"web"},
		ForbiddenOps: []string{
			"chain::transaction", "chain::deploy", "desktop::file_system",
			"mobile::camera", "iot::device_control",
		},
	},
	"native": {
		Name:               "native",
		RequiredAttributes: []string{"native"},
		ForbiddenOps: []string{
			"chain::transaction", "mobile::touch_event", "iot::sensor_read",
		},
	},
	"mobile": {
		Name:               "mobile",
		RequiredAttributes: []string{"mobile"},
		ForbiddenOps: []string{
			"chain::transaction", "desktop::window", "iot::device_control",
		},
	},
	"edge": {
		Name:               "edge",
		RequiredAttributes: []string{"edge"},
		ForbiddenOps: []string{
			"chain::transaction", "web::dom_manipulation", "desktop::window", "mobile::camera",
		},
	},
}

var targetAliases = map[string]string{
	"wasm": "webassembly",
}

// LookupTarget returns the constraints for a target name, case-insensitive
func LookupTarget(name string) (Target, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := targetAliases[key]; ok {
		key = alias
	}
	t, ok := targets[key]
	return t, ok
}

// TargetNames returns the canonical target names in sorted order
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
