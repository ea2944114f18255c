// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     version
// Description: Central version management for the runtime components
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package version

// Version constants for the DAL runtime
const (
	// Runtime version
	Platform = "1.0.0"

	// Language version accepted by the front end
	Language = "0.2.0"

	// Component versions
	Lexer     = "1.0.0"
	Parser    = "1.0.0"
	Validator = "1.0.0"
	Engine    = "1.0.0"
	Agents    = "1.0.0"
	Stdlib    = "1.0.0"
	Mold      = "1.0.0"
)

// Commit and BuildDate are set with -ldflags at build time
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "language":
		return Language
	case "lexer":
		return Lexer
	case "parser":
		return Parser
	case "validator":
		return Validator
	case "engine":
		return Engine
	case "agents":
		return Agents
	case "stdlib":
		return Stdlib
	case "mold":
		return Mold
	default:
		return Platform
	}
}

// Components lists the names ComponentVersion knows
func Components() []string {
	return []string{"language", "lexer", "parser", "validator", "engine", "agents", "stdlib", "mold"}
}
