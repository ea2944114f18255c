// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Agent subsystem errors
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"fmt"
	"strings"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// Error is returned by the agent subsystem
type Error struct {
	code    mdwerror.Code
	AgentID string
	Message string
}

func (e *Error) Error() string {
	if e.AgentID == "" {
		return e.Message
	}
	return fmt.Sprintf("agent %s: %s", e.AgentID, e.Message)
}

// Code implements mdwerror.Coder
func (e *Error) Code() mdwerror.Code { return e.code }

func newError(code mdwerror.Code, agentID, format string, args ...interface{}) *Error {
	return &Error{code: code, AgentID: agentID, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(id string) error {
	return newError(mdwerror.CodeAgentNotFound, id, "not found")
}

// MissingCapabilitiesError lists required capabilities absent from a type
type MissingCapabilitiesError struct {
	AgentType string
	Missing   []string
}

func (e *MissingCapabilitiesError) Error() string {
	return fmt.Sprintf("agent type %s lacks capabilities: %s", e.AgentType, strings.Join(e.Missing, ", "))
}

// Code implements mdwerror.Coder
func (e *MissingCapabilitiesError) Code() mdwerror.Code { return mdwerror.CodeCapabilityDenied }
