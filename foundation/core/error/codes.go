// File: codes.go
// Title: Error Codes
// Description: Structured error codes shared by the DAL compiler pipeline,
//              the runtime and the host-facing namespaces.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation
// - 2025-06-02 v0.2.0: Compile and runtime codes for the DAL interpreter

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"

	// Compile pipeline
	CodeUnexpectedCharacter Code = "UNEXPECTED_CHARACTER"
	CodeUnterminatedString  Code = "UNTERMINATED_STRING"
	CodeInvalidNumber       Code = "INVALID_NUMBER"
	CodeTooManyTokens       Code = "TOO_MANY_TOKENS"
	CodeUnexpectedToken     Code = "UNEXPECTED_TOKEN"
	CodeUnexpectedEOF       Code = "UNEXPECTED_EOF"
	CodeInvalidAttribute    Code = "INVALID_ATTRIBUTE"
	CodeSemantic            Code = "SEMANTIC_ERROR"

	// Runtime
	CodeStackUnderflow        Code = "STACK_UNDERFLOW"
	CodeStackOverflow         Code = "STACK_OVERFLOW"
	CodeFunctionNotFound      Code = "FUNCTION_NOT_FOUND"
	CodeVariableNotFound      Code = "VARIABLE_NOT_FOUND"
	CodeArgumentCount         Code = "ARGUMENT_COUNT_MISMATCH"
	CodeTypeMismatch          Code = "TYPE_MISMATCH"
	CodeDivisionByZero        Code = "DIVISION_BY_ZERO"
	CodeIndexOutOfBounds      Code = "INDEX_OUT_OF_BOUNDS"
	CodeUnsupportedOperation  Code = "UNSUPPORTED_OPERATION"
	CodeAccessDenied          Code = "ACCESS_DENIED"
	CodeReentrancy            Code = "REENTRANCY_DETECTED"
	CodeUnauthorizedNamespace Code = "UNAUTHORIZED_NAMESPACE_CALL"
	CodeLoopTimeout           Code = "LOOP_TIMEOUT"
	CodeMEVProtection         Code = "MEV_PROTECTION"
	CodeThrown                Code = "THROWN"

	// Agents and host services
	CodeAgentNotFound    Code = "AGENT_NOT_FOUND"
	CodeCapabilityDenied Code = "CAPABILITY_DENIED"
	CodeInboxFull        Code = "INBOX_FULL"
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodeDatabaseError    Code = "DATABASE_ERROR"
	CodeNetworkError     Code = "NETWORK_ERROR"
	CodeOverflow         Code = "ARITHMETIC_OVERFLOW"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// Configuration
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeMissingConfig Code = "MISSING_CONFIG"
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeUnexpectedCharacter, CodeUnterminatedString, CodeInvalidNumber, CodeTooManyTokens,
		CodeUnexpectedToken, CodeUnexpectedEOF, CodeInvalidAttribute, CodeSemantic:
		return "compile"
	case CodeStackUnderflow, CodeStackOverflow, CodeFunctionNotFound, CodeVariableNotFound,
		CodeArgumentCount, CodeTypeMismatch, CodeDivisionByZero, CodeIndexOutOfBounds,
		CodeUnsupportedOperation, CodeLoopTimeout, CodeThrown:
		return "runtime"
	case CodeAccessDenied, CodeReentrancy, CodeUnauthorizedNamespace, CodeMEVProtection, CodeCapabilityDenied:
		return "security"
	case CodeAgentNotFound, CodeInboxFull:
		return "agent"
	case CodeDatabaseError, CodeNetworkError, CodeOverflow, CodeInsufficientFunds, CodeInvalidOperation:
		return "host"
	case CodeConfigError, CodeMissingConfig, CodeInvalidConfig:
		return "configuration"
	default:
		return "generic"
	}
}

// IsCompile reports whether the code aborts compilation
func (c Code) IsCompile() bool {
	return c.Category() == "compile"
}

// KindName returns the CamelCase name DAL programs use in catch clauses
// (e.g. DIVISION_BY_ZERO -> DivisionByZero).
func (c Code) KindName() string {
	switch c {
	case CodeReentrancy:
		return "ReentrancyDetected"
	case CodeSemantic:
		return "SemanticError"
	case CodeArgumentCount:
		return "ArgumentCountMismatch"
	case CodeMEVProtection:
		return "MEVProtection"
	case CodeUnexpectedEOF:
		return "UnexpectedEOF"
	}
	out := make([]byte, 0, len(c))
	upper := true
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if ch == '_' {
			upper = true
			continue
		}
		if upper {
			out = append(out, ch)
			upper = false
			continue
		}
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}
