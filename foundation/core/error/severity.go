// File: severity.go
// Title: Error Severity
// Description: Severity levels used to pick log levels and exit codes.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation
// - 2025-06-02 v0.2.0: Severity table for DAL codes

package error

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow covers program mistakes the DAL author can fix
	SeverityLow Severity = iota

	// SeverityMedium covers recoverable runtime failures
	SeverityMedium

	// SeverityHigh covers security decisions and host failures
	SeverityHigh

	// SeverityCritical covers internal invariant violations
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ShouldAlert returns true if this severity level should trigger alerts
func (s Severity) ShouldAlert() bool {
	return s >= SeverityHigh
}

// GetSeverityFromCode determines the severity level for an error code
func GetSeverityFromCode(code Code) Severity {
	switch code {
	case CodeInternal, CodeStackUnderflow:
		return SeverityCritical

	case CodeAccessDenied, CodeReentrancy, CodeUnauthorizedNamespace, CodeMEVProtection,
		CodeCapabilityDenied, CodeDatabaseError, CodeNetworkError:
		return SeverityHigh

	case CodeLoopTimeout, CodeStackOverflow, CodeInboxFull, CodeTimeout, CodeOverflow,
		CodeInsufficientFunds, CodeThrown:
		return SeverityMedium

	default:
		if code.IsCompile() {
			return SeverityLow
		}
		switch code {
		case CodeFunctionNotFound, CodeVariableNotFound, CodeArgumentCount, CodeTypeMismatch,
			CodeDivisionByZero, CodeIndexOutOfBounds, CodeUnsupportedOperation, CodeInvalidInput,
			CodeNotFound, CodeAgentNotFound, CodeConfigError, CodeMissingConfig, CodeInvalidConfig:
			return SeverityLow
		}
		return SeverityMedium
	}
}
