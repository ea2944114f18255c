// File: error_test.go
// Title: Error Module Tests
// Description: Tests for error creation, wrapping, codes and severity.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with comprehensive test coverage
// - 2025-06-02 v0.2.0: Coder lookup and DAL kind names

package error

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	msg := "test error message"
	err := New(msg)

	if err.Error() != msg {
		t.Errorf("Error() = %q, want %q", err.Error(), msg)
	}
	if err.Code() != CodeUnknown {
		t.Errorf("Code() = %v, want %v", err.Code(), CodeUnknown)
	}
	if err.Severity() != SeverityMedium {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityMedium)
	}
	if err.Timestamp().IsZero() {
		t.Error("Timestamp() should not be zero")
	}
	if len(err.StackTrace()) == 0 {
		t.Error("StackTrace() should not be empty")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("division by zero").WithCode(CodeDivisionByZero).WithDetail("line", 4)
	wrapped := Wrap(base, "while executing main")

	if wrapped.Error() != "while executing main: division by zero" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if wrapped.Code() != CodeDivisionByZero {
		t.Errorf("Code() = %v, want %v", wrapped.Code(), CodeDivisionByZero)
	}
	if v, ok := wrapped.Detail("line"); !ok || v != 4 {
		t.Errorf("Detail(line) = %v, %v", v, ok)
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is() should find the wrapped error")
	}
	if wrapped.RootCause() != base {
		t.Error("RootCause() should return the innermost error")
	}
}

func TestWrapTruncatesDeepChains(t *testing.T) {
	var err error = errors.New("root")
	for i := 0; i < MaxErrorChainDepth+2; i++ {
		err = Wrap(err, fmt.Sprintf("level %d", i))
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("expected *Error")
	}
	if chainDepth(err) > MaxErrorChainDepth+1 {
		t.Errorf("chain depth = %d, should be bounded", chainDepth(err))
	}
}

type typedErr struct{}

func (typedErr) Error() string { return "typed" }
func (typedErr) Code() Code    { return CodeReentrancy }

func TestGetCodeFindsCoders(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", typedErr{})

	if got := GetCode(wrapped); got != CodeReentrancy {
		t.Errorf("GetCode() = %v, want %v", got, CodeReentrancy)
	}
	if !HasCode(wrapped, CodeReentrancy) {
		t.Error("HasCode() should see codes through fmt wrapping")
	}
	if GetSeverity(wrapped) != SeverityHigh {
		t.Errorf("GetSeverity() = %v, want high", GetSeverity(wrapped))
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should report CodeUnknown")
	}
}

func TestWithCodeSetsSeverity(t *testing.T) {
	if s := New("x").WithCode(CodeAccessDenied).Severity(); s != SeverityHigh {
		t.Errorf("AccessDenied severity = %v, want high", s)
	}
	if s := New("x").WithCode(CodeUnexpectedToken).Severity(); s != SeverityLow {
		t.Errorf("UnexpectedToken severity = %v, want low", s)
	}
	if s := New("x").WithSeverity(SeverityCritical).WithCode(CodeTypeMismatch).Severity(); s != SeverityCritical {
		t.Errorf("explicit severity was overwritten: %v", s)
	}
}

func TestKindName(t *testing.T) {
	tests := map[Code]string{
		CodeDivisionByZero:        "DivisionByZero",
		CodeAccessDenied:          "AccessDenied",
		CodeReentrancy:            "ReentrancyDetected",
		CodeUnauthorizedNamespace: "UnauthorizedNamespaceCall",
		CodeLoopTimeout:           "LoopTimeout",
		CodeUnexpectedEOF:         "UnexpectedEOF",
		CodeMEVProtection:         "MEVProtection",
	}
	for code, want := range tests {
		if got := code.KindName(); got != want {
			t.Errorf("%s.KindName() = %q, want %q", code, got, want)
		}
	}
}

func TestCategory(t *testing.T) {
	if !CodeUnexpectedToken.IsCompile() {
		t.Error("UnexpectedToken should be a compile code")
	}
	if CodeDivisionByZero.IsCompile() {
		t.Error("DivisionByZero should not be a compile code")
	}
	if CodeReentrancy.Category() != "security" {
		t.Errorf("Reentrancy category = %s", CodeReentrancy.Category())
	}
}

func TestMarshalJSONAndString(t *testing.T) {
	err := New("boom").WithCode(CodeTypeMismatch).WithOperation("engine.binary").WithDetail("op", "+")

	raw, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("MarshalJSON() error = %v", jerr)
	}
	var data map[string]interface{}
	if uerr := json.Unmarshal(raw, &data); uerr != nil {
		t.Fatalf("unmarshal: %v", uerr)
	}
	if data["code"] != "TYPE_MISMATCH" || data["operation"] != "engine.binary" {
		t.Errorf("unexpected JSON: %s", raw)
	}

	s := err.String()
	for _, want := range []string{"Code: TYPE_MISMATCH", "Operation: engine.binary", "Details: {op=+}"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q: %s", want, s)
		}
	}
}
