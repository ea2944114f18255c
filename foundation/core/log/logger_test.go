// File: logger_test.go
// Title: Logger Tests
// Description: Tests for logger configuration, derivation, level filtering,
//              hooks and formatter output.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with comprehensive logger tests
// - 2025-06-02 v0.2.0: Hook and component coverage

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

func TestNew(t *testing.T) {
	logger := New()

	if logger == nil {
		t.Fatal("New() should not return nil")
	}
	if logger.GetLevel() != DefaultLevel() {
		t.Errorf("New() level = %v, want %v", logger.GetLevel(), DefaultLevel())
	}
	if logger.contextFields == nil {
		t.Error("New() should initialize context fields")
	}
}

func TestNewWithConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{
		Level:  LevelError,
		Format: FormatText,
		Output: &buf,
		Name:   "test-logger",
	})

	if logger.GetLevel() != LevelError {
		t.Errorf("NewWithConfig() level = %v, want %v", logger.GetLevel(), LevelError)
	}
	if logger.name != "test-logger" {
		t.Errorf("NewWithConfig() name = %v, want test-logger", logger.name)
	}
	if logger.output != &buf {
		t.Error("NewWithConfig() should set custom output")
	}
}

func TestLoggerWithLevel(t *testing.T) {
	logger := New()
	derived := logger.WithLevel(LevelDebug)

	if derived == logger {
		t.Error("WithLevel() should return a new logger instance")
	}
	if derived.GetLevel() != LevelDebug {
		t.Errorf("WithLevel() level = %v, want %v", derived.GetLevel(), LevelDebug)
	}
	if logger.GetLevel() != DefaultLevel() {
		t.Error("WithLevel() should not modify original logger")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelWarn, Format: FormatText, Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Audit("always")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("entries below warn were written: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn entry missing: %q", out)
	}
	if !strings.Contains(out, "[AUD] always") {
		t.Errorf("audit entry should bypass level filtering: %q", out)
	}
}

func TestJSONOutputCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf}).
		WithComponent("dal-engine").
		WithAgent("agent-1").
		WithField("program", "token.dal")

	logger.Info("executed", Fields{"statements": 3})

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	want := map[string]interface{}{
		"message":    "executed",
		"level":      "info",
		"component":  "dal-engine",
		"agent_id":   "agent-1",
		"program":    "token.dal",
		"statements": float64(3),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestHooksSeeFilteredEntries(t *testing.T) {
	var (
		mu      sync.Mutex
		entries []*Entry
	)
	logger := Discard().WithHook(func(e *Entry) {
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
	})

	logger.Debug("one", Fields{"k": "v"})
	logger.Error("two")

	mu.Lock()
	defer mu.Unlock()
	if len(entries) != 2 {
		t.Fatalf("hook received %d entries, want 2", len(entries))
	}
	if entries[0].Message != "one" || entries[0].Fields["k"] != "v" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Level != LevelError {
		t.Errorf("second entry level = %v, want error", entries[1].Level)
	}
}

func TestWithFieldDoesNotLeak(t *testing.T) {
	base := Discard()
	a := base.WithField("a", 1)
	b := a.WithField("b", 2)

	if _, ok := a.contextFields["b"]; ok {
		t.Error("WithField() mutated the parent logger")
	}
	if len(b.contextFields) != 2 {
		t.Errorf("derived logger has %d fields, want 2", len(b.contextFields))
	}
}

func TestLogErrorUsesSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Level: LevelTrace, Format: FormatLogfmt, Output: &buf})

	logger.LogError(mdwerror.New("bad token").WithCode(mdwerror.CodeUnexpectedToken))
	if !strings.Contains(buf.String(), "level=info") {
		t.Errorf("low severity error should log at info: %q", buf.String())
	}

	buf.Reset()
	logger.LogError(mdwerror.New("denied").WithCode(mdwerror.CodeAccessDenied))
	if !strings.Contains(buf.String(), "level=error") {
		t.Errorf("high severity error should log at error: %q", buf.String())
	}
	if !strings.Contains(buf.String(), `error_code="ACCESS_DENIED"`) {
		t.Errorf("error code missing: %q", buf.String())
	}

	buf.Reset()
	logger.LogError(errors.New("plain"))
	if !strings.Contains(buf.String(), "level=error") {
		t.Errorf("plain error should log at error: %q", buf.String())
	}

	buf.Reset()
	logger.LogError(nil)
	if buf.Len() != 0 {
		t.Error("LogError(nil) should not write")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" WARNING ", LevelWarn, false},
		{"aud", LevelAudit, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("logfmt"); err != nil || f != FormatLogfmt {
		t.Errorf("ParseFormat(logfmt) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	f := NewTextFormatter()
	f.DisableTimestamp = true
	entry := NewEntry(LevelInfo, "msg")
	entry.Fields = Fields{"b": 2, "a": 1}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := string(out); got != "[INF] msg [a=1 b=2]\n" {
		t.Errorf("Format() = %q", got)
	}
}
