package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/pkg/core/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected mdwlog.Level
	}{
		{"trace", mdwlog.LevelTrace},
		{"debug", mdwlog.LevelDebug},
		{"info", mdwlog.LevelInfo},
		{"warning", mdwlog.LevelWarn},
		{"error", mdwlog.LevelError},
		{"fatal", mdwlog.LevelFatal},
		{"bogus", mdwlog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	lc := FromConfig("dal", config.LogConfig{Level: "error", Format: "json"}, false)
	if lc.Level != "error" || lc.Format != "json" {
		t.Errorf("FromConfig() = %+v", lc)
	}

	lc = FromConfig("dal", config.LogConfig{Level: "error"}, true)
	if lc.Level != "debug" {
		t.Errorf("verbose should force debug, got %v", lc.Level)
	}
	if lc.Format != "console" {
		t.Errorf("Format = %v, want console default", lc.Format)
	}
}

func TestNewLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{
		ServiceName: "dal-test",
		Level:       "info",
		Format:      "json",
		Output:      &buf,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible", mdwlog.Fields{"key": "value"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry should be filtered at info level")
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "value") {
		t.Errorf("output missing info entry: %s", out)
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dal.log")
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "info", Format: "text", File: path, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("to both")
	if err := CloseFiles(); err != nil {
		t.Fatalf("CloseFiles() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("primary output missing entry: %s", buf.String())
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	if _, err := NewLogger(LoggerConfig{Format: "xml"}); err == nil {
		t.Error("NewLogger() expected error for unknown format")
	}
}
