// File: config_test.go
// Title: Configuration Tests
// Description: Tests for loading, dot-path lookup, env overrides and reload.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation
// - 2025-06-02 v0.2.0: fsnotify reload coverage

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

const sampleTOML = `
[engine]
max_loop_iterations = 500
loop_timeout = "2s"
mode = "strict"

[chains]
supported = ["ethereum", "polygon"]
`

func TestLoadFromStringTOML(t *testing.T) {
	cfg, err := LoadFromString(sampleTOML, FormatTOML)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if got := cfg.GetInt("engine.max_loop_iterations"); got != 500 {
		t.Errorf("GetInt() = %d, want 500", got)
	}
	if got := cfg.GetDuration("engine.loop_timeout"); got != 2*time.Second {
		t.Errorf("GetDuration() = %v, want 2s", got)
	}
	if got := cfg.GetString("engine.mode"); got != "strict" {
		t.Errorf("GetString() = %q, want strict", got)
	}
	if got := cfg.GetStringSlice("chains.supported"); len(got) != 2 || got[1] != "polygon" {
		t.Errorf("GetStringSlice() = %v", got)
	}
	if got := cfg.GetString("engine.missing", "fallback"); got != "fallback" {
		t.Errorf("default not applied: %q", got)
	}
}

func TestLoadFromStringYAML(t *testing.T) {
	cfg, err := LoadFromString("agents:\n  inbox_size: 64\n  debug: true\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if got := cfg.GetInt("agents.inbox_size"); got != 64 {
		t.Errorf("GetInt() = %d, want 64", got)
	}
	if !cfg.GetBool("agents.debug") {
		t.Error("GetBool() = false, want true")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg, err := LoadFromString(sampleTOML, FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	cfg.envPrefix = "DALTEST"
	t.Setenv("DALTEST_ENGINE_MODE", "advisory")

	if got := cfg.GetString("engine.mode"); got != "advisory" {
		t.Errorf("env override ignored: %q", got)
	}
}

func TestSetAndHas(t *testing.T) {
	cfg := NewEmpty("")
	cfg.Set("a.b.c", 3)

	if !cfg.Has("a.b.c") {
		t.Error("Has() = false after Set()")
	}
	if cfg.Has("a.x") {
		t.Error("Has() = true for missing key")
	}
	all := cfg.GetAll()
	all["a"].(map[string]interface{})["b"] = nil
	if !cfg.Has("a.b.c") {
		t.Error("GetAll() should return a copy")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !mdwerror.HasCode(err, mdwerror.CodeMissingConfig) {
		t.Errorf("Load() error = %v, want MISSING_CONFIG", err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dal.toml")
	if err := os.WriteFile(path, []byte("[engine]\nmode = \"monitor\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	changed := make(chan string, 4)
	cfg.OnChange(func(c *Config) { changed <- c.GetString("engine.mode") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cfg.Watch(ctx); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer cfg.StopWatching()

	if err := os.WriteFile(path, []byte("[engine]\nmode = \"strict\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case mode := <-changed:
		if mode != "strict" {
			t.Errorf("reloaded mode = %q, want strict", mode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}
