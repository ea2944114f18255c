// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     mold
// Description: Tests for mold parsing and loading
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package mold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
)

const analystYAML = `
name: analyst
version: "2.1"
description: Market analyst
agent:
  type: ai
  role: research
  capabilities: [analysis, reporting]
  trustLevel: high
  memoryLimit: 64KB
  learning: true
metadata:
  team: quant
`

const workerJSON = `{
  "name": "cruncher",
  "agent": {"type": "worker", "memoryLimit": "1MB"}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(dir string) *Loader {
	return NewLoader(Options{Dir: dir, Logger: mdwlog.Discard()})
}

// TestParse tests decoding, defaults and validation
func TestParse(t *testing.T) {
	m, err := Parse([]byte(analystYAML))
	require.NoError(t, err)
	assert.Equal(t, "analyst", m.Name)
	assert.Equal(t, "2.1", m.Version)
	assert.Equal(t, []string{"analysis", "reporting"}, m.Agent.Capabilities)
	assert.Equal(t, 16, m.MaxMemory())

	m, err = Parse([]byte(workerJSON))
	require.NoError(t, err)
	assert.Equal(t, "1.0", m.Version)
	assert.Equal(t, "standard", m.Agent.TrustLevel)
	assert.Equal(t, 256, m.MaxMemory())

	_, err = Parse([]byte("   "))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte("version: 1"))
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = Parse([]byte("name: x\nagent:\n  type: robot\n"))
	var typeErr *InvalidTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "robot", typeErr.Type)

	_, err = Parse([]byte("name: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

// TestMold_AgentConfig tests conversion into a spawn configuration
func TestMold_AgentConfig(t *testing.T) {
	m, err := Parse([]byte(analystYAML))
	require.NoError(t, err)

	cfg, err := m.AgentConfig("")
	require.NoError(t, err)
	assert.Equal(t, "analyst", cfg.Name)
	assert.Equal(t, agent.TypeAI, cfg.AgentType)
	assert.Equal(t, "research", cfg.Role)
	assert.Equal(t, []string{"analysis", "reporting"}, cfg.Capabilities)
	assert.Equal(t, "analyst", cfg.Metadata["mold_name"])
	assert.Equal(t, "2.1", cfg.Metadata["mold_version"])
	assert.Equal(t, "quant", cfg.Metadata["team"])
	assert.Equal(t, true, cfg.Metadata["learning"])

	cfg, err = m.AgentConfig("analyst-2")
	require.NoError(t, err)
	assert.Equal(t, "analyst-2", cfg.Name)

	w, err := Parse([]byte(workerJSON))
	require.NoError(t, err)
	cfg, err = w.AgentConfig("")
	require.NoError(t, err)
	assert.Nil(t, cfg.Capabilities, "no capability list keeps type defaults")
}

// TestMold_MaxMemory tests memory limit conversion
func TestMold_MaxMemory(t *testing.T) {
	tests := []struct {
		limit string
		want  int
	}{
		{"", agent.DefaultMaxMemory},
		{"2GB", 524288},
		{"4mb", 1024},
		{"8192", 2},
		{"100", 1},
		{"lots", 1},
	}
	for _, tt := range tests {
		t.Run(tt.limit, func(t *testing.T) {
			m := &Mold{Agent: AgentBlock{MemoryLimit: tt.limit}}
			assert.Equal(t, tt.want, m.MaxMemory())
		})
	}
}

// TestLoader_LoadAll tests discovery across the search directories
func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "analyst.mold.yaml", analystYAML)
	writeFile(t, dir, "mold/cruncher.mold.json", workerJSON)
	writeFile(t, dir, "mold/samples/broken.mold.yml", "name: [")
	writeFile(t, dir, "notes.txt", "ignored")

	l := newTestLoader(dir)
	var changed []string
	l.SetOnChange(func(name string, _ *Mold) { changed = append(changed, name) })

	n, err := l.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"analyst", "cruncher"}, l.Names())
	assert.Len(t, l.Paths(), 3)
	assert.ElementsMatch(t, []string{"analyst", "cruncher"}, changed)

	m, ok := l.Get("cruncher")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "mold", "cruncher.mold.json"), m.SourceFile)
	assert.False(t, m.LoadedAt.IsZero())
}

// TestLoader_Resolve tests lookup by path, name and file stem
func TestLoader_Resolve(t *testing.T) {
	dir := t.TempDir()
	abs := writeFile(t, dir, "analyst.mold.yaml", analystYAML)
	writeFile(t, dir, "mold/samples/heavy.mold.json", workerJSON)

	t.Run("absolute path", func(t *testing.T) {
		l := newTestLoader(dir)
		m, err := l.Resolve(abs)
		require.NoError(t, err)
		assert.Equal(t, "analyst", m.Name)
	})

	t.Run("relative path", func(t *testing.T) {
		l := newTestLoader(dir)
		m, err := l.Resolve("analyst.mold.yaml")
		require.NoError(t, err)
		assert.Equal(t, "analyst", m.Name)
	})

	t.Run("name plus suffix", func(t *testing.T) {
		l := newTestLoader(dir)
		m, err := l.Resolve("analyst")
		require.NoError(t, err)
		assert.Equal(t, "analyst", m.Name)
		_, ok := l.Get("analyst")
		assert.True(t, ok, "resolved molds are cached")
	})

	t.Run("file stem in samples", func(t *testing.T) {
		l := newTestLoader(dir)
		m, err := l.Resolve("heavy")
		require.NoError(t, err)
		assert.Equal(t, "cruncher", m.Name)
	})

	t.Run("loaded name", func(t *testing.T) {
		l := newTestLoader(dir)
		_, err := l.LoadAll()
		require.NoError(t, err)
		m, err := l.Resolve("cruncher")
		require.NoError(t, err)
		assert.Equal(t, "cruncher", m.Name)
	})

	t.Run("missing", func(t *testing.T) {
		l := newTestLoader(dir)
		_, err := l.Resolve("ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = l.Resolve("  ")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// TestIsMoldFile tests suffix detection
func TestIsMoldFile(t *testing.T) {
	assert.True(t, IsMoldFile("/x/a.mold.yaml"))
	assert.True(t, IsMoldFile("A.MOLD.JSON"))
	assert.False(t, IsMoldFile("a.yaml"))
	assert.Equal(t, "a", stem("/x/a.mold.yml"))
}
