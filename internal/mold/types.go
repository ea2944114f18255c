// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     mold
// Description: Reusable agent configuration templates
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package mold loads agent templates ("molds") from YAML or JSON files and
// turns them into agent configurations. A mold carrying a capability list
// replaces the defaults of its agent type.
package mold

import (
	"strconv"
	"strings"
	"time"

	"github.com/msto63/dal/internal/agent"
)

// Mold is an agent template loaded from a file
type Mold struct {
	Name         string                 `yaml:"name"`
	Version      string                 `yaml:"version"`
	Description  string                 `yaml:"description,omitempty"`
	Agent        AgentBlock             `yaml:"agent"`
	Parameters   map[string]string      `yaml:"parameters,omitempty"`
	Dependencies []string               `yaml:"dependencies,omitempty"`
	Metadata     map[string]interface{} `yaml:"metadata,omitempty"`
	Lifecycle    *Lifecycle             `yaml:"lifecycle,omitempty"`

	// Internal tracking (not from the file)
	SourceFile string    `yaml:"-"`
	LoadedAt   time.Time `yaml:"-"`
}

// AgentBlock configures the agent a mold spawns
type AgentBlock struct {
	Type          string   `yaml:"type"`
	Role          string   `yaml:"role,omitempty"`
	Capabilities  []string `yaml:"capabilities,omitempty"`
	TrustLevel    string   `yaml:"trustLevel,omitempty"`
	MemoryLimit   string   `yaml:"memoryLimit,omitempty"`
	Learning      bool     `yaml:"learning,omitempty"`
	Communication bool     `yaml:"communication,omitempty"`
	Coordination  bool     `yaml:"coordination,omitempty"`
}

// Lifecycle holds DAL snippets for agent events
type Lifecycle struct {
	OnCreate  string `yaml:"onCreate,omitempty"`
	OnMessage string `yaml:"onMessage,omitempty"`
	OnEvolve  string `yaml:"onEvolve,omitempty"`
	OnDestroy string `yaml:"onDestroy,omitempty"`
}

// Defaults applies default values to the mold
func (m *Mold) Defaults() {
	if m.Version == "" {
		m.Version = "1.0"
	}
	if m.Agent.Type == "" {
		m.Agent.Type = agent.TypeAI
	}
	if m.Agent.TrustLevel == "" {
		m.Agent.TrustLevel = "standard"
	}
}

// Validate checks that the mold can produce an agent
func (m *Mold) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if _, ok := agent.NormalizeType(m.Agent.Type); !ok {
		return &InvalidTypeError{Mold: m.Name, Type: m.Agent.Type}
	}
	return nil
}

// MaxMemory converts the memory limit ("2GB", "512MB", "64KB" or bytes)
// into a rough page count
func (m *Mold) MaxMemory() int {
	s := strings.ToUpper(strings.TrimSpace(m.Agent.MemoryLimit))
	if s == "" {
		return agent.DefaultMaxMemory
	}
	unit := 1
	for _, u := range []struct {
		suffix string
		size   int
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSuffix(s, u.suffix)
			unit = u.size
			break
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		n = 2
	}
	pages := n * unit / 4096
	if pages <= 0 {
		return 1
	}
	return pages
}

// AgentConfig builds the spawn configuration. An empty name uses the mold
// name.
func (m *Mold) AgentConfig(name string) (agent.Config, error) {
	if err := m.Validate(); err != nil {
		return agent.Config{}, err
	}
	if name == "" {
		name = m.Name
	}
	agentType, _ := agent.NormalizeType(m.Agent.Type)

	cfg := agent.NewConfig(name, agentType).
		WithRole(m.Agent.Role).
		WithTrustLevel(m.Agent.TrustLevel)
	if m.Agent.Capabilities != nil {
		cfg = cfg.WithCapabilities(m.Agent.Capabilities)
	}
	cfg.MaxMemory = m.MaxMemory()

	cfg.Metadata = make(map[string]interface{}, len(m.Metadata)+5)
	for k, v := range m.Metadata {
		cfg.Metadata[k] = v
	}
	cfg.Metadata["mold_name"] = m.Name
	cfg.Metadata["mold_version"] = m.Version
	cfg.Metadata["learning"] = m.Agent.Learning
	cfg.Metadata["communication"] = m.Agent.Communication
	cfg.Metadata["coordination"] = m.Agent.Coordination
	return cfg, nil
}

// Info is the map exposed to DAL code by mold::load and mold::get_info
func (m *Mold) Info() map[string]interface{} {
	caps := make([]interface{}, len(m.Agent.Capabilities))
	for i, c := range m.Agent.Capabilities {
		caps[i] = c
	}
	info := map[string]interface{}{
		"name":    m.Name,
		"version": m.Version,
		"agent": map[string]interface{}{
			"type":         m.Agent.Type,
			"role":         m.Agent.Role,
			"capabilities": caps,
			"trust_level":  m.Agent.TrustLevel,
			"memory_limit": m.Agent.MemoryLimit,
		},
		"source": m.SourceFile,
	}
	if m.Description != "" {
		info["description"] = m.Description
	}
	if len(m.Dependencies) > 0 {
		deps := make([]interface{}, len(m.Dependencies))
		for i, d := range m.Dependencies {
			deps[i] = d
		}
		info["dependencies"] = deps
	}
	return info
}
