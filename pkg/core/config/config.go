// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     config
// Description: Runtime configuration loaded from dal.toml
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete runtime configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Engine  EngineConfig  `toml:"engine"`
	Audit   AuditConfig   `toml:"audit"`
	Agents  AgentsConfig  `toml:"agents"`
	Mold    MoldConfig    `toml:"mold"`
	Chain   ChainConfig   `toml:"chain"`
	Stdlib  StdlibConfig  `toml:"stdlib"`
	Log     LogConfig     `toml:"log"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	DataDir     string `toml:"data_dir"`
}

// EngineConfig holds interpreter limits and the security mode
type EngineConfig struct {
	MaxLoopIterations int      `toml:"max_loop_iterations"`
	LoopTimeout       Duration `toml:"loop_timeout"`
	MaxCallDepth      int      `toml:"max_call_depth"`
	MaxTokens         int      `toml:"max_tokens"`
	MaxParseDepth     int      `toml:"max_parse_depth"`
	CacheSize         int      `toml:"cache_size"`
	// ClassifierMode is monitor, advisory or strict
	ClassifierMode string `toml:"classifier_mode"`
	// Caller is the identity @secure calls authenticate against
	Caller string `toml:"caller"`
}

// AuditConfig holds the store for audit entries, events and runs
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// AgentsConfig holds agent subsystem settings
type AgentsConfig struct {
	InboxSize int `toml:"inbox_size"`
	// Capabilities overrides the type-level capability lists
	Capabilities map[string][]string `toml:"capabilities"`
}

// MoldConfig holds the mold directory
type MoldConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// ChainConfig holds the protected-submission pool settings and the
// time-lock operation types
type ChainConfig struct {
	BatchSize int      `toml:"batch_size"`
	Delay     Duration `toml:"delay"`
	// TimeLocks maps an operation type to its constraints
	TimeLocks map[string]TimeLockConfig `toml:"timelocks"`
}

// TimeLockConfig constrains one time-lock operation type
type TimeLockConfig struct {
	MinDelay     Duration `toml:"min_delay"`
	MaxDelay     Duration `toml:"max_delay"`
	MinApprovals int      `toml:"min_approvals"`
	Guardian     string   `toml:"guardian"`
	CanCancel    bool     `toml:"can_cancel"`
}

// StdlibConfig holds built-in namespace settings
type StdlibConfig struct {
	CacheDir  string   `toml:"cache_dir"`
	LogBuffer int      `toml:"log_buffer"`
	WSTimeout Duration `toml:"ws_timeout"`
	// ConfigFile backs config::get; empty leaves only the environment
	ConfigFile string `toml:"config_file"`
	// ConfigWatch reloads ConfigFile when it changes
	ConfigWatch bool `toml:"config_watch"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	return &cfg, nil
}

// Parse decodes TOML content
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return &cfg, nil
}

// LoadFromEnv loads configuration from the DAL_CONFIG environment variable
// or the first default location that exists
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("DAL_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./dal.toml",
			"./configs/dal.toml",
			filepath.Join(os.Getenv("HOME"), ".config/dal/dal.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("no config file found, set DAL_CONFIG or create dal.toml")
	}

	return Load(path)
}

// LoadOrDefault loads path, or DAL_CONFIG and the default locations when
// path is empty. Without any file it returns the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := LoadFromEnv()
	if err != nil && os.Getenv("DAL_CONFIG") == "" {
		return Default(), nil
	}
	return cfg, err
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "dal"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}

	// Engine
	if c.Engine.MaxLoopIterations == 0 {
		c.Engine.MaxLoopIterations = 100000
	}
	if c.Engine.LoopTimeout.Duration == 0 {
		c.Engine.LoopTimeout.Duration = 30 * time.Second
	}
	if c.Engine.MaxCallDepth == 0 {
		c.Engine.MaxCallDepth = 512
	}
	if c.Engine.MaxTokens == 0 {
		c.Engine.MaxTokens = 1000000
	}
	if c.Engine.MaxParseDepth == 0 {
		c.Engine.MaxParseDepth = 256
	}
	if c.Engine.CacheSize == 0 {
		c.Engine.CacheSize = 128
	}
	if c.Engine.ClassifierMode == "" {
		c.Engine.ClassifierMode = "monitor"
	}

	// Audit
	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(c.General.DataDir, "dal.db")
	}

	// Agents
	if c.Agents.InboxSize == 0 {
		c.Agents.InboxSize = 256
	}

	// Mold
	if c.Mold.Dir == "" {
		c.Mold.Dir = "."
	}

	// Chain
	if c.Chain.BatchSize == 0 {
		c.Chain.BatchSize = 100
	}
	if c.Chain.Delay.Duration == 0 {
		c.Chain.Delay.Duration = 300 * time.Second
	}
	for name, tl := range c.Chain.TimeLocks {
		if tl.MaxDelay.Duration == 0 {
			tl.MaxDelay.Duration = 30 * 24 * time.Hour
		}
		c.Chain.TimeLocks[name] = tl
	}

	// Stdlib
	if c.Stdlib.LogBuffer == 0 {
		c.Stdlib.LogBuffer = 1000
	}
	if c.Stdlib.WSTimeout.Duration == 0 {
		c.Stdlib.WSTimeout.Duration = 10 * time.Second
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Audit.Path = os.ExpandEnv(c.Audit.Path)
	c.Mold.Dir = os.ExpandEnv(c.Mold.Dir)
	c.Stdlib.CacheDir = os.ExpandEnv(c.Stdlib.CacheDir)
	c.Stdlib.ConfigFile = os.ExpandEnv(c.Stdlib.ConfigFile)
	c.Log.File = os.ExpandEnv(c.Log.File)
	c.Engine.Caller = os.ExpandEnv(c.Engine.Caller)
	for name, tl := range c.Chain.TimeLocks {
		tl.Guardian = os.ExpandEnv(tl.Guardian)
		c.Chain.TimeLocks[name] = tl
	}
}
