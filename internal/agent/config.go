// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Building agent configs from runtime maps
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"fmt"
	"strconv"
)

// ConfigFromMap builds a config from a runtime map. A "capabilities" entry
// replaces the type defaults. Recognized keys: name, type (or agent_type),
// role, capabilities, trust_level, max_memory; everything else lands in
// Metadata.
func ConfigFromMap(m map[string]interface{}) (Config, error) {
	cfg := Config{Metadata: make(map[string]interface{})}
	for key, raw := range m {
		switch key {
		case "name":
			cfg.Name = fmt.Sprint(raw)
		case "type", "agent_type":
			cfg.AgentType = fmt.Sprint(raw)
		case "role":
			cfg.Role = fmt.Sprint(raw)
		case "trust_level":
			cfg.TrustLevel = fmt.Sprint(raw)
		case "max_memory":
			n, err := toInt(raw)
			if err != nil {
				return Config{}, fmt.Errorf("max_memory: %w", err)
			}
			cfg.MaxMemory = n
		case "capabilities":
			caps, err := toStrings(raw)
			if err != nil {
				return Config{}, fmt.Errorf("capabilities: %w", err)
			}
			cfg.Capabilities = caps
		default:
			cfg.Metadata[key] = raw
		}
	}
	return cfg, nil
}

func toStrings(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append(make([]string, 0, len(v)), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{v}, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", raw)
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("expected a number, got %T", raw)
}
