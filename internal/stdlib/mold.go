// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: mold:: namespace (agent templates)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"errors"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/mold"
	"github.com/msto63/dal/internal/runtime"
)

// moldError gives loader errors a code DAL code can catch by name
func moldError(err error) error {
	switch {
	case errors.Is(err, mold.ErrNotFound):
		return runtime.NewError(mdwerror.CodeNotFound, "%v", err)
	case errors.Is(err, mold.ErrEmpty), errors.Is(err, mold.ErrInvalidYAML), errors.Is(err, mold.ErrMissingName):
		return runtime.NewError(mdwerror.CodeInvalidInput, "%v", err)
	}
	return err
}

func (l *Library) moldFuncs() runtime.FuncTable {
	loader := l.options.Molds
	manager := l.agents.manager
	return runtime.FuncTable{
		// load(source) resolves a path, file stem or name and returns the mold
		"load": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			source, err := runtime.NewArgs("mold::load", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			m, err := loader.Resolve(source)
			if err != nil {
				return runtime.Null, moldError(err)
			}
			return runtime.FromInterface(m.Info()), nil
		},

		// list() returns the mold files found under the mold directory
		"list": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			return runtime.FromInterface(loader.Paths()), nil
		},

		"get_info": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			source, err := runtime.NewArgs("mold::get_info", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			m, err := loader.Resolve(source)
			if err != nil {
				return runtime.Null, moldError(err)
			}
			return runtime.FromInterface(m.Info()), nil
		},

		// spawn_from(source[, name]) spawns an idle agent from a mold
		"spawn_from": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("mold::spawn_from", args)
			source, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			name, err := a.StringOr(1, "")
			if err != nil {
				return runtime.Null, err
			}
			m, err := loader.Resolve(source)
			if err != nil {
				return runtime.Null, moldError(err)
			}
			cfg, err := m.AgentConfig(name)
			if err != nil {
				return runtime.Null, err
			}
			ac, err := manager.Spawn(cfg)
			if err != nil {
				return runtime.Null, err
			}
			l.logger.Info("Agent spawned from mold", mdwlog.Fields{
				"mold":     m.Name,
				"agent_id": ac.ID,
			})
			return runtime.String(ac.ID), nil
		},
	}
}
