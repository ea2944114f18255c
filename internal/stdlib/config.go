// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: config:: namespace (runtime configuration and environment)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"os"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/runtime"
)

func (l *Library) configFuncs() runtime.FuncTable {
	cfg := l.options.Config
	return runtime.FuncTable{
		// get(key[, default]) reads a dotted key; DAL_<KEY> overrides it
		"get": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("config::get", args)
			key, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			v, ok := cfg.Get(key)
			if !ok {
				return a.Get(1), nil
			}
			return runtime.FromInterface(v), nil
		},

		"has": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			key, err := runtime.NewArgs("config::has", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(cfg.Has(key)), nil
		},

		// get_env(name) is null for an unset variable
		"get_env": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			name, err := runtime.NewArgs("config::get_env", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			if v, ok := os.LookupEnv(name); ok {
				return runtime.String(v), nil
			}
			return runtime.Null, nil
		},

		"get_env_or_default": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("config::get_env_or_default", args)
			if err := a.Exactly(2); err != nil {
				return runtime.Null, err
			}
			name, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			if v, ok := os.LookupEnv(name); ok {
				return runtime.String(v), nil
			}
			return a.Get(1), nil
		},

		"get_required_env": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			name, err := runtime.NewArgs("config::get_required_env", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			v, ok := os.LookupEnv(name)
			if !ok {
				return runtime.Null, runtime.NewError(mdwerror.CodeMissingConfig,
					"required environment variable %s is not set", name)
			}
			return runtime.String(v), nil
		},
	}
}
