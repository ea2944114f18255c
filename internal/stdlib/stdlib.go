// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: Built-in namespaces callable as ns::function from DAL code
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package stdlib provides the built-in namespaces of the DAL runtime:
// crypto, chain, log, db, config, web, agent and mold. A Library owns the
// state behind them (ledger, log buffer, databases) and registers one
// handler per namespace into a runtime.Registry.
package stdlib

import (
	"time"

	mdwconfig "github.com/msto63/dal/foundation/core/config"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/mold"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/security"
)

// Namespaces lists the namespaces a Library registers
var Namespaces = []string{"agent", "chain", "config", "crypto", "db", "log", "mold", "web"}

// Options configures a Library. Nil collaborators get private defaults.
type Options struct {
	Logger *mdwlog.Logger
	Agents *agent.Manager
	Molds  *mold.Loader
	MEV    *security.MEVManager
	// TimeLocks backs chain::timelock_*; the engine should share it so
	// locked targets refuse calls
	TimeLocks *security.TimeLockManager
	// Config backs config::get; the environment is always consulted
	Config *mdwconfig.Config

	// CacheDir holds the leveldb behind db::cache_*; empty keeps it in memory
	CacheDir string
	// LogBuffer bounds the entries kept for log::get_entries
	LogBuffer int
	// WSTimeout bounds web::ws_send dial and write
	WSTimeout time.Duration
	Now       func() time.Time
}

// Library holds the state of the built-in namespaces
type Library struct {
	options Options
	logger  *mdwlog.Logger

	chain  *ledger
	logs   *logBuffer
	db     *database
	agents *agentNamespace
}

// New creates a library
func New(opts Options) (*Library, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Agents == nil {
		opts.Agents = agent.NewManager(agent.Options{Logger: opts.Logger})
	}
	if opts.Molds == nil {
		opts.Molds = mold.NewLoader(mold.Options{Logger: opts.Logger})
	}
	if opts.MEV == nil {
		opts.MEV = security.NewMEVManager(security.MEVOptions{Logger: opts.Logger})
	}
	if opts.Config == nil {
		opts.Config = mdwconfig.NewEmpty("DAL")
	}
	if opts.LogBuffer <= 0 {
		opts.LogBuffer = DefaultLogBuffer
	}
	if opts.WSTimeout <= 0 {
		opts.WSTimeout = DefaultWSTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimeLocks == nil {
		opts.TimeLocks = security.NewTimeLockManager(opts.Now)
	}

	logger := opts.Logger.WithField("component", "dal-stdlib")
	db, err := openDatabase(opts.CacheDir, logger)
	if err != nil {
		return nil, err
	}

	return &Library{
		options: opts,
		logger:  logger,
		chain:   newLedger(),
		logs:    newLogBuffer(opts.LogBuffer, opts.Now),
		db:      db,
		agents:  newAgentNamespace(opts.Agents),
	}, nil
}

// Register installs every namespace into reg
func (l *Library) Register(reg *runtime.Registry) {
	reg.Register("agent", l.agentFuncs())
	reg.Register("chain", l.chainFuncs())
	reg.Register("config", l.configFuncs())
	reg.Register("crypto", l.cryptoFuncs())
	reg.Register("db", l.dbFuncs())
	reg.Register("log", l.logFuncs())
	reg.Register("mold", l.moldFuncs())
	reg.Register("web", l.webFuncs())
	l.logger.Debug("Namespaces registered", mdwlog.Fields{"count": len(Namespaces)})
}

// Close releases the databases
func (l *Library) Close() error {
	return l.db.Close()
}

// Install creates a library and registers it into reg
func Install(reg *runtime.Registry, opts Options) (*Library, error) {
	lib, err := New(opts)
	if err != nil {
		return nil, err
	}
	lib.Register(reg)
	return lib, nil
}

