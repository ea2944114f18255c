package cmd

import (
	"context"
	"io"
	"time"

	mdwconfig "github.com/msto63/dal/foundation/core/config"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/compiler"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/mold"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/security"
	"github.com/msto63/dal/internal/stdlib"
	"github.com/msto63/dal/internal/store"
	"github.com/msto63/dal/pkg/core/config"
)

// sessionOptions are the per-command overrides of the configuration
type sessionOptions struct {
	caller   string
	mode     string
	output   io.Writer
	skipMain bool
	noAudit  bool
}

// session is one fully wired runtime: compiler, namespaces, agents, molds,
// the classifier and, when enabled, the audit store
type session struct {
	cfg      *config.Config
	logger   *mdwlog.Logger
	compiler *compiler.Compiler
	agents   *agent.Manager
	molds    *mold.Loader
	library  *stdlib.Library
	settings *mdwconfig.Config
	store    store.Store
	engine   *runtime.Engine
	caller   string
}

func newSession(ctx context.Context, cfg *config.Config, logger *mdwlog.Logger, opts sessionOptions) (*session, error) {
	s := &session{cfg: cfg, logger: logger, caller: cfg.Engine.Caller}
	if opts.caller != "" {
		s.caller = opts.caller
	}

	modeName := cfg.Engine.ClassifierMode
	if opts.mode != "" {
		modeName = opts.mode
	}
	mode, err := security.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	s.compiler, err = compiler.New(compiler.Options{
		Logger:    logger,
		CacheSize: cfg.Engine.CacheSize,
		MaxTokens: cfg.Engine.MaxTokens,
		MaxDepth:  cfg.Engine.MaxParseDepth,
	})
	if err != nil {
		return nil, err
	}

	s.agents = agent.NewManager(agent.Options{Logger: logger, InboxSize: cfg.Agents.InboxSize})
	for agentType, caps := range cfg.Agents.Capabilities {
		s.agents.RegisterCapabilities(agentType, caps)
	}

	s.molds = mold.NewLoader(mold.Options{Logger: logger, Dir: cfg.Mold.Dir})
	if _, err := s.molds.LoadAll(); err != nil {
		logger.WarnWithErr("Failed to load molds", err, mdwlog.Fields{"dir": cfg.Mold.Dir})
	}
	if cfg.Mold.Watch {
		if err := s.molds.StartWatching(ctx); err != nil {
			logger.WarnWithErr("Mold hot reload disabled", err)
		}
	}

	s.settings, err = loadSettings(ctx, cfg.Stdlib, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	timelocks := newTimeLocks(cfg.Chain.TimeLocks)

	reg := runtime.NewRegistry()
	s.library, err = stdlib.Install(reg, stdlib.Options{
		Logger: logger,
		Agents: s.agents,
		Molds:  s.molds,
		MEV: security.NewMEVManager(security.MEVOptions{
			Logger:    logger,
			BatchSize: cfg.Chain.BatchSize,
			Delay:     cfg.Chain.Delay.Duration,
		}),
		TimeLocks: timelocks,
		Config:    s.settings,
		CacheDir:  cfg.Stdlib.CacheDir,
		LogBuffer: cfg.Stdlib.LogBuffer,
		WSTimeout: cfg.Stdlib.WSTimeout.Duration,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	var auditSink guard.AuditSink
	var eventSink func(runtime.EmittedEvent)
	if cfg.Audit.Enabled && !opts.noAudit {
		st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Audit.Path})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.store = st
		auditSink, eventSink = store.Sinks(st, logger)
	}

	caller := s.caller
	s.engine = runtime.New(runtime.Options{
		Logger:     logger,
		Namespaces: reg,
		Agents:     s.agents,
		Classifier: security.NewClassifier(security.Options{Logger: logger, Mode: mode}),
		TimeLocks:  timelocks,
		AuditSink:  auditSink,
		Caller:     func() string { return caller },
		EventSink:  eventSink,

		MaxLoopIterations: cfg.Engine.MaxLoopIterations,
		LoopTimeout:       cfg.Engine.LoopTimeout.Duration,
		MaxCallDepth:      cfg.Engine.MaxCallDepth,
		Output:            opts.output,
		SkipMain:          opts.skipMain,
	})
	return s, nil
}

// loadSettings opens the file behind config::get. Without one only the
// DAL_ environment overrides are visible.
func loadSettings(ctx context.Context, cfg config.StdlibConfig, logger *mdwlog.Logger) (*mdwconfig.Config, error) {
	if cfg.ConfigFile == "" {
		return mdwconfig.NewEmpty("DAL"), nil
	}
	settings, err := mdwconfig.LoadWithOptions(cfg.ConfigFile, mdwconfig.LoadOptions{
		Format:    mdwconfig.FormatAuto,
		EnvPrefix: "DAL",
	})
	if err != nil {
		return nil, err
	}
	if cfg.ConfigWatch {
		if err := settings.Watch(ctx); err != nil {
			logger.WarnWithErr("Config hot reload disabled", err, mdwlog.Fields{"file": cfg.ConfigFile})
		} else {
			settings.OnChange(func(*mdwconfig.Config) {
				logger.Info("Config reloaded", mdwlog.Fields{"file": cfg.ConfigFile})
			})
		}
	}
	return settings, nil
}

// newTimeLocks registers every configured operation type
func newTimeLocks(types map[string]config.TimeLockConfig) *security.TimeLockManager {
	m := security.NewTimeLockManager(time.Now)
	for name, tl := range types {
		m.AddConfig(name, security.TimeLockConfig{
			MinDelay:          tl.MinDelay.Duration,
			MaxDelay:          tl.MaxDelay.Duration,
			MinApprovals:      tl.MinApprovals,
			EmergencyGuardian: tl.Guardian,
			CanCancel:         tl.CanCancel,
		})
	}
	return m
}

// Close stops the watchers and releases the databases
func (s *session) Close() {
	if s.molds != nil {
		s.molds.Stop()
	}
	if s.settings != nil {
		s.settings.StopWatching()
	}
	if s.library != nil {
		if err := s.library.Close(); err != nil {
			s.logger.WarnWithErr("Failed to close namespaces", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WarnWithErr("Failed to close store", err)
		}
	}
}
