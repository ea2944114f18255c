// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Tree-walking execution engine
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package runtime executes validated DAL programs. Service instances live
// in the engine's instance table; @secure methods go through the guard
// checker, @advanced_security methods through the classifier, and
// namespace::function calls through the handler registry.
package runtime

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/security"
)

// Execution limits
const (
	DefaultMaxLoopIterations = 100000
	DefaultLoopTimeout       = 30 * time.Second
	DefaultMaxCallDepth      = 512
)

// Options configures an Engine. Every collaborator is injected; nil
// values get private defaults.
type Options struct {
	Logger     *mdwlog.Logger
	Namespaces *Registry
	Agents     *agent.Manager
	Classifier *security.Classifier
	TimeLocks  *security.TimeLockManager

	// AuditSink receives one entry per @secure call
	AuditSink guard.AuditSink
	// Caller returns the identity @secure calls are authenticated against
	Caller guard.CallerFunc
	// EventSink receives every emitted event
	EventSink func(EmittedEvent)

	MaxLoopIterations int
	LoopTimeout       time.Duration
	MaxCallDepth      int

	// Output is where print writes; defaults to stdout
	Output io.Writer
	// SkipMain stops Execute from calling main after the top level runs
	SkipMain bool
}

// EmittedEvent is recorded for every event statement
type EmittedEvent struct {
	Name      string                 `json:"name"`
	Data      map[string]interface{} `json:"data"`
	Service   string                 `json:"service,omitempty"`
	Instance  string                 `json:"instance,omitempty"`
	Agent     string                 `json:"agent,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Engine runs programs. One engine may execute several programs in turn;
// declarations and globals accumulate, which is what the REPL relies on.
type Engine struct {
	options    Options
	logger     *mdwlog.Logger
	namespaces *Registry
	agents     *agent.Manager
	classifier *security.Classifier
	timelocks  *security.TimeLockManager
	checker    *guard.Checker
	globals    *Environment
	builtins   map[string]*Function

	mu         sync.RWMutex
	services   map[string]*ast.ServiceStatement
	agentTypes map[string]*ast.AgentStatement
	instances  map[string]*Instance
	imports    []string

	eventsMu sync.Mutex
	events   []EmittedEvent

	outMu sync.Mutex
}

// New creates an engine
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Namespaces == nil {
		opts.Namespaces = NewRegistry()
	}
	if opts.Agents == nil {
		opts.Agents = agent.NewManager(agent.Options{Logger: opts.Logger})
	}
	if opts.Classifier == nil {
		opts.Classifier = security.NewClassifier(security.Options{Logger: opts.Logger})
	}
	if opts.MaxLoopIterations <= 0 {
		opts.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if opts.LoopTimeout <= 0 {
		opts.LoopTimeout = DefaultLoopTimeout
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	e := &Engine{
		options:    opts,
		logger:     opts.Logger.WithField("component", "dal-engine"),
		namespaces: opts.Namespaces,
		agents:     opts.Agents,
		classifier: opts.Classifier,
		timelocks:  opts.TimeLocks,
		checker: guard.NewChecker(guard.Options{
			Logger: opts.Logger,
			Sink:   opts.AuditSink,
			Caller: opts.Caller,
		}),
		globals:    NewEnvironment(nil),
		services:   make(map[string]*ast.ServiceStatement),
		agentTypes: make(map[string]*ast.AgentStatement),
		instances:  make(map[string]*Instance),
	}
	e.builtins = e.newBuiltins()
	return e
}

// Namespaces returns the handler registry
func (e *Engine) Namespaces() *Registry { return e.namespaces }

// Agents returns the agent subsystem
func (e *Engine) Agents() *agent.Manager { return e.agents }

// Guard returns the secure-call checker
func (e *Engine) Guard() *guard.Checker { return e.checker }

// Classifier returns the advanced-security classifier
func (e *Engine) Classifier() *security.Classifier { return e.classifier }

// Execute declares every service, function and agent type of program, runs
// its top-level statements and then calls main, if there is one.
func (e *Engine) Execute(ctx context.Context, program *ast.Program) error {
	_, err := e.run(ctx, program, !e.options.SkipMain)
	return err
}

// Eval runs program like Execute but never calls main. It returns the
// value of the last top-level expression.
func (e *Engine) Eval(ctx context.Context, program *ast.Program) (Value, error) {
	return e.run(ctx, program, false)
}

func (e *Engine) run(ctx context.Context, program *ast.Program, callMain bool) (Value, error) {
	start := time.Now()
	e.declare(program.Statements, e.globals)

	fr := &frame{scope: NewScope(e.globals)}
	var last Value
	for _, stmt := range program.Statements {
		if isDeclaration(stmt) {
			continue
		}
		v, sig, err := e.exec(ctx, fr, stmt)
		if err != nil {
			e.logger.WarnWithErr("Program failed", err, mdwlog.Fields{"file": program.File})
			return Null, err
		}
		if sig == sigReturn {
			last = v
			break
		}
		if sig != sigNone {
			return Null, errorAt(stmt.Position(), mdwerror.CodeUnsupportedOperation, "%s outside of a loop", sig)
		}
		last = v
	}

	if callMain {
		if v, ok := e.globals.Lookup("main"); ok {
			if fn, ok := v.AsFunction(); ok {
				result, err := e.callFunction(ctx, fr, fn, nil, nil, ast.Position{})
				if err != nil {
					e.logger.WarnWithErr("main failed", err, mdwlog.Fields{"file": program.File})
					return Null, err
				}
				last = result
			}
		}
	}

	e.logger.Timed(mdwlog.LevelDebug, "Program executed", start, mdwlog.Fields{
		"file":       program.File,
		"statements": len(program.Statements),
	})
	return last, nil
}

// declare hoists functions, services and agent types into env
func (e *Engine) declare(stmts []ast.Statement, env *Environment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			env.Define(s.Name, FunctionOf(newFunction(s, env, nil)))
		case *ast.ServiceStatement:
			e.services[s.Name] = s
			e.logger.Debug("Service declared", mdwlog.Fields{"service": s.Name, "methods": len(s.Methods)})
		case *ast.AgentStatement:
			e.agentTypes[s.Name] = s
		case *ast.ImportStatement:
			e.imports = append(e.imports, s.Path)
			e.logger.Debug("Import recorded", mdwlog.Fields{"path": s.Path, "alias": s.Alias})
		}
	}
}

func isDeclaration(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.FunctionStatement, *ast.ServiceStatement, *ast.AgentStatement, *ast.ImportStatement:
		return true
	}
	return false
}

// Lookup returns a global binding
func (e *Engine) Lookup(name string) (Value, bool) {
	return e.globals.Lookup(name)
}

// Define binds a global
func (e *Engine) Define(name string, v Value) {
	e.globals.Define(name, v)
}

// Call invokes a global function by name
func (e *Engine) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	v, ok := e.globals.Lookup(name)
	if !ok {
		if b, ok := e.builtins[name]; ok {
			return e.callFunction(ctx, &frame{scope: NewScope(e.globals)}, b, nil, args, ast.Position{})
		}
		return Null, NewError(mdwerror.CodeFunctionNotFound, "function %s not found", name)
	}
	fn, ok := v.AsFunction()
	if !ok {
		return Null, NewError(mdwerror.CodeTypeMismatch, "%s is a %s, not a function", name, v.TypeName())
	}
	return e.callFunction(ctx, &frame{scope: NewScope(e.globals)}, fn, nil, args, ast.Position{})
}

// NewInstance creates an instance of a declared service
func (e *Engine) NewInstance(ctx context.Context, service string, args ...Value) (*Instance, error) {
	return e.instantiate(ctx, &frame{scope: NewScope(e.globals)}, service, args, ast.Position{})
}

// CallMethod invokes a method on an instance from the instance table
func (e *Engine) CallMethod(ctx context.Context, instanceID, method string, args ...Value) (Value, error) {
	inst, ok := e.Instance(instanceID)
	if !ok {
		return Null, NewError(mdwerror.CodeNotFound, "instance %s not found", instanceID)
	}
	return e.callMethod(ctx, &frame{scope: NewScope(e.globals)}, inst, method, args, ast.Position{})
}

// Instance returns an instance by id
func (e *Engine) Instance(id string) (*Instance, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[id]
	return inst, ok
}

// Services returns the declared service names, sorted
func (e *Engine) Services() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.services))
	for name := range e.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) service(name string) (*ast.ServiceStatement, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	svc, ok := e.services[name]
	return svc, ok
}

func (e *Engine) agentType(name string) (*ast.AgentStatement, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	decl, ok := e.agentTypes[name]
	return decl, ok
}

// Events returns a copy of the events emitted so far
func (e *Engine) Events() []EmittedEvent {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	return append([]EmittedEvent(nil), e.events...)
}

func (e *Engine) emit(ev EmittedEvent) {
	e.eventsMu.Lock()
	e.events = append(e.events, ev)
	e.eventsMu.Unlock()

	e.logger.Info("Event emitted", mdwlog.Fields{
		"event":    ev.Name,
		"service":  ev.Service,
		"instance": ev.Instance,
	})
	if e.options.EventSink != nil {
		e.options.EventSink(ev)
	}
}

// instantiate creates a service instance. Fields start at their
// initializer or the zero value of their type; init runs if declared,
// otherwise a single map argument overrides fields.
func (e *Engine) instantiate(ctx context.Context, fr *frame, name string, args []Value, pos ast.Position) (*Instance, error) {
	svc, ok := e.service(name)
	if !ok {
		return nil, errorAt(pos, mdwerror.CodeFunctionNotFound, "service %s not found", name)
	}

	inst := newInstance(uuid.New().String(), svc)
	initFrame := &frame{scope: NewScope(e.globals), depth: fr.depth}
	for _, field := range svc.Fields {
		v := zeroValue(field.Type)
		if field.Value != nil {
			var err error
			if v, err = e.eval(ctx, initFrame, field.Value); err != nil {
				return nil, err
			}
		}
		inst.SetField(field.Name, v)
	}

	e.mu.Lock()
	e.instances[inst.ID] = inst
	e.mu.Unlock()

	switch {
	case svc.Method("init") != nil:
		if _, err := e.callMethod(ctx, fr, inst, "init", args, pos); err != nil {
			return nil, err
		}
	case len(args) == 1:
		m, ok := args[0].AsMap()
		if !ok {
			return nil, errorAt(pos, mdwerror.CodeTypeMismatch, "%s::new expects a map of fields, got %s",
				name, args[0].TypeName())
		}
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			inst.SetField(k, v)
		}
	case len(args) > 1:
		return nil, errorAt(pos, mdwerror.CodeArgumentCount, "%s::new expects at most 1 argument, got %d", name, len(args))
	}

	e.logger.Debug("Service instance created", mdwlog.Fields{"service": name, "instance": inst.ID})
	return inst, nil
}
