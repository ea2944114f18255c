// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Spawn, await, msg and event execution
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/ast"
)

// MainSender is the sender id of messages sent outside any agent
const MainSender = "main"

// agentTypeName maps a DAL type name onto an agent subsystem type.
// Unknown names become custom:<name>.
func agentTypeName(name string) string {
	if name == "" {
		return agent.TypeCustom
	}
	if t, ok := agent.NormalizeType(name); ok {
		return t
	}
	return agent.TypeCustom + ":" + name
}

// mergeConfig overlays the non-empty settings of over onto base. An
// explicit capability list replaces the inherited one.
func mergeConfig(base, over agent.Config) agent.Config {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.AgentType != "" {
		base.AgentType = agentTypeName(over.AgentType)
	}
	if over.Role != "" {
		base.Role = over.Role
	}
	if over.TrustLevel != "" {
		base.TrustLevel = over.TrustLevel
	}
	if over.MaxMemory > 0 {
		base.MaxMemory = over.MaxMemory
	}
	if over.Capabilities != nil {
		base.Capabilities = over.Capabilities
	}
	if len(over.Metadata) > 0 {
		if base.Metadata == nil {
			base.Metadata = make(map[string]interface{})
		}
		for k, v := range over.Metadata {
			base.Metadata[k] = v
		}
	}
	return base
}

func (e *Engine) configFromLiteral(ctx context.Context, fr *frame, lit *ast.ObjectLiteral) (agent.Config, error) {
	if lit == nil || len(lit.Entries) == 0 {
		return agent.Config{}, nil
	}
	m, err := e.evalObject(ctx, fr, lit)
	if err != nil {
		return agent.Config{}, err
	}
	raw, _ := MapOf(m).Interface().(map[string]interface{})
	cfg, err := agent.ConfigFromMap(raw)
	if err != nil {
		return agent.Config{}, errorAt(lit.Pos, mdwerror.CodeInvalidInput, "agent config: %v", err)
	}
	return cfg, nil
}

// execSpawn creates an agent from a spawn statement. A type naming a
// declared agent inherits its type, capabilities, config and body. The
// agent starts at once on its own goroutine; the handle is bound to the
// spawn name in the current scope.
func (e *Engine) execSpawn(ctx context.Context, fr *frame, s *ast.SpawnStatement) (Value, error) {
	cfg := agent.NewConfig(s.Name, agentTypeName(s.AgentType))
	var bodies []*ast.BlockStatement

	if decl, ok := e.agentType(s.AgentType); ok {
		cfg.AgentType = agentTypeName(decl.AgentType)
		declared, err := e.configFromLiteral(ctx, fr, decl.Config)
		if err != nil {
			return Null, err
		}
		declared.Name = ""
		cfg = mergeConfig(cfg, declared)
		if len(decl.Capabilities) > 0 {
			cfg = cfg.WithCapabilities(decl.Capabilities)
		}
		if decl.Body != nil && len(decl.Body.Statements) > 0 {
			bodies = append(bodies, decl.Body)
		}
	}

	explicit, err := e.configFromLiteral(ctx, fr, s.Config)
	if err != nil {
		return Null, err
	}
	cfg = mergeConfig(cfg, explicit)
	if s.Body != nil && len(s.Body.Statements) > 0 {
		bodies = append(bodies, s.Body)
	}

	handle, err := e.spawn(ctx, fr, cfg, s.Pos, func(runCtx context.Context, afr *frame) (Value, error) {
		var last Value
		for _, body := range bodies {
			v, sig, err := e.execBlock(runCtx, afr, body)
			if err != nil {
				return Null, err
			}
			last = v
			if sig == sigReturn {
				break
			}
		}
		return last, nil
	})
	if err != nil {
		return Null, err
	}
	fr.scope.Current().Define(s.Name, AgentOf(handle))
	return AgentOf(handle), nil
}

// evalSpawn runs `spawn expr` as an anonymous agent whose result is the
// value of expr
func (e *Engine) evalSpawn(ctx context.Context, fr *frame, x *ast.SpawnExpression) (Value, error) {
	cfg := agent.NewConfig("", agent.TypeCustom)
	handle, err := e.spawn(ctx, fr, cfg, x.Pos, func(runCtx context.Context, afr *frame) (Value, error) {
		return e.eval(runCtx, afr, x.Operand)
	})
	if err != nil {
		return Null, err
	}
	return AgentOf(handle), nil
}

type agentBody func(ctx context.Context, fr *frame) (Value, error)

// spawn registers cfg with the agent subsystem and starts body. The body
// sees the spawning scope as its closure but gets its own frame stack.
func (e *Engine) spawn(ctx context.Context, fr *frame, cfg agent.Config, pos ast.Position, body agentBody) (*AgentHandle, error) {
	a, err := e.agents.Spawn(cfg)
	if err != nil {
		return nil, AsError(err, pos)
	}
	handle := &AgentHandle{ID: a.ID, Name: a.Config.Name, Type: a.Config.AgentType}
	closure := fr.scope.Current()

	run := func(runCtx context.Context, ac *agent.Context) (interface{}, error) {
		runCtx = withNewCallPath(runCtx)
		afr := &frame{scope: NewScope(closure), depth: fr.depth}
		env := afr.scope.Push()
		env.Define("agent_id", String(ac.ID))
		v, err := body(runCtx, afr)
		if popErr := afr.scope.Pop(); popErr != nil && err == nil {
			err = popErr
		}
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := e.agents.Start(WithAgentID(ctx, a.ID), a.ID, run); err != nil {
		return nil, AsError(err, pos)
	}

	e.logger.Debug("Agent started", mdwlog.Fields{
		"agent_id":   handle.ID,
		"agent_name": handle.Name,
		"agent_type": handle.Type,
	})
	return handle, nil
}

// evalAwait waits for an agent handle, sleeps for a number of
// milliseconds, or yields any other value unchanged
func (e *Engine) evalAwait(ctx context.Context, fr *frame, x *ast.AwaitExpression) (Value, error) {
	v, err := e.eval(ctx, fr, x.Operand)
	if err != nil {
		return Null, err
	}

	if h, ok := v.AsAgent(); ok {
		resume := suspendLocks(ctx)
		result, err := e.agents.Wait(ctx, h.ID)
		resume()
		if err != nil {
			return Null, AsError(err, x.Pos)
		}
		if rv, ok := result.(Value); ok {
			return rv, nil
		}
		return FromInterface(result), nil
	}

	if ms, ok := v.AsNumber(); ok {
		if ms < 0 {
			return Null, errorAt(x.Pos, mdwerror.CodeInvalidInput, "cannot await a negative duration")
		}
		timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
		defer timer.Stop()
		resume := suspendLocks(ctx)
		defer resume()
		select {
		case <-timer.C:
			return Null, nil
		case <-ctx.Done():
			return Null, ctx.Err()
		}
	}
	return v, nil
}

// resolveRecipient maps a msg recipient to an agent id: a variable holding
// an agent handle or id, else an agent name or id known to the subsystem
func (e *Engine) resolveRecipient(fr *frame, name string) string {
	if v, ok := fr.scope.Current().Lookup(name); ok {
		if h, ok := v.AsAgent(); ok {
			return h.ID
		}
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return name
}

func (e *Engine) execMsg(ctx context.Context, fr *frame, s *ast.MsgStatement) error {
	data := NewMap()
	if s.Data != nil {
		var err error
		if data, err = e.evalObject(ctx, fr, s.Data); err != nil {
			return err
		}
	}

	sender, ok := AgentIDFrom(ctx)
	if !ok {
		sender = MainSender
	}
	msgType := "dal_message"
	if t, ok := data.Get("type"); ok {
		msgType = t.String()
	}

	msg, err := e.agents.Communicate(sender, e.resolveRecipient(fr, s.Recipient), agent.Message{
		Type:    msgType,
		Content: MapOf(data).Interface(),
	})
	if err != nil {
		return AsError(err, s.Pos)
	}
	e.logger.Debug("Message sent", mdwlog.Fields{
		"sender_id":   sender,
		"receiver_id": msg.ReceiverID,
		"message_id":  msg.ID,
	})
	return nil
}

func (e *Engine) execEvent(ctx context.Context, fr *frame, s *ast.EventStatement) error {
	data := NewMap()
	if s.Data != nil {
		var err error
		if data, err = e.evalObject(ctx, fr, s.Data); err != nil {
			return err
		}
	}
	raw, _ := MapOf(data).Interface().(map[string]interface{})

	ev := EmittedEvent{Name: s.Name, Data: raw, Timestamp: time.Now().UTC()}
	if self, ok := selfOf(fr.scope.Current()); ok {
		ev.Service = self.Type
		ev.Instance = self.ID
	}
	if id, ok := AgentIDFrom(ctx); ok {
		ev.Agent = id
	}
	e.emit(ev)
	return nil
}
