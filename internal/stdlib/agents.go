// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: agent:: namespace over the agent subsystem
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"errors"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/runtime"
)

type agentNamespace struct {
	manager     *agent.Manager
	coordinator *agent.Coordinator
}

func newAgentNamespace(manager *agent.Manager) *agentNamespace {
	return &agentNamespace{
		manager:     manager,
		coordinator: agent.NewCoordinator(manager),
	}
}

func messageMap(msg agent.Message) map[string]interface{} {
	return map[string]interface{}{
		"id":                msg.ID,
		"sender_id":         msg.SenderID,
		"receiver_id":       msg.ReceiverID,
		"type":              msg.Type,
		"content":           msg.Content,
		"priority":          string(msg.Priority),
		"requires_response": msg.RequiresResponse,
		"timestamp":         msg.Timestamp.Unix(),
	}
}

func taskMap(task agent.Task) map[string]interface{} {
	deps := make([]interface{}, len(task.Dependencies))
	for i, d := range task.Dependencies {
		deps[i] = d
	}
	m := map[string]interface{}{
		"id":           task.ID,
		"description":  task.Description,
		"priority":     string(task.Priority),
		"status":       string(task.Status),
		"mode":         string(task.Mode),
		"dependencies": deps,
		"assigned_at":  task.AssignedAt.Unix(),
	}
	if task.Metadata != nil {
		m["metadata"] = task.Metadata
	}
	return m
}

func infoMap(info agent.Info) map[string]interface{} {
	return map[string]interface{}{
		"id":           info.ID,
		"name":         info.Name,
		"type":         info.Type,
		"role":         info.Role,
		"capabilities": info.Capabilities,
		"status":       string(info.Status),
		"trust_score":  info.TrustScore,
		"performance":  info.Performance,
		"created_at":   info.CreatedAt.Unix(),
	}
}

func workflowMap(wf *agent.Workflow) map[string]interface{} {
	results := make([]interface{}, len(wf.Results))
	for i, r := range wf.Results {
		res := map[string]interface{}{
			"step_id":     r.StepID,
			"agent_id":    r.AgentID,
			"status":      string(r.Status),
			"output":      r.Output,
			"duration_ms": r.Duration.Milliseconds(),
		}
		if r.Error != "" {
			res["error"] = r.Error
		}
		results[i] = res
	}
	return map[string]interface{}{
		"id":         wf.ID,
		"name":       wf.Name,
		"status":     string(wf.Status),
		"steps":      len(wf.Steps),
		"results":    results,
		"created_at": wf.CreatedAt.Unix(),
	}
}

// taskFromValue accepts a description string or a map with description,
// priority, dependencies and further metadata
func taskFromValue(v runtime.Value) agent.Task {
	if s, ok := v.AsString(); ok {
		return agent.Task{Description: s}
	}
	task := agent.Task{Metadata: map[string]interface{}{}}
	m, ok := v.Interface().(map[string]interface{})
	if !ok {
		task.Description = v.String()
		return task
	}
	for k, raw := range m {
		switch k {
		case "id":
			task.ID, _ = raw.(string)
		case "description":
			task.Description, _ = raw.(string)
		case "priority":
			if p, ok := raw.(string); ok {
				task.Priority = agent.Priority(p)
			}
		case "dependencies":
			if list, ok := raw.([]interface{}); ok {
				for _, d := range list {
					if s, ok := d.(string); ok {
						task.Dependencies = append(task.Dependencies, s)
					}
				}
			}
		default:
			task.Metadata[k] = raw
		}
	}
	return task
}

func stepsFromValue(a runtime.Args, i int) ([]agent.Step, error) {
	vec, err := a.Vector(i)
	if err != nil {
		return nil, err
	}
	steps := make([]agent.Step, 0, vec.Len())
	for n, item := range vec.Items() {
		m, ok := item.Interface().(map[string]interface{})
		if !ok {
			return nil, runtime.NewError(mdwerror.CodeTypeMismatch, "%s: step %d must be a map", a.Function, n+1)
		}
		step := agent.Step{}
		step.ID, _ = m["id"].(string)
		step.AgentID, _ = m["agent_id"].(string)
		if step.AgentID == "" {
			step.AgentID, _ = m["agent"].(string)
		}
		step.TaskType, _ = m["task_type"].(string)
		if deps, ok := m["dependencies"].([]interface{}); ok {
			for _, d := range deps {
				if s, ok := d.(string); ok {
					step.Dependencies = append(step.Dependencies, s)
				}
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// agentRef reads an agent id, name or handle
func agentRef(a runtime.Args, i int) (string, error) {
	if h, ok := a.Get(i).AsAgent(); ok {
		return h.ID, nil
	}
	return a.String(i)
}

func (l *Library) agentFuncs() runtime.FuncTable {
	ns := l.agents
	m := ns.manager
	return runtime.FuncTable{
		// spawn(config) creates an idle agent and returns its id
		"spawn": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::spawn", args)
			cfgMap, err := a.Map(0)
			if err != nil {
				return runtime.Null, err
			}
			cfg, err := agent.ConfigFromMap(runtime.MapOf(cfgMap).Interface().(map[string]interface{}))
			if err != nil {
				return runtime.Null, runtime.NewError(mdwerror.CodeInvalidInput, "agent::spawn: %v", err)
			}
			ac, err := m.Spawn(cfg)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(ac.ID), nil
		},

		// communicate(receiver, content[, type[, priority]]) returns the message id
		"communicate": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::communicate", args)
			if err := a.Want(2); err != nil {
				return runtime.Null, err
			}
			receiver, err := agentRef(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			msgType, err := a.StringOr(2, "")
			if err != nil {
				return runtime.Null, err
			}
			priority, err := a.StringOr(3, "")
			if err != nil {
				return runtime.Null, err
			}
			msg, err := m.Communicate(sender(ctx), receiver, agent.Message{
				Type:     msgType,
				Content:  a.Get(1).Interface(),
				Priority: agent.Priority(priority),
			})
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(msg.ID), nil
		},

		"receive_messages": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::receive_messages", args)
			id, err := selfOrRef(ctx, a)
			if err != nil {
				return runtime.Null, err
			}
			msgs, err := m.ReceiveMessages(id)
			if err != nil {
				return runtime.Null, err
			}
			items := make([]runtime.Value, len(msgs))
			for i, msg := range msgs {
				items[i] = runtime.FromInterface(messageMap(msg))
			}
			return runtime.NewVectorValue(items...), nil
		},

		// wait_message([agent], timeout_ms) blocks for the next message
		"wait_message": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::wait_message", args)
			id, err := selfOrRef(ctx, a)
			if err != nil {
				return runtime.Null, err
			}
			ms := int64(1000)
			if n, ok := a.Get(a.Len() - 1).AsInt(); ok {
				ms = n
			}
			waitCtx, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
			defer cancel()
			msg, err := m.NextMessage(waitCtx, id)
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return runtime.Null, nil
			}
			if err != nil {
				return runtime.Null, err
			}
			return runtime.FromInterface(messageMap(msg)), nil
		},

		// coordinate(agent, task, mode) returns the queued task id
		"coordinate": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::coordinate", args)
			if err := a.Exactly(3); err != nil {
				return runtime.Null, err
			}
			id, err := agentRef(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			mode, err := a.String(2)
			if err != nil {
				return runtime.Null, err
			}
			task, err := m.Coordinate(id, taskFromValue(a.Get(1)), mode)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(task.ID), nil
		},

		"receive_pending_tasks": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::receive_pending_tasks", args)
			id, err := selfOrRef(ctx, a)
			if err != nil {
				return runtime.Null, err
			}
			tasks, err := m.ReceivePendingTasks(id)
			if err != nil {
				return runtime.Null, err
			}
			items := make([]runtime.Value, len(tasks))
			for i, t := range tasks {
				items[i] = runtime.FromInterface(taskMap(t))
			}
			return runtime.NewVectorValue(items...), nil
		},

		// validate_capabilities(type, required) checks the type-level list.
		// Missing capabilities yield false; an unknown type is an error.
		"validate_capabilities": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::validate_capabilities", args)
			agentType, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			required, err := a.Strings(1)
			if err != nil {
				return runtime.Null, err
			}
			ok, err := m.ValidateCapabilities(agentType, required)
			var missing *agent.MissingCapabilitiesError
			if errors.As(err, &missing) {
				return runtime.Bool(false), nil
			}
			if err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(ok), nil
		},

		// is_capable(agent, capability) checks the instance's own list
		"is_capable": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::is_capable", args)
			id, err := agentRef(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			capability, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			ok, err := m.IsCapable(id, capability)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(ok), nil
		},

		"register_capabilities": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::register_capabilities", args)
			agentType, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			normalized, ok := agent.NormalizeType(agentType)
			if !ok {
				return runtime.Null, runtime.NewError(mdwerror.CodeInvalidInput, "invalid agent type %q", agentType)
			}
			caps, err := a.Strings(1)
			if err != nil {
				return runtime.Null, err
			}
			m.RegisterCapabilities(normalized, caps)
			return runtime.Bool(true), nil
		},

		"get_info": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::get_info", args)
			id, err := agentRef(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			ac, err := m.Resolve(id)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.FromInterface(infoMap(ac.Info())), nil
		},

		"list": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			infos := m.List()
			items := make([]runtime.Value, len(infos))
			for i, info := range infos {
				items[i] = runtime.FromInterface(infoMap(info))
			}
			return runtime.NewVectorValue(items...), nil
		},

		"terminate": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::terminate", args)
			id, err := agentRef(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			if err := m.Terminate(id); err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(true), nil
		},

		// create_workflow(name, steps) where each step is
		// { id, agent_id, task_type, dependencies }
		"create_workflow": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("agent::create_workflow", args)
			name, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			steps, err := stepsFromValue(a, 1)
			if err != nil {
				return runtime.Null, err
			}
			wf, err := ns.coordinator.CreateWorkflow(name, steps)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(wf.ID), nil
		},

		// run_workflow(id) queues each step on its agent and returns the results
		"run_workflow": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			id, err := runtime.NewArgs("agent::run_workflow", args).String(0)
			if err != nil {
				return runtime.Null, err
			}
			wf, err := ns.coordinator.Run(ctx, id, nil)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.FromInterface(workflowMap(wf)), nil
		},
	}
}

// selfOrRef reads an optional leading agent reference, defaulting to the
// agent the call runs in
func selfOrRef(ctx context.Context, a runtime.Args) (string, error) {
	if a.Len() > 0 {
		if _, isInt := a.Get(0).AsInt(); !isInt {
			return agentRef(a, 0)
		}
	}
	if id, ok := runtime.AgentIDFrom(ctx); ok {
		return id, nil
	}
	return "", runtime.NewError(mdwerror.CodeInvalidInput, "%s needs an agent outside of an agent body", a.Function)
}
