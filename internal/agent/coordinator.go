// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Multi-agent workflows executed step by step
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// WorkflowStatus is the state of a workflow
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
)

// StepStatus is the state of one workflow step
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Step binds one task to one agent
type Step struct {
	ID           string
	AgentID      string
	TaskType     string
	Dependencies []string
}

// StepResult records the outcome of a step for later decisions
type StepResult struct {
	StepID   string
	AgentID  string
	Status   StepStatus
	Output   interface{}
	Error    string
	Duration time.Duration
}

// Workflow is a named, ordered list of steps
type Workflow struct {
	ID        string
	Name      string
	Steps     []Step
	Status    WorkflowStatus
	Results   []StepResult
	CreatedAt time.Time
}

// StepExecutor performs one step on its agent
type StepExecutor func(ctx context.Context, agent *Context, step Step) (interface{}, error)

// Coordinator composes agents of one Manager into workflows
type Coordinator struct {
	ID        string
	manager   *Manager
	mu        sync.Mutex
	workflows map[string]*Workflow
	logger    *mdwlog.Logger
}

// NewCoordinator creates a coordinator over manager
func NewCoordinator(manager *Manager) *Coordinator {
	id := "coordinator_" + uuid.New().String()
	return &Coordinator{
		ID:        id,
		manager:   manager,
		workflows: make(map[string]*Workflow),
		logger:    manager.logger.WithField("coordinator_id", id),
	}
}

// CreateWorkflow registers a workflow. Every step must name a known agent.
func (c *Coordinator) CreateWorkflow(name string, steps []Step) (*Workflow, error) {
	seen := make(map[string]bool)
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = fmt.Sprintf("step_%d", i+1)
		}
		if seen[steps[i].ID] {
			return nil, newError(mdwerror.CodeInvalidInput, "", "duplicate step id %q", steps[i].ID)
		}
		seen[steps[i].ID] = true
		agent, err := c.manager.Resolve(steps[i].AgentID)
		if err != nil {
			return nil, err
		}
		steps[i].AgentID = agent.ID
	}

	wf := &Workflow{
		ID:        "workflow_" + uuid.New().String(),
		Name:      name,
		Steps:     steps,
		Status:    WorkflowPending,
		CreatedAt: time.Now().UTC(),
	}
	c.mu.Lock()
	c.workflows[wf.ID] = wf
	c.mu.Unlock()

	c.logger.Info("Workflow created", mdwlog.Fields{
		"workflow_id":   wf.ID,
		"workflow_name": name,
		"steps":         len(steps),
	})
	return wf, nil
}

// Workflow returns a workflow by id
func (c *Coordinator) Workflow(id string) (*Workflow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf, ok := c.workflows[id]
	return wf, ok
}

// Run executes the steps of a workflow in order. A step whose dependencies
// have not completed in this run is skipped. The first failing step fails
// the workflow and the remaining steps are skipped. With a nil executor
// each step is queued on its agent as a task_distribution task.
func (c *Coordinator) Run(ctx context.Context, workflowID string, exec StepExecutor) (*Workflow, error) {
	c.mu.Lock()
	wf, ok := c.workflows[workflowID]
	if !ok {
		c.mu.Unlock()
		return nil, newError(mdwerror.CodeNotFound, "", "workflow %s not found", workflowID)
	}
	if wf.Status == WorkflowRunning {
		c.mu.Unlock()
		return nil, newError(mdwerror.CodeInvalidOperation, "", "workflow %s is already running", workflowID)
	}
	wf.Status = WorkflowRunning
	wf.Results = nil
	c.mu.Unlock()

	if exec == nil {
		exec = c.queueStep
	}

	completed := make(map[string]bool)
	failed := false
	var results []StepResult
	for _, step := range wf.Steps {
		result := StepResult{StepID: step.ID, AgentID: step.AgentID}

		if failed || !dependenciesMet(step, completed) {
			result.Status = StepSkipped
			results = append(results, result)
			continue
		}
		if err := ctx.Err(); err != nil {
			c.finish(wf, results, WorkflowFailed)
			return wf, err
		}

		agent, err := c.manager.Get(step.AgentID)
		if err != nil {
			result.Status = StepFailed
			result.Error = err.Error()
			results = append(results, result)
			failed = true
			continue
		}

		agent.setStatus(StatusCoordinating)
		start := time.Now()
		output, err := exec(ctx, agent, step)
		result.Duration = time.Since(start)
		if agent.Status() == StatusCoordinating {
			agent.setStatus(StatusIdle)
		}

		agent.mu.Lock()
		agent.metrics.CoordinationEvents++
		agent.mu.Unlock()
		agent.RecordTask(err == nil)

		if err != nil {
			result.Status = StepFailed
			result.Error = err.Error()
			failed = true
			agent.AdjustTrust(-0.1)
		} else {
			result.Status = StepCompleted
			result.Output = output
			completed[step.ID] = true
		}
		results = append(results, result)
	}

	status := WorkflowCompleted
	if failed {
		status = WorkflowFailed
	}
	c.finish(wf, results, status)
	c.logger.Info("Workflow finished", mdwlog.Fields{
		"workflow_id": wf.ID,
		"status":      string(status),
	})
	return wf, nil
}

func (c *Coordinator) finish(wf *Workflow, results []StepResult, status WorkflowStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wf.Results = results
	wf.Status = status
}

func (c *Coordinator) queueStep(_ context.Context, agent *Context, step Step) (interface{}, error) {
	task, err := c.manager.Coordinate(agent.ID, Task{
		Description:  "Workflow step: " + step.ID,
		Dependencies: step.Dependencies,
		Metadata:     map[string]interface{}{"task_type": step.TaskType},
	}, string(ModeTaskDistribution))
	if err != nil {
		return nil, err
	}
	return task.ID, nil
}

func dependenciesMet(step Step, completed map[string]bool) bool {
	for _, dep := range step.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}
