// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Tests for workflow coordination
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoordinator_RunInOrder tests ordered execution and recorded results
func TestCoordinator_RunInOrder(t *testing.T) {
	m := newManager(t)
	fetch, _ := m.Spawn(NewConfig("fetcher", "worker"))
	analyze, _ := m.Spawn(NewConfig("analyst", "ai"))
	c := NewCoordinator(m)

	wf, err := c.CreateWorkflow("pipeline", []Step{
		{ID: "fetch", AgentID: "fetcher", TaskType: "data_processing"},
		{ID: "analyze", AgentID: analyze.ID, TaskType: "analysis", Dependencies: []string{"fetch"}},
	})
	require.NoError(t, err)
	assert.Equal(t, fetch.ID, wf.Steps[0].AgentID)

	var order []string
	wf, err = c.Run(context.Background(), wf.ID, func(ctx context.Context, a *Context, s Step) (interface{}, error) {
		order = append(order, s.ID)
		return a.Config.Name + ":" + s.TaskType, nil
	})
	require.NoError(t, err)
	assert.Equal(t, WorkflowCompleted, wf.Status)
	assert.Equal(t, []string{"fetch", "analyze"}, order)
	require.Len(t, wf.Results, 2)
	assert.Equal(t, "analyst:analysis", wf.Results[1].Output)
	assert.Equal(t, uint64(1), analyze.Metrics().CoordinationEvents)
}

// TestCoordinator_FailureSkipsRest tests failure propagation
func TestCoordinator_FailureSkipsRest(t *testing.T) {
	m := newManager(t)
	a, _ := m.Spawn(NewConfig("a", "worker"))
	c := NewCoordinator(m)

	wf, err := c.CreateWorkflow("broken", []Step{
		{AgentID: a.ID},
		{AgentID: a.ID},
		{AgentID: a.ID, Dependencies: []string{"step_1"}},
	})
	require.NoError(t, err)

	wf, err = c.Run(context.Background(), wf.ID, func(ctx context.Context, _ *Context, s Step) (interface{}, error) {
		if s.ID == "step_2" {
			return nil, errors.New("boom")
		}
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, WorkflowFailed, wf.Status)
	assert.Equal(t, StepCompleted, wf.Results[0].Status)
	assert.Equal(t, StepFailed, wf.Results[1].Status)
	assert.Equal(t, "boom", wf.Results[1].Error)
	assert.Equal(t, StepSkipped, wf.Results[2].Status)
	assert.Less(t, a.TrustScore(), 1.0)
}

// TestCoordinator_DefaultExecutorQueuesTasks tests the default executor
func TestCoordinator_DefaultExecutorQueuesTasks(t *testing.T) {
	m := newManager(t)
	a, _ := m.Spawn(NewConfig("a", "worker"))
	c := NewCoordinator(m)

	wf, err := c.CreateWorkflow("queue", []Step{{AgentID: a.ID, TaskType: "automation"}})
	require.NoError(t, err)
	_, err = c.Run(context.Background(), wf.ID, nil)
	require.NoError(t, err)

	tasks, _ := m.ReceivePendingTasks(a.ID)
	require.Len(t, tasks, 1)
	assert.Equal(t, "automation", tasks[0].Metadata["task_type"])
	assert.Equal(t, ModeTaskDistribution, tasks[0].Mode)
}

// TestCoordinator_Errors tests unknown agents and workflows
func TestCoordinator_Errors(t *testing.T) {
	m := newManager(t)
	c := NewCoordinator(m)
	_, err := c.CreateWorkflow("x", []Step{{AgentID: "ghost"}})
	assert.Error(t, err)
	_, err = c.Run(context.Background(), "missing", nil)
	assert.Error(t, err)

	a, _ := m.Spawn(NewConfig("a", "ai"))
	_, err = c.CreateWorkflow("dup", []Step{{ID: "s", AgentID: a.ID}, {ID: "s", AgentID: a.ID}})
	assert.Error(t, err)
}
