// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Agent table, spawning, messaging and coordination
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package agent implements the agent subsystem: spawning independent
// execution units, their inboxes and task queues, capability checks and
// multi-agent workflows.
package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// DefaultInboxSize is the inbox capacity of a spawned agent
const DefaultInboxSize = 256

// RunFunc is the body of a spawned agent. It runs on its own goroutine.
type RunFunc func(ctx context.Context, agent *Context) (interface{}, error)

// Options configures a Manager
type Options struct {
	Logger    *mdwlog.Logger
	InboxSize int
	Registry  *CapabilityRegistry
}

// Manager owns every agent context, keyed by id
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*Context
	byName map[string]string
	wg     sync.WaitGroup

	registry  *CapabilityRegistry
	inboxSize int
	logger    *mdwlog.Logger
}

// NewManager creates a manager
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	if opts.Registry == nil {
		opts.Registry = NewCapabilityRegistry()
	}
	return &Manager{
		agents:    make(map[string]*Context),
		byName:    make(map[string]string),
		registry:  opts.Registry,
		inboxSize: opts.InboxSize,
		logger:    opts.Logger.WithField("component", "dal-agents"),
	}
}

// Registry returns the type-level capability registry
func (m *Manager) Registry() *CapabilityRegistry {
	return m.registry
}

// Spawn creates an agent context and adds it to the table. The agent does
// nothing until Start is called with a body.
func (m *Manager) Spawn(cfg Config) (*Context, error) {
	agentType := cfg.AgentType
	if agentType == "" {
		agentType = TypeCustom
	}
	normalized, ok := NormalizeType(agentType)
	if !ok {
		return nil, newError(mdwerror.CodeInvalidInput, "", "invalid agent type %q", cfg.AgentType)
	}
	cfg.AgentType = normalized
	if cfg.Capabilities == nil {
		cfg.Capabilities = DefaultCapabilities(normalized)
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = DefaultMaxMemory
	}
	if cfg.TrustLevel == "" {
		cfg.TrustLevel = "standard"
	}

	id := "agent_" + uuid.New().String()
	if cfg.Name == "" {
		cfg.Name = id
	}
	agent := newContext(id, cfg, m.inboxSize)

	m.mu.Lock()
	m.agents[id] = agent
	m.byName[cfg.Name] = id
	m.mu.Unlock()

	m.logger.Info("Agent spawned", mdwlog.Fields{
		"agent_id":     id,
		"agent_name":   cfg.Name,
		"agent_type":   normalized,
		"capabilities": len(cfg.Capabilities),
	})
	return agent, nil
}

// Start runs body on a new goroutine and returns immediately
func (m *Manager) Start(ctx context.Context, id string, body RunFunc) error {
	agent, err := m.Get(id)
	if err != nil {
		return err
	}

	agent.mu.Lock()
	if agent.started {
		agent.mu.Unlock()
		return newError(mdwerror.CodeInvalidOperation, id, "already started")
	}
	if agent.status == StatusTerminated {
		agent.mu.Unlock()
		return newError(mdwerror.CodeInvalidOperation, id, "terminated")
	}
	agent.started = true
	agent.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(agent.done)

		agent.setStatus(StatusActive)
		start := time.Now()
		result, runErr := body(ctx, agent)

		agent.mu.Lock()
		agent.result = result
		agent.err = runErr
		agent.mu.Unlock()

		agent.RecordTask(runErr == nil)
		if runErr != nil {
			agent.setStatus(StatusError)
			m.logger.WarnWithErr("Agent body failed", runErr, mdwlog.Fields{"agent_id": id})
			return
		}
		agent.setStatus(StatusIdle)
		m.logger.Timed(mdwlog.LevelDebug, "Agent body finished", start, mdwlog.Fields{"agent_id": id})
	}()
	return nil
}

// Wait blocks until the agent's body returns and yields its result.
// An agent that was never started has nothing to wait for.
func (m *Manager) Wait(ctx context.Context, id string) (interface{}, error) {
	agent, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	agent.mu.Lock()
	started := agent.started
	agent.mu.Unlock()
	if !started {
		return nil, nil
	}

	select {
	case <-agent.done:
		return agent.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitAll blocks until every started agent has finished
func (m *Manager) WaitAll(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns an agent by id
func (m *Manager) Get(id string) (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[id]
	if !ok {
		return nil, errNotFound(id)
	}
	return agent, nil
}

// FindByName returns the most recently spawned agent with name
func (m *Manager) FindByName(name string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	agent, ok := m.agents[id]
	return agent, ok
}

// Resolve accepts an agent id or name
func (m *Manager) Resolve(ref string) (*Context, error) {
	if agent, err := m.Get(ref); err == nil {
		return agent, nil
	}
	if agent, ok := m.FindByName(ref); ok {
		return agent, nil
	}
	return nil, errNotFound(ref)
}

// List returns snapshots of all agents ordered by creation time
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.agents))
	for _, a := range m.agents {
		infos = append(infos, a.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Communicate enqueues msg into the receiver's inbox without blocking.
// A full inbox is an error, not back-pressure on the sender.
func (m *Manager) Communicate(senderID, receiverID string, msg Message) (Message, error) {
	receiver, err := m.Resolve(receiverID)
	if err != nil {
		return Message{}, err
	}
	if receiver.Status() == StatusTerminated {
		return Message{}, newError(mdwerror.CodeInvalidOperation, receiver.ID, "cannot receive messages after termination")
	}

	if msg.ID == "" {
		msg.ID = "msg_" + uuid.New().String()
	}
	if msg.Type == "" {
		msg.Type = "message"
	}
	if msg.Priority == "" {
		msg.Priority = PriorityNormal
	}
	msg.SenderID = senderID
	msg.ReceiverID = receiver.ID
	msg.Timestamp = time.Now().UTC()

	select {
	case receiver.inbox <- msg:
	default:
		return Message{}, newError(mdwerror.CodeInboxFull, receiver.ID, "inbox full (%d messages)", cap(receiver.inbox))
	}

	receiver.mu.Lock()
	receiver.metrics.MessagesReceived++
	receiver.mu.Unlock()
	if sender, err := m.Get(senderID); err == nil {
		sender.mu.Lock()
		sender.metrics.MessagesSent++
		sender.mu.Unlock()
	}

	m.logger.Debug("Message delivered", mdwlog.Fields{
		"sender_id":    senderID,
		"receiver_id":  receiver.ID,
		"message_id":   msg.ID,
		"message_type": msg.Type,
	})
	return msg, nil
}

// ReceiveMessages drains and returns the inbox of an agent
func (m *Manager) ReceiveMessages(id string) ([]Message, error) {
	agent, err := m.Resolve(id)
	if err != nil {
		return nil, err
	}
	var out []Message
	for {
		select {
		case msg := <-agent.inbox:
			out = append(out, msg)
		default:
			return out, nil
		}
	}
}

// NextMessage blocks until a message arrives or ctx is done
func (m *Manager) NextMessage(ctx context.Context, id string) (Message, error) {
	agent, err := m.Resolve(id)
	if err != nil {
		return Message{}, err
	}
	select {
	case msg := <-agent.inbox:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Coordinate queues task for an agent under a coordination mode
func (m *Manager) Coordinate(id string, task Task, mode string) (Task, error) {
	coordMode, ok := ParseMode(mode)
	if !ok {
		return Task{}, newError(mdwerror.CodeInvalidInput, id, "unknown coordination type %q", mode)
	}
	agent, err := m.Resolve(id)
	if err != nil {
		return Task{}, err
	}
	if agent.Status() == StatusTerminated {
		return Task{}, newError(mdwerror.CodeInvalidOperation, agent.ID, "cannot coordinate after termination")
	}

	if task.ID == "" {
		task.ID = "task_" + uuid.New().String()
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	task.Status = TaskPending
	task.Mode = coordMode
	task.AssignedAt = time.Now().UTC()

	agent.mu.Lock()
	agent.tasks = append(agent.tasks, task)
	agent.metrics.TasksAssigned++
	agent.metrics.CoordinationEvents++
	agent.mu.Unlock()

	var message string
	switch coordMode {
	case ModeTaskDistribution:
		message = "Task distributed"
	case ModeResourceSharing:
		message = "Resources shared"
	case ModeConflictResolution:
		message = "Conflict resolution queued"
	}
	m.logger.Info(message, mdwlog.Fields{
		"agent_id":          agent.ID,
		"task_id":           task.ID,
		"coordination_type": string(coordMode),
	})
	return task, nil
}

// ReceivePendingTasks drains and returns the task queue of an agent
func (m *Manager) ReceivePendingTasks(id string) ([]Task, error) {
	agent, err := m.Resolve(id)
	if err != nil {
		return nil, err
	}
	agent.mu.Lock()
	defer agent.mu.Unlock()
	tasks := agent.tasks
	agent.tasks = nil
	return tasks, nil
}

// ValidateCapabilities checks required against the type-level list of
// agentType. It never looks at a spawned instance.
func (m *Manager) ValidateCapabilities(agentType string, required []string) (bool, error) {
	normalized, ok := NormalizeType(agentType)
	if !ok {
		return false, newError(mdwerror.CodeInvalidInput, "", "invalid agent type %q", agentType)
	}
	allowed := m.registry.TypeCapabilities(normalized)

	var missing []string
	for _, req := range required {
		found := false
		for _, c := range allowed {
			if c == req {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return false, &MissingCapabilitiesError{AgentType: normalized, Missing: missing}
	}
	return true, nil
}

// IsCapable checks capability against one instance's own list
func (m *Manager) IsCapable(id, capability string) (bool, error) {
	agent, err := m.Resolve(id)
	if err != nil {
		return false, err
	}
	return agent.IsCapable(capability), nil
}

// RegisterCapabilities overrides the type-level list of agentType
func (m *Manager) RegisterCapabilities(agentType string, caps []string) {
	m.registry.Register(agentType, caps)
	m.logger.Info("Capabilities registered", mdwlog.Fields{
		"agent_type":   agentType,
		"capabilities": len(caps),
	})
}

// Terminate marks an agent terminated. Its running body, if any, is not
// interrupted; it stops receiving messages and tasks.
func (m *Manager) Terminate(id string) error {
	agent, err := m.Resolve(id)
	if err != nil {
		return err
	}
	agent.setStatus(StatusTerminated)
	m.logger.Info("Agent terminated", mdwlog.Fields{"agent_id": agent.ID})
	return nil
}
