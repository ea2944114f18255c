// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     agent
// Description: Agent configuration, context, messages, tasks and metrics
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package agent

import (
	"strings"
	"sync"
	"time"
)

// Built-in agent types. Custom types are spelled "custom" or "custom:<name>".
const (
	TypeAI     = "ai"
	TypeSystem = "system"
	TypeWorker = "worker"
	TypeCustom = "custom"
)

// NormalizeType validates an agent type and returns its canonical spelling
func NormalizeType(agentType string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(agentType))
	switch {
	case t == TypeAI, t == TypeSystem, t == TypeWorker, t == TypeCustom:
		return t, true
	case strings.HasPrefix(t, TypeCustom+":") && len(t) > len(TypeCustom)+1:
		return t, true
	}
	return "", false
}

// baseType maps "custom:<name>" to "custom"
func baseType(agentType string) string {
	if strings.HasPrefix(agentType, TypeCustom+":") {
		return TypeCustom
	}
	return agentType
}

// Status is the lifecycle state of an agent
type Status string

const (
	StatusIdle         Status = "idle"
	StatusActive       Status = "active"
	StatusLearning     Status = "learning"
	StatusCoordinating Status = "coordinating"
	StatusError        Status = "error"
	StatusTerminated   Status = "terminated"
)

// Config describes an agent to spawn.
//
// Capabilities left nil receive the defaults of the agent type. Any non-nil
// list, including an empty one, replaces the defaults entirely.
type Config struct {
	Name         string
	AgentType    string
	Role         string
	Capabilities []string
	TrustLevel   string
	MaxMemory    int
	Metadata     map[string]interface{}
}

// NewConfig creates a config with default trust level and memory bound
func NewConfig(name, agentType string) Config {
	return Config{
		Name:       name,
		AgentType:  agentType,
		TrustLevel: "standard",
		MaxMemory:  DefaultMaxMemory,
	}
}

// WithRole returns a copy with role set
func (c Config) WithRole(role string) Config {
	c.Role = role
	return c
}

// WithCapabilities returns a copy carrying an explicit capability list
func (c Config) WithCapabilities(caps []string) Config {
	c.Capabilities = append(make([]string, 0, len(caps)), caps...)
	return c
}

// WithTrustLevel returns a copy with trust level set
func (c Config) WithTrustLevel(level string) Config {
	c.TrustLevel = level
	return c
}

// DefaultMaxMemory bounds the number of memory entries an agent keeps
const DefaultMaxMemory = 1000

// Priority orders messages and tasks
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
)

// Message is delivered into an agent inbox
type Message struct {
	ID               string
	SenderID         string
	ReceiverID       string
	Type             string
	Content          interface{}
	Priority         Priority
	RequiresResponse bool
	Timestamp        time.Time
}

// TaskStatus is the state of an agent task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is queued for an agent by Coordinate
type Task struct {
	ID           string
	Description  string
	Priority     Priority
	Status       TaskStatus
	Mode         CoordinationMode
	Dependencies []string
	Metadata     map[string]interface{}
	AssignedAt   time.Time
}

// CoordinationMode selects how Coordinate handles a task
type CoordinationMode string

const (
	ModeTaskDistribution   CoordinationMode = "task_distribution"
	ModeResourceSharing    CoordinationMode = "resource_sharing"
	ModeConflictResolution CoordinationMode = "conflict_resolution"
)

// ParseMode validates a coordination mode
func ParseMode(mode string) (CoordinationMode, bool) {
	switch m := CoordinationMode(mode); m {
	case ModeTaskDistribution, ModeResourceSharing, ModeConflictResolution:
		return m, true
	}
	return "", false
}

// Metrics counts agent activity
type Metrics struct {
	TasksAssigned      uint64
	TasksCompleted     uint64
	TasksFailed        uint64
	MessagesSent       uint64
	MessagesReceived   uint64
	CoordinationEvents uint64
	StatusChanges      uint64
}

// SuccessRate is completed / (completed + failed), 0 with no finished tasks
func (m Metrics) SuccessRate() float64 {
	total := m.TasksCompleted + m.TasksFailed
	if total == 0 {
		return 0
	}
	return float64(m.TasksCompleted) / float64(total)
}

// PerformanceScore weighs success 0.5, activity 0.3 and coordination 0.2.
// Activity saturates at 100 messages and coordination at 50 events.
func (m Metrics) PerformanceScore() float64 {
	activity := float64(m.MessagesSent+m.MessagesReceived) / 100
	if activity > 1 {
		activity = 1
	}
	coordination := float64(m.CoordinationEvents) / 50
	if coordination > 1 {
		coordination = 1
	}
	return m.SuccessRate()*0.5 + activity*0.3 + coordination*0.2
}

// Context is a live agent. It is owned by the Manager's table and reached
// by id; other agents never hold a direct reference.
type Context struct {
	ID        string
	Config    Config
	CreatedAt time.Time

	inbox chan Message
	done  chan struct{}

	mu         sync.Mutex
	status     Status
	lastActive time.Time
	tasks      []Task
	memory     map[string]interface{}
	memOrder   []string
	trustScore float64
	metrics    Metrics
	result     interface{}
	err        error
	started    bool
}

func newContext(id string, cfg Config, inboxSize int) *Context {
	now := time.Now().UTC()
	return &Context{
		ID:         id,
		Config:     cfg,
		CreatedAt:  now,
		inbox:      make(chan Message, inboxSize),
		done:       make(chan struct{}),
		status:     StatusIdle,
		lastActive: now,
		memory:     make(map[string]interface{}),
		trustScore: 1.0,
	}
}

// IsCapable reports whether cap is in this instance's own capability list.
// It never consults the type-level registry.
func (a *Context) IsCapable(capability string) bool {
	for _, c := range a.Config.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Status returns the lifecycle state
func (a *Context) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// setStatus moves the agent to s. Terminated is final.
func (a *Context) setStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == s || a.status == StatusTerminated {
		return
	}
	a.status = s
	a.lastActive = time.Now().UTC()
	a.metrics.StatusChanges++
}

// LastActive returns the time of the last status change
func (a *Context) LastActive() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActive
}

// TrustScore returns the current trust score in [0, 1]
func (a *Context) TrustScore() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trustScore
}

// AdjustTrust adds delta to the trust score, clamped to [0, 1]
func (a *Context) AdjustTrust(delta float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trustScore += delta
	if a.trustScore < 0 {
		a.trustScore = 0
	}
	if a.trustScore > 1 {
		a.trustScore = 1
	}
	return a.trustScore
}

// Remember stores a memory entry, evicting the oldest entries beyond
// Config.MaxMemory.
func (a *Context) Remember(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.memory[key]; !exists {
		a.memOrder = append(a.memOrder, key)
	}
	a.memory[key] = value

	limit := a.Config.MaxMemory
	if limit <= 0 {
		limit = DefaultMaxMemory
	}
	for len(a.memOrder) > limit {
		oldest := a.memOrder[0]
		a.memOrder = a.memOrder[1:]
		delete(a.memory, oldest)
	}
}

// Recall returns a memory entry
func (a *Context) Recall(key string) (interface{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.memory[key]
	return v, ok
}

// MemorySize returns the number of memory entries
func (a *Context) MemorySize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.memory)
}

// Metrics returns a snapshot of the counters
func (a *Context) Metrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// RecordTask counts a finished task
func (a *Context) RecordTask(success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if success {
		a.metrics.TasksCompleted++
	} else {
		a.metrics.TasksFailed++
	}
}

// PendingTaskCount returns the number of queued tasks
func (a *Context) PendingTaskCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tasks)
}

// Done is closed when the agent's run function has returned
func (a *Context) Done() <-chan struct{} {
	return a.done
}

// Result returns the value and error of a finished run
func (a *Context) Result() (interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.err
}

// Info is a snapshot for display and the agent:: namespace
type Info struct {
	ID           string
	Name         string
	Type         string
	Role         string
	Capabilities []string
	Status       Status
	TrustScore   float64
	Performance  float64
	CreatedAt    time.Time
}

// Info returns a snapshot of the agent
func (a *Context) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{
		ID:           a.ID,
		Name:         a.Config.Name,
		Type:         a.Config.AgentType,
		Role:         a.Config.Role,
		Capabilities: append([]string(nil), a.Config.Capabilities...),
		Status:       a.status,
		TrustScore:   a.trustScore,
		Performance:  a.metrics.PerformanceScore(),
		CreatedAt:    a.CreatedAt,
	}
}
