// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     store
// Description: Persistence for audit entries, emitted events and runs
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package store persists what a DAL run leaves behind: the audit trail of
// @secure calls, every emitted event and one record per executed program.
package store

import (
	"context"
	"time"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/runtime"
)

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "error"
)

// AuditRecord is a stored guard.AuditEntry
type AuditRecord struct {
	ID        int64     `json:"id"`
	Caller    string    `json:"caller"`
	Method    string    `json:"method"`
	Instance  string    `json:"instance,omitempty"`
	Outcome   string    `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// EventRecord is a stored runtime.EmittedEvent
type EventRecord struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Service   string                 `json:"service,omitempty"`
	Instance  string                 `json:"instance,omitempty"`
	Agent     string                 `json:"agent,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// RunRecord describes one program execution
type RunRecord struct {
	ID          string    `json:"id"`
	File        string    `json:"file"`
	Caller      string    `json:"caller,omitempty"`
	Status      string    `json:"status"` // running, completed, error
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    int64     `json:"duration_ms"`
}

// AuditFilter narrows ListAudit. Empty fields match everything.
type AuditFilter struct {
	Caller  string
	Outcome string
	Limit   int
}

// Store defines the interface for run persistence
type Store interface {
	// Audit trail
	RecordAudit(ctx context.Context, entry guard.AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]*AuditRecord, error)

	// Events
	RecordEvent(ctx context.Context, ev runtime.EmittedEvent) error
	ListEvents(ctx context.Context, name string, limit int) ([]*EventRecord, error)

	// Runs
	CreateRun(ctx context.Context, run *RunRecord) error
	FinishRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)

	// Utility
	Close() error
	Statistics(ctx context.Context) (map[string]interface{}, error)
}

// DefaultListLimit applies when a list call passes no limit
const DefaultListLimit = 50

// Sinks adapts s to the engine's audit and event hooks. The hooks have no
// caller context, so write failures are logged and dropped.
func Sinks(s Store, logger *mdwlog.Logger) (guard.AuditSink, func(runtime.EmittedEvent)) {
	if logger == nil {
		logger = mdwlog.GetDefault()
	}
	logger = logger.WithField("component", "dal-store")

	audit := func(entry guard.AuditEntry) {
		if err := s.RecordAudit(context.Background(), entry); err != nil {
			logger.WarnWithErr("Failed to store audit entry", err, mdwlog.Fields{
				"method":  entry.Method,
				"outcome": string(entry.Outcome),
			})
		}
	}
	events := func(ev runtime.EmittedEvent) {
		if err := s.RecordEvent(context.Background(), ev); err != nil {
			logger.WarnWithErr("Failed to store event", err, mdwlog.Fields{"event": ev.Name})
		}
	}
	return audit, events
}

// Finish completes run with the outcome of an execution
func Finish(run *RunRecord, result runtime.Value, err error) {
	run.CompletedAt = time.Now().UTC()
	run.Duration = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		return
	}
	run.Status = RunCompleted
	if !result.IsNull() {
		run.Result = result.String()
	}
}

func limitOr(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
