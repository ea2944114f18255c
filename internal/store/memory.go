// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     store
// Description: In-memory implementation of Store
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/runtime"
)

// MemoryStore is an in-memory implementation for tests and the REPL
type MemoryStore struct {
	mu     sync.RWMutex
	audit  []*AuditRecord
	events []*EventRecord
	runs   map[string]*RunRecord
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*RunRecord)}
}

// RecordAudit stores one audit entry
func (s *MemoryStore) RecordAudit(_ context.Context, entry guard.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.audit = append(s.audit, &AuditRecord{
		ID:        int64(len(s.audit) + 1),
		Caller:    entry.Caller,
		Method:    entry.Method,
		Instance:  entry.Instance,
		Outcome:   string(entry.Outcome),
		Timestamp: ts.UTC(),
	})
	return nil
}

// ListAudit returns audit records, oldest first
func (s *MemoryStore) ListAudit(_ context.Context, filter AuditFilter) ([]*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := limitOr(filter.Limit)
	var out []*AuditRecord
	for _, r := range s.audit {
		if filter.Caller != "" && r.Caller != filter.Caller {
			continue
		}
		if filter.Outcome != "" && r.Outcome != filter.Outcome {
			continue
		}
		rec := *r
		out = append(out, &rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// RecordEvent stores one emitted event
func (s *MemoryStore) RecordEvent(_ context.Context, ev runtime.EmittedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.events = append(s.events, &EventRecord{
		ID:        int64(len(s.events) + 1),
		Name:      ev.Name,
		Data:      ev.Data,
		Service:   ev.Service,
		Instance:  ev.Instance,
		Agent:     ev.Agent,
		Timestamp: ts.UTC(),
	})
	return nil
}

// ListEvents returns events, oldest first, optionally of one name
func (s *MemoryStore) ListEvents(_ context.Context, name string, limit int) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = limitOr(limit)
	var out []*EventRecord
	for _, r := range s.events {
		if name != "" && r.Name != name {
			continue
		}
		rec := *r
		out = append(out, &rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CreateRun stores a new run record
func (s *MemoryStore) CreateRun(_ context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return mdwerror.New("run ID is required").WithCode(mdwerror.CodeInvalidInput)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	rec := *run
	s.runs[run.ID] = &rec
	return nil
}

// FinishRun updates the outcome of a run
func (s *MemoryStore) FinishRun(_ context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.runs[run.ID]
	if !ok {
		return mdwerror.Newf("run not found: %s", run.ID).WithCode(mdwerror.CodeNotFound)
	}
	existing.Status = run.Status
	existing.Result = run.Result
	existing.Error = run.Error
	existing.CompletedAt = run.CompletedAt
	existing.Duration = run.Duration
	return nil
}

// GetRun retrieves a run by ID. A missing run is nil without error.
func (s *MemoryStore) GetRun(_ context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	rec := *run
	return &rec, nil
}

// ListRuns returns runs, newest first
func (s *MemoryStore) ListRuns(_ context.Context, limit, offset int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		rec := *run
		all = append(all, &rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit = limitOr(limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Statistics returns store statistics
func (s *MemoryStore) Statistics(_ context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOutcome := make(map[string]int64)
	for _, r := range s.audit {
		byOutcome[r.Outcome]++
	}
	stats := map[string]interface{}{
		"total_audit":      int64(len(s.audit)),
		"total_events":     int64(len(s.events)),
		"total_runs":       int64(len(s.runs)),
		"audit_by_outcome": byOutcome,
	}

	var (
		sum   int64
		count int64
	)
	for _, run := range s.runs {
		if run.Status == RunCompleted {
			sum += run.Duration
			count++
		}
	}
	if count > 0 {
		stats["avg_duration_ms"] = float64(sum) / float64(count)
	}
	return stats, nil
}
