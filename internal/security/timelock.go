// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     security
// Description: Time-locked operations with approvers and a guardian
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package security

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// TimeLockConfig constrains the operations of one type
type TimeLockConfig struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	MinApprovals      int
	EmergencyGuardian string
	CanCancel         bool
}

// TimeLockOperation is a locked operation waiting for its unlock time
type TimeLockOperation struct {
	ID                string
	Type              string
	Target            string // function name guarded by CheckLock
	Data              []byte
	Creator           string
	CreatedAt         time.Time
	UnlockAt          time.Time
	RequiredApprovers []string
	Approvals         []string
	Executed          bool
	Cancelled         bool
}

// TimeLockManager tracks time-locked operations
type TimeLockManager struct {
	mu      sync.Mutex
	configs map[string]TimeLockConfig
	ops     map[string]*TimeLockOperation
	now     func() time.Time
}

// NewTimeLockManager creates a manager; now defaults to time.Now
func NewTimeLockManager(now func() time.Time) *TimeLockManager {
	if now == nil {
		now = time.Now
	}
	return &TimeLockManager{
		configs: make(map[string]TimeLockConfig),
		ops:     make(map[string]*TimeLockOperation),
		now:     now,
	}
}

func timelockError(code mdwerror.Code, format string, args ...interface{}) error {
	return mdwerror.Newf(format, args...).WithCode(code)
}

// AddConfig registers the constraints of an operation type
func (m *TimeLockManager) AddConfig(opType string, cfg TimeLockConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[opType] = cfg
}

// Create locks an operation on target for delay
func (m *TimeLockManager) Create(opType, target string, data []byte, creator string, delay time.Duration, approvers []string) (*TimeLockOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[opType]
	if !ok {
		return nil, timelockError(mdwerror.CodeMissingConfig, "no time-lock configuration for %q", opType)
	}
	if delay < cfg.MinDelay || delay > cfg.MaxDelay {
		return nil, timelockError(mdwerror.CodeInvalidInput, "invalid delay %s: must be between %s and %s", delay, cfg.MinDelay, cfg.MaxDelay)
	}

	now := m.now()
	op := &TimeLockOperation{
		ID:                fmt.Sprintf("timelock_%s_%s", opType, uuid.NewString()),
		Type:              opType,
		Target:            target,
		Data:              append([]byte(nil), data...),
		Creator:           creator,
		CreatedAt:         now,
		UnlockAt:          now.Add(delay),
		RequiredApprovers: append([]string(nil), approvers...),
	}
	m.ops[op.ID] = op
	return op, nil
}

func (m *TimeLockManager) lookup(id string) (*TimeLockOperation, error) {
	op, ok := m.ops[id]
	if !ok {
		return nil, timelockError(mdwerror.CodeNotFound, "time-lock operation %s not found", id)
	}
	return op, nil
}

// Approve records an approval from one of the required approvers
func (m *TimeLockManager) Approve(id, approver string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, err := m.lookup(id)
	if err != nil {
		return err
	}
	if op.Executed || op.Cancelled {
		return timelockError(mdwerror.CodeInvalidOperation, "operation %s already completed", id)
	}
	if !contains(op.RequiredApprovers, approver) {
		return timelockError(mdwerror.CodeAccessDenied, "%s is not an approver of %s", approver, id)
	}
	if contains(op.Approvals, approver) {
		return timelockError(mdwerror.CodeInvalidOperation, "%s already approved %s", approver, id)
	}
	op.Approvals = append(op.Approvals, approver)
	return nil
}

// Execute releases the operation data once unlocked and approved
func (m *TimeLockManager) Execute(id, executor string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	switch {
	case op.Executed:
		return nil, timelockError(mdwerror.CodeInvalidOperation, "operation %s already executed", id)
	case op.Cancelled:
		return nil, timelockError(mdwerror.CodeInvalidOperation, "operation %s was cancelled", id)
	case m.now().Before(op.UnlockAt):
		return nil, timelockError(mdwerror.CodeAccessDenied, "operation %s is time-locked until %s", id, op.UnlockAt.Format(time.RFC3339))
	}
	if len(op.Approvals) < m.configs[op.Type].MinApprovals {
		return nil, timelockError(mdwerror.CodeAccessDenied, "operation %s has %d of %d approvals",
			id, len(op.Approvals), m.configs[op.Type].MinApprovals)
	}
	if executor != op.Creator && !contains(op.Approvals, executor) {
		return nil, timelockError(mdwerror.CodeAccessDenied, "%s may not execute %s", executor, id)
	}
	op.Executed = true
	return append([]byte(nil), op.Data...), nil
}

// Cancel lets the emergency guardian cancel a pending operation
func (m *TimeLockManager) Cancel(id, canceller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, err := m.lookup(id)
	if err != nil {
		return err
	}
	if op.Executed {
		return timelockError(mdwerror.CodeInvalidOperation, "cannot cancel executed operation %s", id)
	}
	if op.Cancelled {
		return timelockError(mdwerror.CodeInvalidOperation, "operation %s already cancelled", id)
	}
	cfg := m.configs[op.Type]
	if !cfg.CanCancel {
		return timelockError(mdwerror.CodeInvalidOperation, "operations of type %s cannot be cancelled", op.Type)
	}
	if cfg.EmergencyGuardian == "" || canceller != cfg.EmergencyGuardian {
		return timelockError(mdwerror.CodeAccessDenied, "only the emergency guardian can cancel %s", id)
	}
	op.Cancelled = true
	return nil
}

// CheckLock fails when a pending, still locked operation targets function
func (m *TimeLockManager) CheckLock(function string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, op := range m.ops {
		if op.Executed || op.Cancelled || !strings.EqualFold(op.Target, function) {
			continue
		}
		if now.Before(op.UnlockAt) {
			return timelockError(mdwerror.CodeAccessDenied, "function %s is time-locked until %s",
				function, op.UnlockAt.Format(time.RFC3339))
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
