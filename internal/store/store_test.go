// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     store
// Description: Tests for the SQLite and in-memory stores
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/parser"
	"github.com/msto63/dal/internal/runtime"
)

// stores returns one fresh instance of every implementation
func stores(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "dal.db")})
	require.NoError(t, err)
	mem, err := NewSQLiteStore(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		file.Close()
		mem.Close()
	})
	return map[string]Store{
		"sqlite-file":   file,
		"sqlite-memory": mem,
		"memory":        NewMemoryStore(),
	}
}

// TestStore_Audit tests recording and filtering audit entries
func TestStore_Audit(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			entries := []guard.AuditEntry{
				{Caller: "0xaa", Method: "transfer", Instance: "svc_1", Outcome: guard.OutcomeAllowed},
				{Caller: "", Method: "transfer", Outcome: guard.OutcomeDenied, Timestamp: time.Now()},
				{Caller: "0xaa", Method: "withdraw", Outcome: guard.OutcomeReentrancy},
			}
			for _, e := range entries {
				require.NoError(t, s.RecordAudit(ctx, e))
			}

			all, err := s.ListAudit(ctx, AuditFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "transfer", all[0].Method)
			assert.Equal(t, "svc_1", all[0].Instance)
			assert.False(t, all[0].Timestamp.IsZero())

			byCaller, err := s.ListAudit(ctx, AuditFilter{Caller: "0xaa"})
			require.NoError(t, err)
			assert.Len(t, byCaller, 2)

			denied, err := s.ListAudit(ctx, AuditFilter{Outcome: string(guard.OutcomeDenied)})
			require.NoError(t, err)
			require.Len(t, denied, 1)
			assert.Equal(t, "", denied[0].Caller)

			limited, err := s.ListAudit(ctx, AuditFilter{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

// TestStore_Events tests recording and listing events
func TestStore_Events(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.RecordEvent(ctx, runtime.EmittedEvent{
				Name:    "Transfer",
				Data:    map[string]interface{}{"from": "alice", "amount": int64(40)},
				Service: "TokenContract",
			}))
			require.NoError(t, s.RecordEvent(ctx, runtime.EmittedEvent{Name: "Mint", Agent: "agent_1"}))

			all, err := s.ListEvents(ctx, "", 0)
			require.NoError(t, err)
			require.Len(t, all, 2)

			transfers, err := s.ListEvents(ctx, "Transfer", 10)
			require.NoError(t, err)
			require.Len(t, transfers, 1)
			assert.Equal(t, "TokenContract", transfers[0].Service)
			assert.Equal(t, "alice", transfers[0].Data["from"])
			assert.EqualValues(t, 40, transfers[0].Data["amount"])
		})
	}
}

// TestStore_Runs tests the run lifecycle
func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			older := &RunRecord{ID: "run_1", File: "a.dal", StartedAt: time.Now().Add(-time.Minute).UTC()}
			newer := &RunRecord{ID: "run_2", File: "b.dal", Caller: "0xaa"}
			require.NoError(t, s.CreateRun(ctx, older))
			require.NoError(t, s.CreateRun(ctx, newer))
			assert.Equal(t, RunRunning, newer.Status)

			Finish(older, runtime.Int(42), nil)
			require.NoError(t, s.FinishRun(ctx, older))
			Finish(newer, runtime.Null, errors.New("boom"))
			require.NoError(t, s.FinishRun(ctx, newer))

			got, err := s.GetRun(ctx, "run_1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, RunCompleted, got.Status)
			assert.Equal(t, "42", got.Result)
			assert.False(t, got.CompletedAt.IsZero())

			got, err = s.GetRun(ctx, "run_2")
			require.NoError(t, err)
			assert.Equal(t, RunFailed, got.Status)
			assert.Equal(t, "boom", got.Error)

			missing, err := s.GetRun(ctx, "run_missing")
			require.NoError(t, err)
			assert.Nil(t, missing)

			runs, err := s.ListRuns(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "run_2", runs[0].ID, "newest first")

			runs, err = s.ListRuns(ctx, 10, 1)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "run_1", runs[0].ID)

			err = s.FinishRun(ctx, &RunRecord{ID: "run_missing"})
			assert.True(t, mdwerror.HasCode(err, mdwerror.CodeNotFound))
			err = s.CreateRun(ctx, &RunRecord{File: "x.dal"})
			assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))
		})
	}
}

// TestStore_Statistics tests aggregated counts
func TestStore_Statistics(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.RecordAudit(ctx, guard.AuditEntry{Method: "m", Outcome: guard.OutcomeAllowed})
			s.RecordAudit(ctx, guard.AuditEntry{Method: "m", Outcome: guard.OutcomeDenied})
			s.RecordEvent(ctx, runtime.EmittedEvent{Name: "E"})

			stats, err := s.Statistics(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), stats["total_audit"])
			assert.Equal(t, int64(1), stats["total_events"])
			assert.Equal(t, int64(0), stats["total_runs"])
			assert.Equal(t, map[string]int64{"allowed": 1, "denied": 1}, stats["audit_by_outcome"])
		})
	}
}

// TestSinks_EngineWiring tests that an engine writes its audit trail and
// events through the sinks
func TestSinks_EngineWiring(t *testing.T) {
	s := NewMemoryStore()
	audit, events := Sinks(s, mdwlog.Discard())
	engine := runtime.New(runtime.Options{
		Logger:    mdwlog.Discard(),
		AuditSink: audit,
		EventSink: events,
		Caller:    func() string { return "0x1111111111111111111111111111111111111111" },
	})

	program, err := parser.New(parser.Options{Logger: mdwlog.Discard(), File: "vault.dal"}).ParseSource(`
@secure
service Vault {
    total: int = 0;
    event Deposited(amount: int);

    fn deposit(amount: int) -> int {
        self.total = self.total + amount;
        event Deposited { amount: amount };
        return self.total;
    }
}

let v = Vault::new();
v.deposit(5);
v.deposit(7)
`)
	require.NoError(t, err)
	result, err := engine.Eval(context.Background(), program)
	require.NoError(t, err)
	assert.Equal(t, runtime.Int(12), result)

	ctx := context.Background()
	records, err := s.ListAudit(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "deposit", records[0].Method)
	assert.Equal(t, string(guard.OutcomeAllowed), records[0].Outcome)

	evs, err := s.ListEvents(ctx, "Deposited", 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, int64(7), evs[1].Data["amount"])
	assert.Equal(t, "Vault", evs[1].Service)
}
