// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     store
// Description: SQLite implementation of Store
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/runtime"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	// Path of the database file; ":memory:" keeps it in memory
	Path string
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path: "./data/dal.db",
	}
}

// NewSQLiteStore opens or creates the database at cfg.Path
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	dsn := cfg.Path
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to open database").WithCode(mdwerror.CodeDatabaseError)
	}
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, mdwerror.Wrap(err, "failed to initialize schema").WithCode(mdwerror.CodeDatabaseError)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		instance TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		data TEXT,
		service TEXT NOT NULL DEFAULT '',
		instance TEXT NOT NULL DEFAULT '',
		agent TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		file TEXT NOT NULL,
		caller TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running',
		result TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME,
		duration_ms INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_audit_caller ON audit(caller);
	CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit(outcome);
	CREATE INDEX IF NOT EXISTS idx_events_name ON events(name);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordAudit stores one audit entry
func (s *SQLiteStore) RecordAudit(ctx context.Context, entry guard.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit (caller, method, instance, outcome, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Caller, entry.Method, entry.Instance, string(entry.Outcome), ts.UTC())
	if err != nil {
		return mdwerror.Wrap(err, "failed to record audit entry").WithCode(mdwerror.CodeDatabaseError)
	}
	return nil
}

// ListAudit returns audit records, oldest first
func (s *SQLiteStore) ListAudit(ctx context.Context, filter AuditFilter) ([]*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []interface{}
	)
	if filter.Caller != "" {
		where = append(where, "caller = ?")
		args = append(args, filter.Caller)
	}
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	query := `SELECT id, caller, method, instance, outcome, timestamp FROM audit`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, limitOr(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to list audit entries").WithCode(mdwerror.CodeDatabaseError)
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.Caller, &r.Method, &r.Instance, &r.Outcome, &r.Timestamp); err != nil {
			return nil, mdwerror.Wrap(err, "failed to scan audit entry").WithCode(mdwerror.CodeDatabaseError)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// RecordEvent stores one emitted event
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev runtime.EmittedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataJSON, err := json.Marshal(ev.Data)
	if err != nil {
		return mdwerror.Wrap(err, "failed to encode event data").WithCode(mdwerror.CodeInvalidInput)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (name, data, service, instance, agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.Name, string(dataJSON), ev.Service, ev.Instance, ev.Agent, ts.UTC())
	if err != nil {
		return mdwerror.Wrap(err, "failed to record event").WithCode(mdwerror.CodeDatabaseError)
	}
	return nil
}

// ListEvents returns events, oldest first, optionally of one name
func (s *SQLiteStore) ListEvents(ctx context.Context, name string, limit int) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		query string
		args  []interface{}
	)
	if name != "" {
		query = `
			SELECT id, name, data, service, instance, agent, timestamp
			FROM events WHERE name = ? ORDER BY id LIMIT ?
		`
		args = []interface{}{name, limitOr(limit)}
	} else {
		query = `
			SELECT id, name, data, service, instance, agent, timestamp
			FROM events ORDER BY id LIMIT ?
		`
		args = []interface{}{limitOr(limit)}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to list events").WithCode(mdwerror.CodeDatabaseError)
	}
	defer rows.Close()

	var records []*EventRecord
	for rows.Next() {
		var (
			r        EventRecord
			dataJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &dataJSON, &r.Service, &r.Instance, &r.Agent, &r.Timestamp); err != nil {
			return nil, mdwerror.Wrap(err, "failed to scan event").WithCode(mdwerror.CodeDatabaseError)
		}
		if dataJSON.Valid {
			json.Unmarshal([]byte(dataJSON.String), &r.Data)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// CreateRun stores a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *RunRecord) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, file, caller, status, result, error, started_at, completed_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.File, run.Caller, run.Status, run.Result, run.Error,
		run.StartedAt, nullTime(run.CompletedAt), run.Duration)
	if err != nil {
		return mdwerror.Wrap(err, "failed to create run").WithCode(mdwerror.CodeDatabaseError)
	}
	return nil
}

// FinishRun updates the outcome of a run
func (s *SQLiteStore) FinishRun(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, result = ?, error = ?, completed_at = ?, duration_ms = ?
		WHERE id = ?
	`, run.Status, run.Result, run.Error, nullTime(run.CompletedAt), run.Duration, run.ID)
	if err != nil {
		return mdwerror.Wrap(err, "failed to update run").WithCode(mdwerror.CodeDatabaseError)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return mdwerror.Newf("run not found: %s", run.ID).WithCode(mdwerror.CodeNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID. A missing run is nil without error.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, file, caller, status, result, error, started_at, completed_at, duration_ms
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns runs, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file, caller, status, result, error, started_at, completed_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limitOr(limit), offset)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to list runs").WithCode(mdwerror.CodeDatabaseError)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Statistics returns store statistics
func (s *SQLiteStore) Statistics(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var total int64
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit`).Scan(&total)
	stats["total_audit"] = total

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total)
	stats["total_events"] = total

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total)
	stats["total_runs"] = total

	outcomeRows, _ := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM audit GROUP BY outcome`)
	if outcomeRows != nil {
		defer outcomeRows.Close()
		counts := make(map[string]int64)
		for outcomeRows.Next() {
			var (
				outcome string
				count   int64
			)
			outcomeRows.Scan(&outcome, &count)
			counts[outcome] = count
		}
		stats["audit_by_outcome"] = counts
	}

	var avg sql.NullFloat64
	s.db.QueryRowContext(ctx, `SELECT AVG(duration_ms) FROM runs WHERE status = 'completed'`).Scan(&avg)
	if avg.Valid {
		stats["avg_duration_ms"] = avg.Float64
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		run         RunRecord
		completedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.File, &run.Caller, &run.Status, &run.Result, &run.Error,
		&run.StartedAt, &completedAt, &run.Duration)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to scan run").WithCode(mdwerror.CodeDatabaseError)
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	return &run, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
