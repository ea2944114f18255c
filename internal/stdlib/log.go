// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: log:: namespace backed by the structured logger
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"sync"
	"time"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/runtime"
)

// DefaultLogBuffer is the number of entries log::get_entries can return
const DefaultLogBuffer = 1000

// LogEntry is one message logged from DAL code
type LogEntry struct {
	Level     string
	Message   string
	Data      map[string]interface{}
	Source    string
	Timestamp time.Time
}

func (e LogEntry) toMap() map[string]interface{} {
	data := e.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return map[string]interface{}{
		"level":     e.Level,
		"message":   e.Message,
		"data":      data,
		"source":    e.Source,
		"timestamp": e.Timestamp.Unix(),
	}
}

// logBuffer is a bounded ring of recent entries
type logBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int
	now     func() time.Time
}

func newLogBuffer(max int, now func() time.Time) *logBuffer {
	return &logBuffer{max: max, now: now}
}

func (b *logBuffer) add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.Timestamp = b.now()
	b.entries = append(b.entries, e)
	if over := len(b.entries) - b.max; over > 0 {
		b.entries = append([]LogEntry(nil), b.entries[over:]...)
	}
}

func (b *logBuffer) list(level string) []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (b *logBuffer) clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries)
	b.entries = nil
	return n
}

// Entries returns the buffered entries, optionally filtered by level
func (l *Library) Entries(level string) []LogEntry {
	return l.logs.list(level)
}

func (l *Library) logFunc(level string) runtime.NativeFunc {
	fn := "log::" + level
	return func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
		a := runtime.NewArgs(fn, args)
		if err := a.Want(1); err != nil {
			return runtime.Null, err
		}
		entry := LogEntry{
			Level:   level,
			Message: a.Get(0).String(),
			Source:  sender(ctx),
		}
		if a.Len() > 1 {
			if m, ok := a.Get(1).Interface().(map[string]interface{}); ok {
				entry.Data = m
			} else {
				entry.Data = map[string]interface{}{"value": a.Get(1).Interface()}
			}
		}
		l.logs.add(entry)

		fields := mdwlog.Fields{"source": entry.Source}
		for k, v := range entry.Data {
			fields[k] = v
		}
		switch level {
		case "debug":
			l.logger.Debug(entry.Message, fields)
		case "warning":
			l.logger.Warn(entry.Message, fields)
		case "error":
			l.logger.Error(entry.Message, fields)
		case "audit":
			l.logger.Audit(entry.Message, fields)
		default:
			l.logger.Info(entry.Message, fields)
		}
		return runtime.Null, nil
	}
}

func (l *Library) logFuncs() runtime.FuncTable {
	return runtime.FuncTable{
		"info":    l.logFunc("info"),
		"warning": l.logFunc("warning"),
		"error":   l.logFunc("error"),
		"debug":   l.logFunc("debug"),
		"audit":   l.logFunc("audit"),

		// get_entries([level])
		"get_entries": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			level, err := runtime.NewArgs("log::get_entries", args).StringOr(0, "")
			if err != nil {
				return runtime.Null, err
			}
			entries := l.logs.list(level)
			items := make([]runtime.Value, len(entries))
			for i, e := range entries {
				items[i] = runtime.FromInterface(e.toMap())
			}
			return runtime.NewVectorValue(items...), nil
		},

		"get_stats": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			counts := map[string]interface{}{}
			entries := l.logs.list("")
			for _, e := range entries {
				n, _ := counts[e.Level].(int)
				counts[e.Level] = n + 1
			}
			counts["total"] = len(entries)
			return runtime.FromInterface(counts), nil
		},

		"clear": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			return runtime.Int(int64(l.logs.clear())), nil
		},
	}
}
