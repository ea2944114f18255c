// Package log provides structured logging for the DAL runtime.
//
// Package: log
// Title: DAL Structured Logging
// Description: Leveled, structured logger with contextual fields, pluggable
//              formatters and entry hooks. The runtime uses the Audit level
//              for guard decisions and hooks to mirror entries into the
//              log:: namespace and the audit store.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with structured logging and error integration
// - 2025-06-02 v0.2.0: Entry hooks, component/agent context, trimmed async writer
//
// Usage:
//
//	logger := log.New().
//		WithLevel(log.LevelDebug).
//		WithFormat(log.FormatText).
//		WithComponent("dal-engine")
//
//	logger.Info("program executed", log.Fields{"statements": 12})
//	logger.Audit("guarded call", log.Fields{"method": "transfer", "outcome": "denied"})
package log
