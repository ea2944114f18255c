// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     security
// Description: Heuristic monitoring-versus-execution classifier
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package security holds the advanced-security subsystem: the heuristic
// classifier consulted for @advanced_security services, the MEV protection
// manager and the time-lock manager.
//
// The classifier is a name and keyword heuristic. It does not analyze what
// a method actually does, and false positives and negatives are expected.
package security

import (
	"fmt"
	"strings"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// Mode selects what happens to unprotected execution code
type Mode string

const (
	ModeMonitor  Mode = "monitor"
	ModeAdvisory Mode = "advisory"
	ModeStrict   Mode = "strict"
)

// ParseMode validates a mode name, case-insensitive
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMonitor, ModeAdvisory, ModeStrict:
		return m, nil
	}
	return "", mdwerror.Newf("unknown advanced security mode %q (expected monitor, advisory or strict)", s).
		WithCode(mdwerror.CodeInvalidInput)
}

// Class is the classification of a method
type Class string

const (
	ClassMonitoring  Class = "monitoring"
	ClassProtected   Class = "protected"
	ClassUnprotected Class = "unprotected"
)

// MonitoringPrefixes mark read-only analysis methods
var MonitoringPrefixes = []string{"find_", "detect_", "analyze_", "monitor_", "get_", "check_", "query_"}

// Family is one protection pattern and the keywords that evidence it
type Family struct {
	Name     string
	Keywords []string
}

// Families are the protection patterns, in suggestion order
var Families = []Family{
	{Name: "commit-reveal", Keywords: []string{"commit_reveal", "commitment", "commitment_hash"}},
	{Name: "slippage", Keywords: []string{"slippage", "min_amount_out", "max_slippage"}},
	{Name: "oracle-price", Keywords: []string{"oracle_price", "get_oracle_price", "price_oracle"}},
	{Name: "fair-batch", Keywords: []string{"fair_batch"}},
	{Name: "time-delay", Keywords: []string{"time_delay"}},
}

// Result describes one classification
type Result struct {
	Method  string
	Class   Class
	Missing []string // protection families without evidence
}

// Suggested returns the first missing family, or ""
func (r Result) Suggested() string {
	if len(r.Missing) == 0 {
		return ""
	}
	return r.Missing[0]
}

// MEVProtectionError blocks unprotected execution code in strict mode
type MEVProtectionError struct {
	Method  string
	Missing []string
}

func (e *MEVProtectionError) Error() string {
	return fmt.Sprintf("MEV protection: %s looks like unprotected execution code; add %s protection (missing: %s)",
		e.Method, e.Missing[0], strings.Join(e.Missing, ", "))
}

// Code implements mdwerror.Coder
func (e *MEVProtectionError) Code() mdwerror.Code { return mdwerror.CodeMEVProtection }

// Options configures a Classifier
type Options struct {
	Logger *mdwlog.Logger
	Mode   Mode
}

// Classifier applies the heuristic and the mode policy
type Classifier struct {
	mode   Mode
	logger *mdwlog.Logger
}

// NewClassifier creates a classifier; the default mode is monitor
func NewClassifier(opts Options) *Classifier {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Mode == "" {
		opts.Mode = ModeMonitor
	}
	return &Classifier{
		mode:   opts.Mode,
		logger: opts.Logger.WithField("component", "dal-security"),
	}
}

// Mode returns the default mode
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Classify inspects a method name and the text of its body
func Classify(method, body string) Result {
	name := strings.ToLower(method)
	for _, prefix := range MonitoringPrefixes {
		if strings.HasPrefix(name, prefix) {
			return Result{Method: method, Class: ClassMonitoring}
		}
	}

	text := strings.ToLower(body)
	var missing []string
	for _, family := range Families {
		found := false
		for _, kw := range family.Keywords {
			if strings.Contains(text, kw) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, family.Name)
		}
	}
	if len(missing) == 0 {
		return Result{Method: method, Class: ClassProtected}
	}
	return Result{Method: method, Class: ClassUnprotected, Missing: missing}
}

// Check classifies a method and applies mode. An empty mode uses the
// classifier default. Only strict mode returns an error.
func (c *Classifier) Check(method, body string, mode Mode) (Result, error) {
	if mode == "" {
		mode = c.mode
	}
	result := Classify(method, body)

	switch result.Class {
	case ClassMonitoring:
		c.logger.Debug("Monitoring code allowed", mdwlog.Fields{"method": method, "mode": string(mode)})
	case ClassProtected:
		c.logger.Debug("Protected execution allowed", mdwlog.Fields{"method": method, "mode": string(mode)})
	case ClassUnprotected:
		if mode == ModeStrict {
			c.logger.Warn("Unprotected execution blocked", mdwlog.Fields{
				"method":  method,
				"missing": strings.Join(result.Missing, ","),
			})
			return result, &MEVProtectionError{Method: method, Missing: result.Missing}
		}
		c.logger.Warn("Unprotected execution code, consider "+result.Suggested()+" protection", mdwlog.Fields{
			"method":    method,
			"mode":      string(mode),
			"suggested": result.Suggested(),
		})
	}
	return result, nil
}
