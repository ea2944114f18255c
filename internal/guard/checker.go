// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     guard
// Description: Secure-call checker combining guard, authentication and audit
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package guard

import (
	"sync"
	"time"

	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// Outcome is the result recorded for a guarded call
type Outcome string

const (
	OutcomeAllowed    Outcome = "allowed"
	OutcomeDenied     Outcome = "denied"
	OutcomeReentrancy Outcome = "reentrancy"
)

// AuditEntry records one guarded call
type AuditEntry struct {
	Caller    string    `json:"caller"`
	Method    string    `json:"method"`
	Instance  string    `json:"instance,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditSink receives every audit entry
type AuditSink func(AuditEntry)

// CallerFunc returns the identity of the current caller
type CallerFunc func() string

// Options configures a Checker
type Options struct {
	Logger *mdwlog.Logger
	Sink   AuditSink
	Caller CallerFunc
}

// Checker runs the @secure protocol: enter the guard of the target
// instance, authenticate the caller, and audit the decision. Each instance
// gets its own guard so unrelated instances never contend on one lock.
type Checker struct {
	mu     sync.Mutex
	guards map[string]*Guard

	logger *mdwlog.Logger
	sink   AuditSink
	caller CallerFunc
}

// NewChecker creates a checker
func NewChecker(opts Options) *Checker {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Caller == nil {
		opts.Caller = func() string { return "" }
	}
	return &Checker{
		guards: make(map[string]*Guard),
		logger: opts.Logger.WithField("component", "dal-guard"),
		sink:   opts.Sink,
		caller: opts.Caller,
	}
}

// GuardFor returns the guard of an instance; "" is the guard shared by
// free functions.
func (c *Checker) GuardFor(instanceID string) *Guard {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guards[instanceID]
	if !ok {
		g = New()
		c.guards[instanceID] = g
	}
	return g
}

// Acquire runs the guard and authentication steps for a secured call.
// On success the caller owns the returned token and must release it when
// the body finishes. On failure nothing stays active. Exactly one audit
// entry is emitted either way.
func (c *Checker) Acquire(instanceID, method string) (*Token, error) {
	key := CallKey(instanceID, method)
	caller := c.caller()

	token, err := c.GuardFor(instanceID).Enter(key)
	if err != nil {
		c.audit(caller, method, instanceID, OutcomeReentrancy)
		return nil, err
	}

	if !IsAuthenticated(caller) {
		token.Release()
		c.audit(caller, method, instanceID, OutcomeDenied)
		return nil, &AccessDeniedError{
			CallKey:  key,
			Method:   method,
			Instance: instanceID,
			Caller:   caller,
		}
	}

	c.audit(caller, method, instanceID, OutcomeAllowed)
	return token, nil
}

// ActiveCount returns the number of active keys across all guards
func (c *Checker) ActiveCount() int {
	c.mu.Lock()
	guards := make([]*Guard, 0, len(c.guards))
	for _, g := range c.guards {
		guards = append(guards, g)
	}
	c.mu.Unlock()

	total := 0
	for _, g := range guards {
		total += g.ActiveCount()
	}
	return total
}

func (c *Checker) audit(caller, method, instance string, outcome Outcome) {
	entry := AuditEntry{
		Caller:    caller,
		Method:    method,
		Instance:  instance,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
	c.logger.Audit("Secure call "+string(outcome), mdwlog.Fields{
		"caller":   caller,
		"method":   method,
		"instance": instance,
		"outcome":  string(outcome),
	})
	if c.sink != nil {
		c.sink(entry)
	}
}
