// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Per-instance statement locks owned by call paths
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"sync"

	"github.com/msto63/dal/internal/ast"
)

// callPath identifies one sequential thread of execution: a root Eval,
// Execute or Call, or the body of one agent. Statement locks are
// reentrant per call path, so a method called while an assignment holds
// its instance may assign to the same instance again.
type callPath struct {
	mu   sync.Mutex
	held []*Instance
}

func callPathFrom(ctx context.Context) *callPath {
	p, _ := ctx.Value(callPathKey).(*callPath)
	return p
}

// withNewCallPath starts a call path. Spawned agents always get a fresh
// one; they run concurrently with the path that spawned them.
func withNewCallPath(ctx context.Context) context.Context {
	return context.WithValue(ctx, callPathKey, &callPath{})
}

func (p *callPath) push(inst *Instance) {
	p.mu.Lock()
	p.held = append(p.held, inst)
	p.mu.Unlock()
}

func (p *callPath) pop() {
	p.mu.Lock()
	p.held = p.held[:len(p.held)-1]
	p.mu.Unlock()
}

// distinct returns every instance the path holds, once each
func (p *callPath) distinct() []*Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[*Instance]bool, len(p.held))
	var out []*Instance
	for _, inst := range p.held {
		if !seen[inst] {
			seen[inst] = true
			out = append(out, inst)
		}
	}
	return out
}

// statementLock serializes field read-modify-write statements on one
// instance. It is held by at most one call path at a time.
type statementLock struct {
	mu       sync.Mutex
	owner    *callPath
	depth    int
	released chan struct{}
}

func (l *statementLock) acquire(ctx context.Context, p *callPath) error {
	for {
		l.mu.Lock()
		if l.owner == nil || l.owner == p {
			l.owner = p
			l.depth++
			l.mu.Unlock()
			return nil
		}
		if l.released == nil {
			l.released = make(chan struct{})
		}
		wait := l.released
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *statementLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth--
	if l.depth == 0 {
		l.owner = nil
		if l.released != nil {
			close(l.released)
			l.released = nil
		}
	}
}

// suspend hands the lock back entirely and returns the depth p held
func (l *statementLock) suspend(p *callPath) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != p {
		return 0
	}
	depth := l.depth
	l.owner = nil
	l.depth = 0
	if l.released != nil {
		close(l.released)
		l.released = nil
	}
	return depth
}

// resume takes the lock back at depth. It ignores cancellation because
// the statements that suspended it still release it on their way out.
func (l *statementLock) resume(p *callPath, depth int) {
	if depth == 0 {
		return
	}
	_ = l.acquire(context.Background(), p)
	l.mu.Lock()
	l.depth = depth
	l.mu.Unlock()
}

// lockOwner takes the statement lock of inst for the call path in ctx,
// starting a path when ctx has none. The returned context carries the
// path and must be used for the rest of the statement. A nil inst is a
// no-op.
func lockOwner(ctx context.Context, inst *Instance) (context.Context, func(), error) {
	if inst == nil {
		return ctx, func() {}, nil
	}
	p := callPathFrom(ctx)
	if p == nil {
		ctx = withNewCallPath(ctx)
		p = callPathFrom(ctx)
	}
	if err := inst.stmt.acquire(ctx, p); err != nil {
		return ctx, nil, err
	}
	p.push(inst)
	return ctx, func() {
		p.pop()
		inst.stmt.release()
	}, nil
}

// suspendLocks releases every statement lock the call path holds while
// it blocks, so agents it waits for can update the same instances. The
// returned function takes the locks back.
func suspendLocks(ctx context.Context) func() {
	p := callPathFrom(ctx)
	if p == nil {
		return func() {}
	}
	held := p.distinct()
	if len(held) == 0 {
		return func() {}
	}
	depths := make([]int, len(held))
	for i, inst := range held {
		depths[i] = inst.stmt.suspend(p)
	}
	return func() {
		for i, inst := range held {
			inst.stmt.resume(p, depths[i])
		}
	}
}

// fieldOwner returns the instance an assignment target writes into,
// resolved from the target's root identifier without evaluating
// anything. Plain locals and values that are not instances yield nil.
func fieldOwner(fr *frame, target ast.Expression) *Instance {
	if id, ok := target.(*ast.Identifier); ok {
		env := fr.scope.Current()
		if _, isVar := env.Lookup(id.Name); isVar {
			return nil
		}
		if self, ok := selfOf(env); ok && self.HasField(id.Name) {
			return self
		}
		return nil
	}

	expr := target
	for {
		switch x := expr.(type) {
		case *ast.FieldExpression:
			expr = x.Object
		case *ast.IndexExpression:
			expr = x.Object
		case *ast.Identifier:
			env := fr.scope.Current()
			if v, ok := env.Lookup(x.Name); ok {
				inst, _ := v.AsInstance()
				return inst
			}
			if self, ok := selfOf(env); ok && self.HasField(x.Name) {
				return self
			}
			return nil
		default:
			return nil
		}
	}
}
