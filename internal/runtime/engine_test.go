// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Tests for program execution
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/guard"
	"github.com/msto63/dal/internal/parser"
	"github.com/msto63/dal/internal/security"
)

const testCaller = "0x1111111111111111111111111111111111111111"

type harness struct {
	engine *Engine
	out    *bytes.Buffer

	mu     sync.Mutex
	audits []guard.AuditEntry
}

func newHarness(t *testing.T, caller string, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}}
	o := Options{
		Logger:    mdwlog.Discard(),
		Output:    h.out,
		Caller:    func() string { return caller },
		AuditSink: h.record,
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.engine = New(o)
	return h
}

func (h *harness) record(entry guard.AuditEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audits = append(h.audits, entry)
}

func (h *harness) auditLog() []guard.AuditEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]guard.AuditEntry(nil), h.audits...)
}

func (h *harness) eval(t *testing.T, src string) Value {
	t.Helper()
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard(), File: "test.dal"}).ParseSource(src)
	require.NoError(t, err)
	v, err := h.engine.Eval(context.Background(), program)
	require.NoError(t, err)
	return v
}

func (h *harness) evalErr(t *testing.T, src string) *Error {
	t.Helper()
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard(), File: "test.dal"}).ParseSource(src)
	require.NoError(t, err)
	_, err = h.engine.Eval(context.Background(), program)
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	return rerr
}

func (h *harness) global(t *testing.T, name string) Value {
	t.Helper()
	v, ok := h.engine.Lookup(name)
	require.True(t, ok, "global %s", name)
	return v
}

const tokenContract = `
@secure
service TokenContract {
    balances: map<string, int> = {};
    event Transfer(from: string, to: string, amount: int);

    fn transfer(from: string, to: string, amount: int) -> bool {
        if (self.balances[from] < amount) {
            return false;
        }
        self.balances[from] = self.balances[from] - amount;
        self.balances[to] = self.balances[to] + amount;
        event Transfer { from: from, to: to, amount: amount };
        return true;
    }

    @public
    fn balance_of(owner: string) -> int {
        self.balances[owner]
    }
}

let token = TokenContract::new();
token.balances["alice"] = 100;
token.balances["bob"] = 0;
`

// TestEngine_TransferInsufficientBalance tests that a failed transfer
// leaves both balances untouched
func TestEngine_TransferInsufficientBalance(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, tokenContract)

	result := h.eval(t, `token.transfer("alice", "bob", 150)`)
	assert.Equal(t, Bool(false), result)
	assert.Equal(t, Int(100), h.eval(t, `token.balance_of("alice")`))
	assert.Equal(t, Int(0), h.eval(t, `token.balance_of("bob")`))
	assert.Empty(t, h.engine.Events())

	audits := h.auditLog()
	require.Len(t, audits, 1)
	assert.Equal(t, guard.OutcomeAllowed, audits[0].Outcome)
	assert.Equal(t, "transfer", audits[0].Method)
	assert.Equal(t, 0, h.engine.Guard().ActiveCount())
}

// TestEngine_TransferSucceeds tests a successful secured transfer
func TestEngine_TransferSucceeds(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, tokenContract)

	assert.Equal(t, Bool(true), h.eval(t, `token.transfer("alice", "bob", 40)`))
	assert.Equal(t, Int(60), h.eval(t, `token.balance_of("alice")`))
	assert.Equal(t, Int(40), h.eval(t, `token.balance_of("bob")`))

	events := h.engine.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Transfer", events[0].Name)
	assert.Equal(t, "TokenContract", events[0].Service)
	assert.Equal(t, int64(40), events[0].Data["amount"])
}

// TestEngine_PublicMethodIsIdempotent tests that @public overrides the
// service's @secure and that reads do not change state
func TestEngine_PublicMethodIsIdempotent(t *testing.T) {
	h := newHarness(t, "")
	h.eval(t, tokenContract)

	first := h.eval(t, `token.balance_of("alice")`)
	second := h.eval(t, `token.balance_of("alice")`)
	assert.Equal(t, first, second)
	assert.Equal(t, Int(100), first)
	assert.Empty(t, h.auditLog(), "public methods are not audited")
}

// TestEngine_AccessDenied tests an unauthenticated secured call
func TestEngine_AccessDenied(t *testing.T) {
	for _, caller := range []string{"", guard.ZeroAddress} {
		t.Run("caller="+caller, func(t *testing.T) {
			h := newHarness(t, caller)
			h.eval(t, tokenContract)

			rerr := h.evalErr(t, `token.transfer("alice", "bob", 10)`)
			assert.Equal(t, "AccessDenied", rerr.Kind)
			assert.Equal(t, mdwerror.CodeAccessDenied, rerr.Code())

			audits := h.auditLog()
			require.Len(t, audits, 1)
			assert.Equal(t, guard.OutcomeDenied, audits[0].Outcome)
			assert.Equal(t, caller, audits[0].Caller)

			assert.Equal(t, Int(100), h.eval(t, `token.balance_of("alice")`))
			assert.Empty(t, h.engine.Events())
			assert.Equal(t, 0, h.engine.Guard().ActiveCount())
		})
	}
}

// TestEngine_SecureArgumentCount tests that a secured call with the wrong
// number of arguments passes the guard and is audited before it fails
func TestEngine_SecureArgumentCount(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, tokenContract)

	rerr := h.evalErr(t, `token.transfer("alice", "bob")`)
	assert.Equal(t, "ArgumentCountMismatch", rerr.Kind)

	audits := h.auditLog()
	require.Len(t, audits, 1)
	assert.Equal(t, "transfer", audits[0].Method)
	assert.Equal(t, guard.OutcomeAllowed, audits[0].Outcome)
	assert.Equal(t, 0, h.engine.Guard().ActiveCount())

	denied := newHarness(t, "")
	denied.eval(t, tokenContract)
	rerr = denied.evalErr(t, `token.transfer("alice")`)
	assert.Equal(t, "AccessDenied", rerr.Kind)
	audits = denied.auditLog()
	require.Len(t, audits, 1)
	assert.Equal(t, guard.OutcomeDenied, audits[0].Outcome)
}

// TestEngine_Reentrancy tests that a secured method cannot re-enter itself
func TestEngine_Reentrancy(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, `
@secure
service Vault {
    calls: int = 0;
    fn withdraw() -> int {
        self.calls = self.calls + 1;
        self.withdraw()
    }
}
let vault = Vault::new();
`)
	rerr := h.evalErr(t, `vault.withdraw()`)
	assert.Equal(t, "ReentrancyDetected", rerr.Kind)
	assert.Equal(t, Int(1), h.eval(t, `vault.calls`))
	assert.Equal(t, 0, h.engine.Guard().ActiveCount())

	audits := h.auditLog()
	require.Len(t, audits, 2)
	assert.Equal(t, guard.OutcomeAllowed, audits[0].Outcome)
	assert.Equal(t, guard.OutcomeReentrancy, audits[1].Outcome)

	// The guard is released, so a second top-level call gets in again
	caught := h.eval(t, `
let caught = false;
try { vault.withdraw(); } catch (ReentrancyDetected e) { caught = true; }
caught`)
	assert.Equal(t, Bool(true), caught)
	assert.Equal(t, 0, h.engine.Guard().ActiveCount())
}

// TestEngine_SecureGuardIsPerInstance tests that two instances do not
// share a guard key
func TestEngine_SecureGuardIsPerInstance(t *testing.T) {
	h := newHarness(t, testCaller)
	v := h.eval(t, `
@secure
service Relay {
    fn forward(other) -> int {
        if (other == null) {
            return 1;
        }
        other.forward(null) + 1
    }
}
let a = Relay::new();
let b = Relay::new();
a.forward(b)`)
	assert.Equal(t, Int(2), v)
}

// TestEngine_AdvancedSecurity tests the classifier modes on methods
func TestEngine_AdvancedSecurity(t *testing.T) {
	const src = `
service Dex {
    @advanced_security("monitor")
    fn find_arbitrage_opportunities() -> int {
        let swap = 1;
        swap + 41
    }

    @advanced_security("strict")
    fn execute_swap(amount: int) -> int {
        amount * 2
    }

    @advanced_security("advisory")
    fn execute_trade(amount: int) -> int {
        amount
    }
}
let dex = Dex::new();
`
	t.Run("monitor executes", func(t *testing.T) {
		h := newHarness(t, testCaller)
		h.eval(t, src)
		assert.Equal(t, Int(42), h.eval(t, `dex.find_arbitrage_opportunities()`))
	})

	t.Run("strict blocks unprotected execution", func(t *testing.T) {
		h := newHarness(t, testCaller)
		h.eval(t, src)
		rerr := h.evalErr(t, `dex.execute_swap(5)`)
		assert.Equal(t, "MEVProtection", rerr.Kind)
		assert.Contains(t, rerr.Message, "commit-reveal")
	})

	t.Run("advisory warns and executes", func(t *testing.T) {
		h := newHarness(t, testCaller)
		h.eval(t, src)
		assert.Equal(t, Int(7), h.eval(t, `dex.execute_trade(7)`))
	})

	t.Run("monitoring prefix passes even in strict", func(t *testing.T) {
		h := newHarness(t, testCaller, func(o *Options) {
			o.Classifier = security.NewClassifier(security.Options{Logger: mdwlog.Discard(), Mode: security.ModeStrict})
		})
		v := h.eval(t, `
service Scanner @advanced_security {
    fn get_price() -> int { 10 }
}
Scanner::new().get_price()`)
		assert.Equal(t, Int(10), v)
	})
}

// TestEngine_ElseIf tests that exactly one branch of an else-if chain runs
func TestEngine_ElseIf(t *testing.T) {
	h := newHarness(t, testCaller)
	v := h.eval(t, `
let x = 5;
let hits = 0;
let which = "";
if (x > 10) {
    hits = hits + 1;
    which = "then";
} else if (x > 0) {
    hits = hits + 1;
    which = "else-if";
} else {
    hits = hits + 1;
    which = "else";
}
hits`)
	assert.Equal(t, Int(1), v)
	assert.Equal(t, String("else-if"), h.global(t, "which"))
}

// TestEngine_Arithmetic tests numeric promotion and arithmetic errors
func TestEngine_Arithmetic(t *testing.T) {
	h := newHarness(t, testCaller)

	tests := []struct {
		src  string
		want Value
	}{
		{`1 + 2 * 3`, Int(7)},
		{`7 / 2`, Int(3)},
		{`7 % 4`, Int(3)},
		{`1 + 2.5`, Float(3.5)},
		{`"a" + 1`, String("a1")},
		{`2 > 1.5`, Bool(true)},
		{`1 == 1.0`, Bool(true)},
		{`!(1 < 2) || "x" == "x"`, Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, h.eval(t, tt.src))
		})
	}

	assert.Equal(t, "DivisionByZero", h.evalErr(t, `10 / 0`).Kind)
	assert.Equal(t, "DivisionByZero", h.evalErr(t, `10 % 0`).Kind)
	assert.Equal(t, "TypeMismatch", h.evalErr(t, `true - 1`).Kind)
	assert.Equal(t, mdwerror.CodeOverflow, h.evalErr(t, `9223372036854775807 + 1`).Code())
}

// TestEngine_Loops tests loop control and the loop budget
func TestEngine_Loops(t *testing.T) {
	h := newHarness(t, testCaller, func(o *Options) { o.MaxLoopIterations = 50 })

	v := h.eval(t, `
let total = 0;
for i in 0..10 {
    if (i % 2 == 0) { continue; }
    if (i > 7) { break; }
    total = total + i;
}
total`)
	assert.Equal(t, Int(1+3+5+7), v)

	v = h.eval(t, `
let n = 0;
loop {
    n = n + 1;
    if (n == 5) { break; }
}
n`)
	assert.Equal(t, Int(5), v)

	rerr := h.evalErr(t, `loop { }`)
	assert.Equal(t, "LoopTimeout", rerr.Kind)

	v = h.eval(t, `
let keys = "";
let pairs = { a: 1, b: 2 };
for k in pairs { keys = keys + k; }
keys`)
	assert.Equal(t, String("ab"), v)
}

// TestEngine_LoopDeadline tests the wall-clock bound of loop
func TestEngine_LoopDeadline(t *testing.T) {
	h := newHarness(t, testCaller, func(o *Options) {
		o.LoopTimeout = 20 * time.Millisecond
		o.MaxLoopIterations = 1 << 30
	})
	rerr := h.evalErr(t, `loop { await 1; }`)
	assert.Equal(t, "LoopTimeout", rerr.Kind)
}

// TestEngine_TryCatchFinally tests error handling
func TestEngine_TryCatchFinally(t *testing.T) {
	h := newHarness(t, testCaller)

	v := h.eval(t, `
let log = "";
try {
    log = log + "a";
    let x = 1 / 0;
    log = log + "never";
} catch (DivisionByZero e) {
    log = log + "b:" + e.type;
} finally {
    log = log + ":c";
}
log`)
	assert.Equal(t, String("ab:DivisionByZero:c"), v)

	v = h.eval(t, `
let got = null;
try { throw { type: "Custom", message: "boom" }; } catch (TypeMismatch e) { got = "wrong"; } catch (Custom e) { got = e.message; }
got`)
	assert.Equal(t, String("boom"), v)

	rerr := h.evalErr(t, `try { throw "bare"; } catch (DivisionByZero e) { }`)
	assert.Equal(t, "Thrown", rerr.Kind)

	v = h.eval(t, `
fn pick() {
    try { return 1; } finally { return 2; }
}
pick()`)
	assert.Equal(t, Int(2), v)
}

// TestEngine_Functions tests user functions, closures and recursion
func TestEngine_Functions(t *testing.T) {
	h := newHarness(t, testCaller, func(o *Options) { o.MaxCallDepth = 64 })

	v := h.eval(t, `
fn fact(n: int) -> int {
    if (n <= 1) { return 1; }
    n * fact(n - 1)
}
fact(10)`)
	assert.Equal(t, Int(3628800), v)

	v = h.eval(t, `
let factor = 3;
vec!(1, 2, 3).map(x => { x * factor }).filter(x => { x > 3 }).join("-")`)
	assert.Equal(t, String("6-9"), v)

	assert.Equal(t, "ArgumentCountMismatch", h.evalErr(t, `fact(1, 2)`).Kind)
	assert.Equal(t, "FunctionNotFound", h.evalErr(t, `missing()`).Kind)
	assert.Equal(t, "VariableNotFound", h.evalErr(t, `nothing + 1`).Kind)

	h.eval(t, `fn forever(n: int) -> int { forever(n + 1) }`)
	assert.Equal(t, "StackOverflow", h.evalErr(t, `forever(0)`).Kind)

	out, err := h.engine.Call(context.Background(), "fact", Int(5))
	require.NoError(t, err)
	assert.Equal(t, Int(120), out)
}

// TestEngine_Match tests match expressions
func TestEngine_Match(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, `
fn label(score: int) -> string {
    match score {
        0 => "zero",
        1..10 => { "low" },
        n => { "high:" + n },
    }
}`)
	tests := map[int64]string{0: "zero", 5: "low", 10: "high:10"}
	for in, want := range tests {
		out, err := h.engine.Call(context.Background(), "label", Int(in))
		require.NoError(t, err)
		assert.Equal(t, String(want), out)
	}
}

// TestEngine_Builtins tests print and the value methods
func TestEngine_Builtins(t *testing.T) {
	h := newHarness(t, testCaller)

	h.eval(t, `print("hello", 42); let m = { a: 1 };`)
	assert.Equal(t, "hello 42\n", h.out.String())

	tests := []struct {
		src  string
		want Value
	}{
		{`len("héllo")`, Int(5)},
		{`type_of(1.5)`, String("float")},
		{`to_int("42") + 1`, Int(43)},
		{`"a,b".split(",").len()`, Int(2)},
		{`"Hello".to_upper()`, String("HELLO")},
		{`m.get("b", 7)`, Int(7)},
		{`m.keys().first()`, String("a")},
		{`vec!(1, 2).contains(2)`, Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, h.eval(t, tt.src))
		})
	}
}

// TestEngine_NamespaceCalls tests dispatch through the registry
func TestEngine_NamespaceCalls(t *testing.T) {
	h := newHarness(t, testCaller)
	h.engine.Namespaces().Register("math", FuncTable{
		"double": func(_ context.Context, args []Value) (Value, error) {
			n, err := NewArgs("double", args).Int(0)
			if err != nil {
				return Null, err
			}
			return Int(n * 2), nil
		},
	})

	assert.Equal(t, Int(42), h.eval(t, `math::double(21)`))

	rerr := h.evalErr(t, `nosuch::thing()`)
	assert.Equal(t, "FunctionNotFound", rerr.Kind)

	rerr = h.evalErr(t, `math::triple(1)`)
	assert.Equal(t, "FunctionNotFound", rerr.Kind)
	assert.Contains(t, rerr.Message, "math::triple")

	rerr = h.evalErr(t, `math::double("x")`)
	assert.Equal(t, "TypeMismatch", rerr.Kind)
}

// TestEngine_CompileTargetForbidsNamespace tests runtime enforcement of
// @compile_target
func TestEngine_CompileTargetForbidsNamespace(t *testing.T) {
	h := newHarness(t, testCaller)
	h.engine.Namespaces().Register("web", FuncTable{
		"fetch": func(context.Context, []Value) (Value, error) { return String("ok"), nil },
	})
	rerr := h.evalErr(t, `
@compile_target("blockchain")
service OnChain {
    fn load() -> string { web::fetch() }
}
OnChain::new().load()`)
	assert.Equal(t, mdwerror.CodeUnauthorizedNamespace, rerr.Code())
}

// TestEngine_Spawn tests that every spawn yields a fresh agent
func TestEngine_Spawn(t *testing.T) {
	h := newHarness(t, testCaller)
	v := h.eval(t, `
spawn worker_1: worker {} { }
let first = worker_1;
spawn worker_1: worker {} { }
let second = worker_1;
first.id != second.id`)
	assert.Equal(t, Bool(true), v)

	first, _ := h.global(t, "first").AsAgent()
	second, _ := h.global(t, "second").AsAgent()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "worker", first.Type)
	require.NoError(t, h.engine.Agents().WaitAll(context.Background()))
}

// TestEngine_SpawnAwait tests spawn expressions and await
func TestEngine_SpawnAwait(t *testing.T) {
	h := newHarness(t, testCaller)
	v := h.eval(t, `
fn compute(n: int) -> int { n * n }
let job = spawn compute(12);
await job`)
	assert.Equal(t, Int(144), v)

	v = h.eval(t, `
agent Analyst: ai { role: "analysis" } {
    agent_id
}
spawn a1: Analyst {} { }
await a1`)
	id, ok := v.AsString()
	require.True(t, ok)
	assert.Contains(t, id, "agent_")
}

// TestEngine_ConcurrentFieldUpdates tests that agents updating the same
// instance do not lose writes
func TestEngine_ConcurrentFieldUpdates(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, `
service Counter {
    count: int = 0;
    tally: map<string, int> = {};

    fn inc() {
        self.count = self.count + 1;
        self.tally["hits"] = self.tally["hits"] + 1;
    }
}
let c = Counter::new();
c.tally["hits"] = 0;
spawn w1: worker {} { for i in 0..2000 { c.inc(); } }
spawn w2: worker {} { for i in 0..2000 { c.inc(); } }
spawn w3: worker {} { for i in 0..2000 { c.inc(); } }
spawn w4: worker {} { for i in 0..2000 { c.inc(); } }`)
	require.NoError(t, h.engine.Agents().WaitAll(context.Background()))

	inst, ok := h.global(t, "c").AsInstance()
	require.True(t, ok)
	count, _ := inst.Field("count")
	assert.Equal(t, Int(8000), count)
	tally, _ := inst.Field("tally")
	m, ok := tally.AsMap()
	require.True(t, ok)
	hits, _ := m.Get("hits")
	assert.Equal(t, Int(8000), hits)
}

// TestEngine_NestedFieldAssignment tests that an assignment may call a
// method that assigns to the same instance, and may await an agent that
// does so
func TestEngine_NestedFieldAssignment(t *testing.T) {
	h := newHarness(t, testCaller)
	v := h.eval(t, `
service Ledger {
    count: int = 0;
    total: int = 0;

    fn bump() -> int {
        self.count = self.count + 1;
        return self.count;
    }
    fn settle() -> int {
        self.total = self.bump() + self.bump();
        return self.total;
    }
}
let l = Ledger::new();
l.settle()`)
	assert.Equal(t, Int(3), v)

	v = h.eval(t, `
l.total = await spawn l.bump();
l.total`)
	assert.Equal(t, Int(3), v)
}

// TestEngine_RangeLimit tests that oversized ranges are rejected before
// anything is allocated
func TestEngine_RangeLimit(t *testing.T) {
	h := newHarness(t, testCaller, func(o *Options) { o.MaxLoopIterations = 50 })

	assert.Equal(t, Int(0), h.eval(t, `len(10..0)`))
	assert.Equal(t, Int(50), h.eval(t, `len(0..50)`))

	rerr := h.evalErr(t, `0..51`)
	assert.Equal(t, mdwerror.CodeUnsupportedOperation, rerr.Code())

	rerr = h.evalErr(t, `-9223372036854775807..9223372036854775807`)
	assert.Equal(t, mdwerror.CodeUnsupportedOperation, rerr.Code())
}

// TestEngine_Msg tests message delivery to an agent inbox
func TestEngine_Msg(t *testing.T) {
	h := newHarness(t, testCaller)
	h.eval(t, `
spawn receiver: worker {} { }
msg receiver { type: "ping", amount: 3 };`)

	handle, _ := h.global(t, "receiver").AsAgent()
	msgs, err := h.engine.Agents().ReceiveMessages(handle.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Type)
	assert.Equal(t, MainSender, msgs[0].SenderID)

	rerr := h.evalErr(t, `msg ghost { type: "ping" };`)
	assert.Equal(t, mdwerror.CodeAgentNotFound, rerr.Code())
}

// TestEngine_ExecuteCallsMain tests the program entry point
func TestEngine_ExecuteCallsMain(t *testing.T) {
	h := newHarness(t, testCaller)
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard()}).ParseSource(`
fn main() { print("main ran"); }`)
	require.NoError(t, err)
	require.NoError(t, h.engine.Execute(context.Background(), program))
	assert.Equal(t, "main ran\n", h.out.String())
}

// TestEngine_Cancellation tests that a cancelled context is not catchable
func TestEngine_Cancellation(t *testing.T) {
	h := newHarness(t, testCaller)
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard()}).ParseSource(`
try { while (true) { await 5; } } catch (e) { }`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = h.engine.Eval(ctx, program)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
