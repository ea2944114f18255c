// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: Tests for the built-in namespaces
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwconfig "github.com/msto63/dal/foundation/core/config"
	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/agent"
	"github.com/msto63/dal/internal/mold"
	"github.com/msto63/dal/internal/parser"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/security"
)

type fixture struct {
	lib    *Library
	engine *runtime.Engine
	agents *agent.Manager
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	agents := agent.NewManager(agent.Options{Logger: mdwlog.Discard()})
	o := Options{Logger: mdwlog.Discard(), Agents: agents}
	for _, fn := range opts {
		fn(&o)
	}
	reg := runtime.NewRegistry()
	lib, err := Install(reg, o)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	engine := runtime.New(runtime.Options{
		Logger:     mdwlog.Discard(),
		Namespaces: reg,
		Agents:     agents,
		TimeLocks:  o.TimeLocks,
	})
	return &fixture{lib: lib, engine: engine, agents: agents}
}

func (f *fixture) run(src string) (runtime.Value, error) {
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard(), File: "stdlib.dal"}).ParseSource(src)
	if err != nil {
		return runtime.Null, err
	}
	return f.engine.Eval(context.Background(), program)
}

func (f *fixture) eval(t *testing.T, src string) runtime.Value {
	t.Helper()
	v, err := f.run(src)
	require.NoError(t, err)
	return v
}

func (f *fixture) evalCode(t *testing.T, src string) mdwerror.Code {
	t.Helper()
	_, err := f.run(src)
	require.Error(t, err)
	return mdwerror.GetCode(err)
}

func str(t *testing.T, v runtime.Value) string {
	t.Helper()
	s, ok := v.AsString()
	require.True(t, ok, "want string, got %s", v.TypeName())
	return s
}

func field(t *testing.T, v runtime.Value, key string) runtime.Value {
	t.Helper()
	m, ok := v.AsMap()
	require.True(t, ok, "want map, got %s", v.TypeName())
	item, _ := m.Get(key)
	return item
}

// TestInstall_RegistersEveryNamespace tests registration
func TestInstall_RegistersEveryNamespace(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Namespaces, f.engine.Namespaces().Namespaces())
}

// TestCrypto tests hashing and commitments
func TestCrypto(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		str(t, f.eval(t, `crypto::hash("abc")`)))
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		str(t, f.eval(t, `crypto::keccak256("")`)))
	assert.Len(t, str(t, f.eval(t, `crypto::random_hash()`)), 64)
	assert.Len(t, str(t, f.eval(t, `crypto::hash("abc", "sha512")`)), 128)

	ok := f.eval(t, `
let c = crypto::commit("bid:42", 7);
crypto::verify_commit(c, "bid:42", 7) && !crypto::verify_commit(c, "bid:43", 7)
`)
	assert.Equal(t, runtime.Bool(true), ok)

	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `crypto::hash("abc", "md4")`))
	assert.Equal(t, mdwerror.CodeArgumentCount, f.evalCode(t, `crypto::commit("x")`))
}

// TestChain_Ledger tests minting, balances and transfers
func TestChain_Ledger(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, runtime.Int(100), f.eval(t, `chain::mint(1, "alice", 100)`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `chain::transfer(1, "alice", "bob", 40)`))
	assert.Equal(t, runtime.Int(60), f.eval(t, `chain::get_balance(1, "alice")`))
	assert.Equal(t, runtime.Int(40), f.eval(t, `chain::get_balance(1, "bob")`))
	assert.Equal(t, runtime.Int(0), f.eval(t, `chain::get_balance(137, "bob")`), "ledgers are per chain")

	assert.Equal(t, mdwerror.CodeInsufficientFunds, f.evalCode(t, `chain::transfer(1, "bob", "carol", 41)`))
	assert.Equal(t, runtime.Int(40), f.eval(t, `chain::get_balance(1, "bob")`), "failed transfer moves nothing")

	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `chain::mint(999, "alice", 1)`))
	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `chain::mint(1, "alice", -5)`))
}

// TestChain_Uint256 tests amounts beyond int64 and overflow
func TestChain_Uint256(t *testing.T) {
	f := newFixture(t)
	max := "115792089237316195423570985008687907853269984665640564039457584007913129639935"

	assert.Equal(t, max, str(t, f.eval(t, fmt.Sprintf(`chain::mint(56, "whale", "%s")`, max))))
	assert.Equal(t, mdwerror.CodeOverflow, f.evalCode(t, `chain::mint(56, "whale", 1)`))
	assert.Equal(t, mdwerror.CodeOverflow, f.evalCode(t, fmt.Sprintf(`chain::mint(56, "x", "%s0")`, max)))
	assert.Equal(t, max, str(t, f.eval(t, `chain::get_balance(56, "whale")`)))
}

// TestChain_Registry tests chain configs and gas estimates
func TestChain_Registry(t *testing.T) {
	f := newFixture(t)

	chains, ok := f.eval(t, `chain::get_supported_chains()`).AsVector()
	require.True(t, ok)
	assert.Equal(t, len(Chains), chains.Len())

	cfg := f.eval(t, `chain::get_chain_config(137)`)
	assert.Equal(t, runtime.String("Polygon"), field(t, cfg, "name"))
	assert.True(t, f.eval(t, `chain::get_chain_config(999)`).IsNull())

	assert.Equal(t, runtime.Int(50000), f.eval(t, `chain::estimate_gas(1, "mint")`))
	assert.Equal(t, runtime.Int(25000), f.eval(t, `chain::estimate_gas(5, "mint")`))
	assert.Equal(t, runtime.Int(21000), f.eval(t, `chain::estimate_gas(1)`))
	assert.Equal(t, runtime.Int(0), f.eval(t, `chain::estimate_gas(999, "mint")`))
}

// TestChain_ProtectedSubmission tests the commit-reveal pool
func TestChain_ProtectedSubmission(t *testing.T) {
	f := newFixture(t)

	f.eval(t, `let tx = chain::submit_protected("swap", "commit_reveal", crypto::commit("swap-data", 7), 3);`)
	assert.Equal(t, runtime.Int(1), f.eval(t, `chain::pending_transactions()`))

	batch, ok := f.eval(t, `chain::process_batch()`).AsVector()
	require.True(t, ok)
	assert.Equal(t, 0, batch.Len(), "unrevealed transactions stay pooled")

	assert.Equal(t, mdwerror.CodeMEVProtection, f.evalCode(t, `chain::reveal(tx, "other-data", 7)`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `chain::reveal(tx, "swap-data", 7)`))

	batch, ok = f.eval(t, `chain::process_batch()`).AsVector()
	require.True(t, ok)
	require.Equal(t, 1, batch.Len())
	first, _ := batch.Get(0)
	tx, _ := f.engine.Lookup("tx")
	assert.Equal(t, tx, first)

	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `chain::submit_protected("swap", "commit_reveal")`))
	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `chain::submit_protected("swap", "teleport")`))
}

// TestChain_ProtectedSubmissionRejectsAttacks tests that submissions whose
// call text carries an attack pattern never reach the pool
func TestChain_ProtectedSubmissionRejectsAttacks(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, mdwerror.CodeMEVProtection,
		f.evalCode(t, `chain::submit_protected("sandwich_swap(pool)", "fair_batch")`))
	assert.Equal(t, mdwerror.CodeMEVProtection,
		f.evalCode(t, `chain::submit_protected("urgent transfer", "time_delay")`))
	assert.Equal(t, runtime.Int(0), f.eval(t, `chain::pending_transactions()`))

	f.eval(t, `chain::submit_protected("swap(pool, max_slippage)", "fair_batch");`)
	assert.Equal(t, runtime.Int(1), f.eval(t, `chain::pending_transactions()`))
}

// TestChain_TimeLocks tests the time-lock lifecycle and that a pending lock
// refuses calls to its target
func TestChain_TimeLocks(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	locks := security.NewTimeLockManager(func() time.Time { return now })
	locks.AddConfig("upgrade", security.TimeLockConfig{
		MinDelay:          time.Hour,
		MaxDelay:          24 * time.Hour,
		MinApprovals:      1,
		EmergencyGuardian: "guardian",
		CanCancel:         true,
	})
	f := newFixture(t, func(o *Options) { o.TimeLocks = locks })

	f.eval(t, `
fn upgrade() -> string { "upgraded" }
let op = chain::timelock_create("upgrade", "upgrade", 7200, "admin", ["a1"], "v2");`)
	assert.Equal(t, mdwerror.CodeAccessDenied, f.evalCode(t, `upgrade()`))

	assert.Equal(t, mdwerror.CodeInvalidInput,
		f.evalCode(t, `chain::timelock_create("upgrade", "upgrade", 60, "admin", [])`))
	assert.Equal(t, mdwerror.CodeMissingConfig,
		f.evalCode(t, `chain::timelock_create("pause", "pause", 7200, "admin", [])`))

	assert.Equal(t, mdwerror.CodeAccessDenied, f.evalCode(t, `chain::timelock_approve(op, "mallory")`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `chain::timelock_approve(op, "a1")`))
	assert.Equal(t, mdwerror.CodeAccessDenied, f.evalCode(t, `chain::timelock_execute(op, "admin")`),
		"still locked")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, runtime.String("v2"), f.eval(t, `chain::timelock_execute(op, "admin")`))
	assert.Equal(t, runtime.String("upgraded"), f.eval(t, `upgrade()`))

	f.eval(t, `let op2 = chain::timelock_create("upgrade", "upgrade", 3600, "admin", []);`)
	assert.Equal(t, mdwerror.CodeAccessDenied, f.evalCode(t, `chain::timelock_cancel(op2, "admin")`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `chain::timelock_cancel(op2, "guardian")`))
	assert.Equal(t, runtime.String("upgraded"), f.eval(t, `upgrade()`))
	assert.Equal(t, mdwerror.CodeArgumentCount, f.evalCode(t, `chain::timelock_cancel(op2)`))
}

// TestLog tests buffered log entries
func TestLog(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.LogBuffer = 3 })

	f.eval(t, `
log::info("started", { step: 1 });
log::audit("transfer", { amount: 5 });
log::warning("slow");
log::debug("detail", 42);
`)
	entries := f.lib.Entries("")
	require.Len(t, entries, 3, "buffer keeps the newest entries")
	assert.Equal(t, "transfer", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"amount": int64(5)}, entries[0].Data)
	assert.Equal(t, map[string]interface{}{"value": int64(42)}, entries[2].Data)
	assert.Equal(t, "main", entries[0].Source)

	audits, ok := f.eval(t, `log::get_entries("audit")`).AsVector()
	require.True(t, ok)
	assert.Equal(t, 1, audits.Len())

	stats := f.eval(t, `log::get_stats()`)
	assert.Equal(t, runtime.Int(3), field(t, stats, "total"))

	assert.Equal(t, runtime.Int(3), f.eval(t, `log::clear()`))
	assert.Empty(t, f.lib.Entries(""))
	assert.Equal(t, mdwerror.CodeArgumentCount, f.evalCode(t, `log::info()`))
}

// TestDB_SQLite tests exec and query against SQLite
func TestDB_SQLite(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "data", "ledger.db")

	f.eval(t, fmt.Sprintf(`let conn = db::connect(%q);`, path))
	f.eval(t, `db::exec(conn, "CREATE TABLE accounts (owner TEXT, balance INTEGER)");`)
	assert.Equal(t, runtime.Int(1), f.eval(t, `db::exec(conn, "INSERT INTO accounts VALUES (?, ?)", "alice", 100)`))
	assert.Equal(t, runtime.Int(1), f.eval(t, `db::exec(conn, "INSERT INTO accounts VALUES (?, ?)", ["bob", 7])`))

	rows := f.eval(t, `db::query(conn, "SELECT owner, balance FROM accounts ORDER BY balance DESC")`)
	vec, ok := rows.AsVector()
	require.True(t, ok)
	require.Equal(t, 2, vec.Len())
	first, _ := vec.Get(0)
	assert.Equal(t, runtime.String("alice"), field(t, first, "owner"))
	assert.Equal(t, runtime.Int(100), field(t, first, "balance"))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	assert.Equal(t, mdwerror.CodeDatabaseError, f.evalCode(t, `db::query(conn, "SELECT * FROM missing")`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `db::close(conn)`))
	assert.Equal(t, mdwerror.CodeNotFound, f.evalCode(t, `db::exec(conn, "SELECT 1")`))
}

// TestDB_Cache tests the key/value cache
func TestDB_Cache(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, runtime.Bool(true), f.eval(t, `db::cache_set("price", 42)`))
		assert.Equal(t, runtime.String("42"), f.eval(t, `db::cache_get("price")`))
		assert.Equal(t, runtime.String("none"), f.eval(t, `db::cache_get("missing", "none")`))
		assert.True(t, f.eval(t, `db::cache_get("missing")`).IsNull())
		assert.Equal(t, runtime.Bool(true), f.eval(t, `db::cache_delete("price")`))
		assert.Equal(t, runtime.Bool(false), f.eval(t, `db::cache_delete("price")`))
	})

	t.Run("persistent", func(t *testing.T) {
		dir := t.TempDir()
		f := newFixture(t, func(o *Options) { o.CacheDir = dir })
		f.eval(t, `db::cache_set("k", "v");`)
		require.NoError(t, f.lib.Close())

		again := newFixture(t, func(o *Options) { o.CacheDir = dir })
		assert.Equal(t, runtime.String("v"), again.eval(t, `db::cache_get("k")`))
	})
}

// TestConfig tests configuration and environment lookups
func TestConfig(t *testing.T) {
	cfg, err := mdwconfig.LoadFromString("[engine]\nmode = \"strict\"\nmax_depth = 64\n", mdwconfig.FormatTOML)
	require.NoError(t, err)
	f := newFixture(t, func(o *Options) { o.Config = cfg })
	t.Setenv("DAL_STDLIB_TEST", "on")

	assert.Equal(t, runtime.String("strict"), f.eval(t, `config::get("engine.mode")`))
	assert.Equal(t, runtime.Int(64), f.eval(t, `config::get("engine.max_depth")`))
	assert.Equal(t, runtime.String("x"), f.eval(t, `config::get("engine.missing", "x")`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `config::has("engine")`))

	assert.Equal(t, runtime.String("on"), f.eval(t, `config::get_env("DAL_STDLIB_TEST")`))
	assert.True(t, f.eval(t, `config::get_env("DAL_STDLIB_UNSET")`).IsNull())
	assert.Equal(t, runtime.Int(3), f.eval(t, `config::get_env_or_default("DAL_STDLIB_UNSET", 3)`))
	assert.Equal(t, runtime.String("on"), f.eval(t, `config::get_required_env("DAL_STDLIB_TEST")`))
	assert.Equal(t, mdwerror.CodeMissingConfig, f.evalCode(t, `config::get_required_env("DAL_STDLIB_UNSET")`))
}

// TestWeb_WSSend tests the WebSocket client against an echo server
func TestWeb_WSSend(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		conn.WriteMessage(mt, data)
	}))
	defer srv.Close()

	f := newFixture(t)
	f.engine.Define("url", runtime.String("ws"+strings.TrimPrefix(srv.URL, "http")))

	reply := f.eval(t, `web::ws_send(url, { kind: "ping", n: 1 }, true)`)
	assert.Equal(t, runtime.String("ping"), field(t, reply, "kind"))
	assert.JSONEq(t, `{"kind":"ping","n":1}`, <-received)

	assert.Equal(t, runtime.Bool(true), f.eval(t, `web::ws_send(url, "hello")`))
	assert.Equal(t, "hello", <-received)

	result := f.eval(t, `web::ws_broadcast([url, url, "ws://127.0.0.1:1/none"], "all")`)
	assert.Equal(t, runtime.Int(2), field(t, result, "sent"))
	assert.Equal(t, "all", <-received)
	assert.Equal(t, "all", <-received)
	failed, ok := field(t, result, "failed").AsVector()
	require.True(t, ok)
	assert.Equal(t, 1, failed.Len())

	assert.Equal(t, mdwerror.CodeNetworkError, f.evalCode(t, `web::ws_send("ws://127.0.0.1:1/none", "x")`))
}

// TestWeb_ParseURL tests URL decomposition
func TestWeb_ParseURL(t *testing.T) {
	parts, err := ParseURL("https://api.example.com:8443/v1/prices?pair=eth-usd#top")
	require.NoError(t, err)
	assert.Equal(t, "https", parts["scheme"])
	assert.Equal(t, "api.example.com", parts["host"])
	assert.Equal(t, "8443", parts["port"])
	assert.Equal(t, "/v1/prices", parts["path"])
	assert.Equal(t, map[string]interface{}{"pair": "eth-usd"}, parts["query"])
	assert.Equal(t, "top", parts["fragment"])

	_, err = ParseURL("not a url")
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))

	f := newFixture(t)
	assert.Equal(t, runtime.String("example.org"), field(t, f.eval(t, `web::parse_url("http://example.org/x")`), "host"))
}

// TestAgent_Namespace tests spawning, messaging and capability checks
func TestAgent_Namespace(t *testing.T) {
	f := newFixture(t)

	id := str(t, f.eval(t, `let w = agent::spawn({ name: "w1", type: "worker", capabilities: ["compute"] }); w`))
	assert.True(t, strings.HasPrefix(id, "agent_"))
	ac, err := f.agents.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"compute"}, ac.Config.Capabilities, "explicit capabilities replace the defaults")

	assert.Equal(t, runtime.Bool(true), f.eval(t, `agent::is_capable(w, "compute")`))
	assert.Equal(t, runtime.Bool(false), f.eval(t, `agent::is_capable(w, "automation")`))
	assert.Equal(t, runtime.Bool(true), f.eval(t, `agent::validate_capabilities("worker", ["automation"])`),
		"type-level check ignores the instance list")
	assert.Equal(t, runtime.Bool(false), f.eval(t, `agent::validate_capabilities("worker", ["compute"])`))
	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `agent::validate_capabilities("robot", ["x"])`))

	f.eval(t, `agent::register_capabilities("worker", ["compute"]);`)
	assert.Equal(t, runtime.Bool(true), f.eval(t, `agent::validate_capabilities("worker", ["compute"])`))

	msgID := str(t, f.eval(t, `agent::communicate("w1", { text: "hi" }, "greeting", "high")`))
	assert.True(t, strings.HasPrefix(msgID, "msg_"))
	msgs, ok := f.eval(t, `agent::receive_messages(w)`).AsVector()
	require.True(t, ok)
	require.Equal(t, 1, msgs.Len())
	msg, _ := msgs.Get(0)
	assert.Equal(t, runtime.String("main"), field(t, msg, "sender_id"))
	assert.Equal(t, runtime.String("greeting"), field(t, msg, "type"))
	assert.Equal(t, runtime.String("hi"), field(t, field(t, msg, "content"), "text"))
	assert.True(t, f.eval(t, `agent::wait_message(w, 10)`).IsNull(), "empty inbox times out with null")

	assert.Equal(t, mdwerror.CodeAgentNotFound, f.evalCode(t, `agent::communicate("ghost", "x")`))
	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `agent::receive_messages()`))

	taskID := str(t, f.eval(t, `agent::coordinate(w, { description: "crunch", priority: "high" }, "task_distribution")`))
	tasks, ok := f.eval(t, `agent::receive_pending_tasks(w)`).AsVector()
	require.True(t, ok)
	require.Equal(t, 1, tasks.Len())
	task, _ := tasks.Get(0)
	assert.Equal(t, runtime.String(taskID), field(t, task, "id"))
	assert.Equal(t, runtime.String("high"), field(t, task, "priority"))
	assert.Equal(t, mdwerror.CodeInvalidInput, f.evalCode(t, `agent::coordinate(w, "x", "bribery")`))

	info := f.eval(t, `agent::get_info(w)`)
	assert.Equal(t, runtime.String("worker"), field(t, info, "type"))
	list, ok := f.eval(t, `agent::list()`).AsVector()
	require.True(t, ok)
	assert.Equal(t, 1, list.Len())

	f.eval(t, `agent::terminate(w);`)
	assert.Equal(t, mdwerror.CodeInvalidOperation, f.evalCode(t, `agent::communicate(w, "late")`))
}

// TestAgent_Workflow tests workflows built from DAL code
func TestAgent_Workflow(t *testing.T) {
	f := newFixture(t)

	result := f.eval(t, `
let a = agent::spawn({ name: "fetcher", type: "worker" });
let b = agent::spawn({ name: "analyst", type: "ai" });
let wf = agent::create_workflow("pipeline", [
    { id: "fetch", agent_id: a, task_type: "fetch" },
    { id: "analyze", agent: "analyst", task_type: "analyze", dependencies: ["fetch"] }
]);
agent::run_workflow(wf)
`)
	assert.Equal(t, runtime.String("completed"), field(t, result, "status"))
	results, ok := field(t, result, "results").AsVector()
	require.True(t, ok)
	require.Equal(t, 2, results.Len())
	second, _ := results.Get(1)
	assert.Equal(t, runtime.String("completed"), field(t, second, "status"))

	tasks, ok := f.eval(t, `agent::receive_pending_tasks("analyst")`).AsVector()
	require.True(t, ok)
	assert.Equal(t, 1, tasks.Len(), "each step is queued on its agent")

	assert.Equal(t, mdwerror.CodeAgentNotFound,
		f.evalCode(t, `agent::create_workflow("bad", [{ id: "s", agent_id: "nobody" }])`))
	assert.Equal(t, mdwerror.CodeNotFound, f.evalCode(t, `agent::run_workflow("workflow_missing")`))
}

// TestMold_Namespace tests loading molds and spawning from them
func TestMold_Namespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mold"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mold", "analyst.mold.yaml"), []byte(`
name: analyst
version: "1.2"
agent:
  type: ai
  capabilities: [analysis, reporting]
`), 0o644))

	f := newFixture(t, func(o *Options) {
		o.Molds = mold.NewLoader(mold.Options{Dir: dir, Logger: mdwlog.Discard()})
	})

	info := f.eval(t, `mold::load("analyst")`)
	assert.Equal(t, runtime.String("analyst"), field(t, info, "name"))
	assert.Equal(t, runtime.String("1.2"), field(t, info, "version"))

	list, ok := f.eval(t, `mold::list()`).AsVector()
	require.True(t, ok)
	assert.Equal(t, 1, list.Len())

	id := str(t, f.eval(t, `mold::spawn_from("analyst", "analyst-1")`))
	ac, err := f.agents.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "analyst-1", ac.Config.Name)
	assert.Equal(t, []string{"analysis", "reporting"}, ac.Config.Capabilities)
	assert.Equal(t, "analyst", ac.Config.Metadata["mold_name"])

	assert.Equal(t, mdwerror.CodeNotFound, f.evalCode(t, `mold::load("ghost")`))
	assert.Equal(t, runtime.String("analyst"), field(t, f.eval(t, `mold::get_info("analyst")`), "name"))
}

// TestEstimateGas tests the gas table directly
func TestEstimateGas(t *testing.T) {
	tests := []struct {
		chain int64
		op    string
		want  int64
	}{
		{1, "transfer", 21000},
		{1, "deploy", 200000},
		{80001, "approve", 23000},
		{137, "unknown", 21000},
		{2, "transfer", 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%s", tt.chain, tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateGas(tt.chain, tt.op))
		})
	}
}
