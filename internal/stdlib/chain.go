// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: chain:: namespace (chain registry, token ledger, MEV pool)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"math"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/security"
)

// ChainConfig describes a supported chain
type ChainConfig struct {
	ChainID       int64
	Name          string
	RPCURL        string
	Explorer      string
	GasLimit      int64
	GasPrice      float64
	Confirmations int64
	Testnet       bool
}

func (c ChainConfig) toMap() map[string]interface{} {
	return map[string]interface{}{
		"chain_id":      c.ChainID,
		"name":          c.Name,
		"rpc_url":       c.RPCURL,
		"explorer":      c.Explorer,
		"gas_limit":     c.GasLimit,
		"gas_price":     c.GasPrice,
		"confirmations": c.Confirmations,
		"is_testnet":    c.Testnet,
	}
}

// Chains is the registry of supported chains
var Chains = map[int64]ChainConfig{
	1:     {1, "Ethereum Mainnet", "https://mainnet.infura.io/v3/YOUR_PROJECT_ID", "https://etherscan.io", 21000, 20.0, 12, false},
	5:     {5, "Ethereum Goerli", "https://goerli.infura.io/v3/YOUR_PROJECT_ID", "https://goerli.etherscan.io", 21000, 2.0, 6, true},
	56:    {56, "Binance Smart Chain", "https://bsc-dataseed.binance.org", "https://bscscan.com", 21000, 5.0, 15, false},
	137:   {137, "Polygon", "https://polygon-rpc.com", "https://polygonscan.com", 21000, 30.0, 256, false},
	42161: {42161, "Arbitrum One", "https://arb1.arbitrum.io/rpc", "https://arbiscan.io", 21000, 0.1, 1, false},
	80001: {80001, "Polygon Mumbai", "https://rpc-mumbai.maticvigil.com", "https://mumbai.polygonscan.com", 21000, 1.0, 6, true},
}

var baseGas = map[string]int64{
	"transfer": 21000,
	"mint":     50000,
	"burn":     30000,
	"approve":  46000,
	"deploy":   200000,
}

// EstimateGas returns the gas of operation on chainID; testnets charge
// half. An unknown chain costs nothing.
func EstimateGas(chainID int64, operation string) int64 {
	cfg, ok := Chains[chainID]
	if !ok {
		return 0
	}
	gas, ok := baseGas[operation]
	if !ok {
		gas = baseGas["transfer"]
	}
	if cfg.Testnet {
		gas /= 2
	}
	return gas
}

// ledger keeps 256-bit balances per chain and address
type ledger struct {
	mu       sync.Mutex
	balances map[int64]map[string]*uint256.Int
	supply   map[int64]*uint256.Int
}

func newLedger() *ledger {
	return &ledger{
		balances: make(map[int64]map[string]*uint256.Int),
		supply:   make(map[int64]*uint256.Int),
	}
}

func (l *ledger) account(chainID int64, address string) *uint256.Int {
	accounts, ok := l.balances[chainID]
	if !ok {
		accounts = make(map[string]*uint256.Int)
		l.balances[chainID] = accounts
	}
	bal, ok := accounts[address]
	if !ok {
		bal = new(uint256.Int)
		accounts[address] = bal
	}
	return bal
}

func (l *ledger) balance(chainID int64, address string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.account(chainID, address))
}

func addChecked(x, y *uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int).Add(x, y)
	if sum.Lt(x) {
		return nil, runtime.NewError(mdwerror.CodeOverflow, "uint256 overflow")
	}
	return sum, nil
}

func (l *ledger) mint(chainID int64, address string, amount *uint256.Int) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	supply, ok := l.supply[chainID]
	if !ok {
		supply = new(uint256.Int)
	}
	newSupply, err := addChecked(supply, amount)
	if err != nil {
		return nil, err
	}
	bal := l.account(chainID, address)
	newBal, err := addChecked(bal, amount)
	if err != nil {
		return nil, err
	}
	l.supply[chainID] = newSupply
	bal.Set(newBal)
	return new(uint256.Int).Set(bal), nil
}

func (l *ledger) transfer(chainID int64, from, to string, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.account(chainID, from)
	if src.Lt(amount) {
		return runtime.NewError(mdwerror.CodeInsufficientFunds, "insufficient balance: %s has %s, needs %s",
			from, src.ToBig().String(), amount.ToBig().String())
	}
	dst := l.account(chainID, to)
	newDst, err := addChecked(dst, amount)
	if err != nil {
		return err
	}
	src.Sub(src, amount)
	dst.Set(newDst)
	return nil
}

// amountArg reads a non-negative amount given as int or decimal string
func amountArg(a runtime.Args, i int) (*uint256.Int, error) {
	if err := a.Want(i + 1); err != nil {
		return nil, err
	}
	v := a.Get(i)
	if n, ok := v.AsInt(); ok {
		if n < 0 {
			return nil, runtime.NewError(mdwerror.CodeInvalidInput, "%s: amount must not be negative", a.Function)
		}
		return new(uint256.Int).SetUint64(uint64(n)), nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, runtime.NewError(mdwerror.CodeTypeMismatch, "%s argument %d must be an amount, got %s",
			a.Function, i+1, v.TypeName())
	}
	b, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || b.Sign() < 0 {
		return nil, runtime.NewError(mdwerror.CodeInvalidInput, "%s: invalid amount %q", a.Function, s)
	}
	amount, overflow := uint256.FromBig(b)
	if overflow {
		return nil, runtime.NewError(mdwerror.CodeOverflow, "%s: amount %s exceeds 256 bits", a.Function, s)
	}
	return amount, nil
}

// amountValue renders an amount as int when it fits, else as a decimal string
func amountValue(x *uint256.Int) runtime.Value {
	if x.IsUint64() && x.Uint64() <= math.MaxInt64 {
		return runtime.Int(int64(x.Uint64()))
	}
	return runtime.String(x.ToBig().String())
}

func chainArg(a runtime.Args, i int) (int64, error) {
	id, err := a.Int(i)
	if err != nil {
		return 0, err
	}
	if _, ok := Chains[id]; !ok {
		return 0, runtime.NewError(mdwerror.CodeInvalidInput, "%s: unsupported chain %d", a.Function, id)
	}
	return id, nil
}

func timelockArgs(a runtime.Args) (string, string, error) {
	if err := a.Exactly(2); err != nil {
		return "", "", err
	}
	id, err := a.String(0)
	if err != nil {
		return "", "", err
	}
	who, err := a.String(1)
	if err != nil {
		return "", "", err
	}
	return id, who, nil
}

// sender identifies who submits a protected transaction
func sender(ctx context.Context) string {
	if id, ok := runtime.AgentIDFrom(ctx); ok {
		return id
	}
	return "main"
}

func (l *Library) chainFuncs() runtime.FuncTable {
	mev := l.options.MEV
	locks := l.options.TimeLocks
	return runtime.FuncTable{
		"get_supported_chains": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			ids := make([]int64, 0, len(Chains))
			for id := range Chains {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			items := make([]runtime.Value, len(ids))
			for i, id := range ids {
				items[i] = runtime.FromInterface(Chains[id].toMap())
			}
			return runtime.NewVectorValue(items...), nil
		},

		"get_chain_config": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::get_chain_config", args)
			id, err := a.Int(0)
			if err != nil {
				return runtime.Null, err
			}
			cfg, ok := Chains[id]
			if !ok {
				return runtime.Null, nil
			}
			return runtime.FromInterface(cfg.toMap()), nil
		},

		"estimate_gas": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::estimate_gas", args)
			id, err := a.Int(0)
			if err != nil {
				return runtime.Null, err
			}
			op, err := a.StringOr(1, "transfer")
			if err != nil {
				return runtime.Null, err
			}
			return runtime.Int(EstimateGas(id, op)), nil
		},

		// mint(chain_id, address, amount) returns the new balance
		"mint": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::mint", args)
			id, err := chainArg(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			addr, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			amount, err := amountArg(a, 2)
			if err != nil {
				return runtime.Null, err
			}
			bal, err := l.chain.mint(id, addr, amount)
			if err != nil {
				return runtime.Null, err
			}
			l.logger.Debug("Tokens minted", mdwlog.Fields{"chain_id": id, "address": addr})
			return amountValue(bal), nil
		},

		"get_balance": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::get_balance", args)
			id, err := chainArg(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			addr, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			return amountValue(l.chain.balance(id, addr)), nil
		},

		// transfer(chain_id, from, to, amount)
		"transfer": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::transfer", args)
			id, err := chainArg(a, 0)
			if err != nil {
				return runtime.Null, err
			}
			from, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			to, err := a.String(2)
			if err != nil {
				return runtime.Null, err
			}
			amount, err := amountArg(a, 3)
			if err != nil {
				return runtime.Null, err
			}
			if err := l.chain.transfer(id, from, to, amount); err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(true), nil
		},

		// submit_protected(call, protection[, commitment][, priority_fee])
		"submit_protected": func(ctx context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::submit_protected", args)
			call, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			protection, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			commitment, err := a.StringOr(2, "")
			if err != nil {
				return runtime.Null, err
			}
			fee, err := a.IntOr(3, 0)
			if err != nil {
				return runtime.Null, err
			}
			if fee < 0 {
				return runtime.Null, runtime.NewError(mdwerror.CodeInvalidInput, "chain::submit_protected: negative priority fee")
			}
			// the submission scheme orders the call but does not make an
			// attack pattern in it acceptable
			if err := security.AnalyzeTransaction(call); err != nil {
				l.logger.WarnWithErr("Protected submission rejected", err, mdwlog.Fields{"sender": sender(ctx)})
				return runtime.Null, err
			}
			tx, err := mev.Submit(sender(ctx), call, security.Protection(protection), commitment, uint64(fee))
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(tx.ID), nil
		},

		// reveal(tx_id, data, nonce) opens a commit-reveal submission
		"reveal": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::reveal", args)
			if err := a.Exactly(3); err != nil {
				return runtime.Null, err
			}
			txID, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			nonce, err := a.Int(2)
			if err != nil {
				return runtime.Null, err
			}
			if err := mev.Reveal(txID, []byte(a.Get(1).String()), uint64(nonce)); err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(true), nil
		},

		"process_batch": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			return runtime.FromInterface(mev.ProcessBatch()), nil
		},

		"pending_transactions": func(_ context.Context, _ []runtime.Value) (runtime.Value, error) {
			return runtime.Int(int64(mev.Pending())), nil
		},

		// timelock_create(type, target, delay_seconds, creator, approvers[, data])
		// locks calls to target until the delay has passed
		"timelock_create": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::timelock_create", args)
			if err := a.Want(5); err != nil {
				return runtime.Null, err
			}
			opType, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			target, err := a.String(1)
			if err != nil {
				return runtime.Null, err
			}
			delay, err := a.Int(2)
			if err != nil {
				return runtime.Null, err
			}
			creator, err := a.String(3)
			if err != nil {
				return runtime.Null, err
			}
			approvers, err := a.Strings(4)
			if err != nil {
				return runtime.Null, err
			}
			data, err := a.StringOr(5, "")
			if err != nil {
				return runtime.Null, err
			}
			op, err := locks.Create(opType, target, []byte(data), creator, time.Duration(delay)*time.Second, approvers)
			if err != nil {
				return runtime.Null, err
			}
			l.logger.Info("Time lock created", mdwlog.Fields{
				"operation": op.ID,
				"target":    target,
				"unlock_at": op.UnlockAt,
			})
			return runtime.String(op.ID), nil
		},

		"timelock_approve": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::timelock_approve", args)
			id, approver, err := timelockArgs(a)
			if err != nil {
				return runtime.Null, err
			}
			if err := locks.Approve(id, approver); err != nil {
				return runtime.Null, err
			}
			return runtime.Bool(true), nil
		},

		// timelock_execute(id, executor) returns the operation data
		"timelock_execute": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::timelock_execute", args)
			id, executor, err := timelockArgs(a)
			if err != nil {
				return runtime.Null, err
			}
			data, err := locks.Execute(id, executor)
			if err != nil {
				return runtime.Null, err
			}
			l.logger.Info("Time lock executed", mdwlog.Fields{"operation": id, "executor": executor})
			return runtime.String(string(data)), nil
		},

		// timelock_cancel(id, guardian)
		"timelock_cancel": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("chain::timelock_cancel", args)
			id, guardian, err := timelockArgs(a)
			if err != nil {
				return runtime.Null, err
			}
			if err := locks.Cancel(id, guardian); err != nil {
				return runtime.Null, err
			}
			l.logger.Warn("Time lock cancelled", mdwlog.Fields{"operation": id})
			return runtime.Bool(true), nil
		},
	}
}
