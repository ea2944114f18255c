// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     security
// Description: MEV protection: commit-reveal, delayed and fair-batch ordering
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package security

import (
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// Protection is the scheme a transaction is submitted under
type Protection string

const (
	ProtectCommitReveal Protection = "commit_reveal"
	ProtectTimeDelay    Protection = "time_delay"
	ProtectFairBatch    Protection = "fair_batch"
)

// Ordering decides the order of a processed batch
type Ordering string

const (
	OrderFCFS        Ordering = "fcfs"
	OrderPriorityFee Ordering = "priority_fee"
	OrderShuffle     Ordering = "shuffle"
)

const (
	DefaultBatchSize = 100
	DefaultDelay     = 300 * time.Second
)

// SuspiciousPatterns flag transaction text as a potential MEV attack
var SuspiciousPatterns = []string{"sandwich", "frontrun", "backrun", "arbitrage", "liquidation", "flashloan"}

// Keccak256 hashes the concatenation of data
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Commitment returns hex(keccak256(data || big-endian nonce))
func Commitment(data []byte, nonce uint64) string {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return "0x" + hex.EncodeToString(Keccak256(data, n[:]))
}

// PendingTx is a transaction held back by the MEV manager
type PendingTx struct {
	ID           string
	Sender       string
	Call         string
	Protection   Protection
	Commitment   string
	Revealed     bool
	PriorityFee  uint64
	SubmittedAt  time.Time
	ExecuteAfter time.Time
	seq          int
}

// MEVOptions configures an MEVManager
type MEVOptions struct {
	Logger    *mdwlog.Logger
	BatchSize int
	Delay     time.Duration
	Ordering  Ordering
	Now       func() time.Time
}

// MEVManager holds protected transactions until they may be executed
type MEVManager struct {
	mu   sync.Mutex
	pool []*PendingTx
	seq  int

	batchSize int
	delay     time.Duration
	ordering  Ordering
	now       func() time.Time
	logger    *mdwlog.Logger
}

// NewMEVManager creates a manager with batch size 100 and a 300s delay
func NewMEVManager(opts MEVOptions) *MEVManager {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Ordering == "" {
		opts.Ordering = OrderShuffle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MEVManager{
		batchSize: opts.BatchSize,
		delay:     opts.Delay,
		ordering:  opts.Ordering,
		now:       opts.Now,
		logger:    opts.Logger.WithField("component", "dal-mev"),
	}
}

// Submit queues a transaction. For commit-reveal the caller supplies the
// commitment (see Commitment) and must Reveal before the transaction is
// eligible for a batch.
func (m *MEVManager) Submit(sender, call string, protection Protection, commitment string, priorityFee uint64) (*PendingTx, error) {
	now := m.now()
	tx := &PendingTx{
		ID:          "tx_" + uuid.New().String(),
		Sender:      sender,
		Call:        call,
		Protection:  protection,
		PriorityFee: priorityFee,
		SubmittedAt: now,
	}
	switch protection {
	case ProtectCommitReveal:
		if commitment == "" {
			return nil, mdwerror.New("commit-reveal submission requires a commitment").WithCode(mdwerror.CodeInvalidInput)
		}
		tx.Commitment = commitment
	case ProtectTimeDelay:
		tx.ExecuteAfter = now.Add(m.delay)
	case ProtectFairBatch:
	default:
		return nil, mdwerror.Newf("unknown protection type %q", protection).WithCode(mdwerror.CodeInvalidInput)
	}

	m.mu.Lock()
	m.seq++
	tx.seq = m.seq
	m.pool = append(m.pool, tx)
	m.mu.Unlock()

	m.logger.Debug("Protected transaction submitted", mdwlog.Fields{
		"tx_id":      tx.ID,
		"protection": string(protection),
	})
	return tx, nil
}

// Reveal opens a commit-reveal transaction when data and nonce match
func (m *MEVManager) Reveal(txID string, data []byte, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.pool {
		if tx.ID != txID {
			continue
		}
		if tx.Protection != ProtectCommitReveal {
			return mdwerror.Newf("transaction %s is not commit-reveal", txID).WithCode(mdwerror.CodeInvalidOperation)
		}
		if tx.Revealed {
			return mdwerror.Newf("transaction %s already revealed", txID).WithCode(mdwerror.CodeInvalidOperation)
		}
		if Commitment(data, nonce) != tx.Commitment {
			return mdwerror.Newf("reveal does not match commitment of %s", txID).WithCode(mdwerror.CodeMEVProtection)
		}
		tx.Revealed = true
		return nil
	}
	return mdwerror.Newf("transaction %s not found", txID).WithCode(mdwerror.CodeNotFound)
}

// Pending returns the number of queued transactions
func (m *MEVManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pool)
}

// ProcessBatch removes up to BatchSize eligible transactions and returns
// their ids in execution order. Delayed transactions become eligible after
// the delay, commit-reveal ones after their reveal.
func (m *MEVManager) ProcessBatch() []string {
	now := m.now()

	m.mu.Lock()
	var batch, rest []*PendingTx
	for _, tx := range m.pool {
		eligible := len(batch) < m.batchSize
		switch tx.Protection {
		case ProtectCommitReveal:
			eligible = eligible && tx.Revealed
		case ProtectTimeDelay:
			eligible = eligible && !now.Before(tx.ExecuteAfter)
		}
		if eligible {
			batch = append(batch, tx)
		} else {
			rest = append(rest, tx)
		}
	}
	m.pool = rest
	m.mu.Unlock()

	order(batch, m.ordering)
	ids := make([]string, len(batch))
	for i, tx := range batch {
		ids[i] = tx.ID
	}
	if len(ids) > 0 {
		m.logger.Info("Fair batch processed", mdwlog.Fields{
			"size":     len(ids),
			"ordering": string(m.ordering),
		})
	}
	return ids
}

func order(batch []*PendingTx, ordering Ordering) {
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	switch ordering {
	case OrderPriorityFee:
		sort.SliceStable(batch, func(i, j int) bool { return batch[i].PriorityFee > batch[j].PriorityFee })
	case OrderShuffle:
		// seeded from the batch itself so every node derives the same order
		parts := make([][]byte, len(batch))
		for i, tx := range batch {
			parts[i] = []byte(tx.ID)
		}
		seed := binary.BigEndian.Uint64(Keccak256(parts...)[:8])
		r := rand.New(rand.NewSource(int64(seed)))
		r.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	}
}

// AnalyzeTransaction flags transaction text containing a suspicious pattern
// unless it is monitoring code or carries a protection keyword.
func AnalyzeTransaction(text string) error {
	lower := strings.ToLower(text)
	if isMonitoringText(lower) || hasAnyProtection(lower) {
		return nil
	}
	for _, pattern := range SuspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return mdwerror.Newf("potential MEV attack detected: %s; consider commit-reveal, slippage or oracle protection", pattern).
				WithCode(mdwerror.CodeMEVProtection).
				WithDetail("pattern", pattern)
		}
	}
	if strings.Contains(lower, "urgent") || strings.Contains(lower, "priority") {
		return mdwerror.New("high-priority transaction flagged for MEV review").WithCode(mdwerror.CodeMEVProtection)
	}
	return nil
}

func isMonitoringText(text string) bool {
	for _, prefix := range MonitoringPrefixes {
		if strings.Contains(text, "fn "+prefix) || strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func hasAnyProtection(text string) bool {
	for _, family := range Families {
		for _, kw := range family.Keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}
