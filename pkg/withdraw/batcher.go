// Copyright 2025 Certen Protocol
//
// Batcher decides when the withdrawal batcher closes the pending
// withdrawal set into a posted Merkle batch (spec.md sec. 4.4), triggered
// by size or age exactly like the teacher's pkg/batch.Scheduler/Collector
// pair (a mutex-guarded accumulator plus a size/timeout-driven close), but
// collapsed into one type since there is only ever one open batch here,
// not an on-cadence/on-demand split.

package withdraw

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/certen/chess-rollup/pkg/merkle"
	"github.com/certen/chess-rollup/pkg/state"
)

// ErrBatchNotReady is returned by Close when neither the size nor
// age threshold has been reached and force is false.
var ErrBatchNotReady = errors.New("withdraw: batch not ready to close")

// Config controls when a batch is eligible to close.
type Config struct {
	MaxBatchSize int
	MaxBatchAge  time.Duration
}

// DefaultConfig mirrors the teacher's DefaultSchedulerConfig proportions,
// scaled down for a rollup that closes batches far more often than a
// 15-minute L1 anchor cadence.
func DefaultConfig() Config {
	return Config{MaxBatchSize: 100, MaxBatchAge: 10 * time.Minute}
}

// Batcher tracks how long the current withdrawal set has been open and
// decides whether it is eligible to close.
type Batcher struct {
	mu        sync.Mutex
	cfg       Config
	openSince time.Time
	logger    *log.Logger
}

// New returns a Batcher whose window starts now.
func New(cfg Config, logger *log.Logger) *Batcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[withdraw] ", log.LstdFlags)
	}
	return &Batcher{cfg: cfg, openSince: time.Now(), logger: logger}
}

// Ready reports whether the open withdrawal set in st is eligible to
// close: non-empty, and either at or above MaxBatchSize or older than
// MaxBatchAge.
func (b *Batcher) Ready(st *state.State) bool {
	if len(st.Withdrawals) == 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg.MaxBatchSize > 0 && len(st.Withdrawals) >= b.cfg.MaxBatchSize {
		return true
	}
	if b.cfg.MaxBatchAge > 0 && time.Since(b.openSince) >= b.cfg.MaxBatchAge {
		return true
	}
	return false
}

// Close builds a WithdrawTree from st's pending withdrawals, appends it
// to st.Batches, and clears the pending set. force skips the Ready()
// check (used by the admin BatchWithdrawals command, spec.md sec. 6).
func (b *Batcher) Close(st *state.State, force bool) (state.WithdrawTree, error) {
	if !force && !b.Ready(st) {
		return state.WithdrawTree{}, ErrBatchNotReady
	}
	tree, err := merkle.BuildWithdrawTree(st.Withdrawals)
	if err != nil {
		return state.WithdrawTree{}, fmt.Errorf("withdraw: build tree: %w", err)
	}
	st.Batches = append(st.Batches, *tree)
	st.Withdrawals = st.Withdrawals[:0]

	b.mu.Lock()
	b.openSince = time.Now()
	b.mu.Unlock()

	b.logger.Printf("closed withdrawal batch %d: %d drops, root=%s", len(st.Batches)-1, tree.NumDrops, tree.Root)
	return *tree, nil
}
