// Copyright 2025 Certen Protocol
//
// Loop is the rollup's single-threaded cooperative event loop (spec.md
// sec. 5): one chan Input carries RPC submissions, L1 log deliveries, and
// admin commands; each is run to completion -- no suspension mid-mutation
// -- before the next is dispatched. Grounded on the teacher's
// pkg/batch.Scheduler run-loop shape (select over a stop channel and a
// work channel inside a single goroutine) generalized from a timer-only
// trigger to a general work queue.

package sequencer

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/certen/chess-rollup/pkg/bridge"
	"github.com/certen/chess-rollup/pkg/execution"
	"github.com/certen/chess-rollup/pkg/prover"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/storage"
	"github.com/certen/chess-rollup/pkg/withdraw"
)

// Input is anything the loop can dequeue and process to completion.
type Input interface{ isInput() }

// SubmitTx is an RPC-submitted signed transaction. Result receives the
// outcome of execution.Execute (nil on success).
type SubmitTx struct {
	Tx     state.SignedTransaction
	Result chan<- error
}

func (SubmitTx) isInput() {}

// L1Log is a decoded bridge event delivered by a bridge.Watcher.
type L1Log struct {
	Log ethtypes.Log
}

func (L1Log) isInput() {}

// ProveResult is what an AdminProve command reports back.
type ProveResult struct {
	ProofPath string
	Err       error
}

// AdminProve requests a proving run over the currently sequenced log
// (spec.md sec. 6, admin surface).
type AdminProve struct {
	ID     uuid.UUID
	Result chan<- ProveResult
}

func (AdminProve) isInput() {}

// BatchResult is what an AdminBatchWithdrawals command reports back.
type BatchResult struct {
	Batch state.WithdrawTree
	Err   error
}

// AdminBatchWithdrawals requests closing the current withdrawal set into
// a posted batch, bypassing the Batcher's size/age gate when Force is set.
type AdminBatchWithdrawals struct {
	ID     uuid.UUID
	Force  bool
	Result chan<- BatchResult
}

func (AdminBatchWithdrawals) isInput() {}

// Loop owns the rollup's single mutable State and every collaborator that
// mutates or reads it.
type Loop struct {
	st      *state.State
	ext     execution.Extension
	ingest  *bridge.Ingestor
	batcher *withdraw.Batcher
	store   *storage.Store
	prv     prover.Prover

	programPath string
	ch          chan Input
	logger      *log.Logger
}

// New builds a Loop. store may be nil, in which case state is never
// persisted (used by tests).
func New(st *state.State, ext execution.Extension, ingest *bridge.Ingestor, batcher *withdraw.Batcher, store *storage.Store, prv prover.Prover, programPath string, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(log.Writer(), "[sequencer] ", log.LstdFlags)
	}
	return &Loop{
		st:          st,
		ext:         ext,
		ingest:      ingest,
		batcher:     batcher,
		store:       store,
		prv:         prv,
		programPath: programPath,
		ch:          make(chan Input, 256),
		logger:      logger,
	}
}

// Submit enqueues input for processing. It blocks only if the queue is
// full; callers waiting on a result should read from the Result channel
// they supplied.
func (l *Loop) Submit(input Input) {
	l.ch <- input
}

// State returns the live state for read-only access (e.g. GET /rpc
// snapshotting). Callers must not mutate it outside the loop.
func (l *Loop) State() *state.State {
	return l.st
}

// Run drains the input queue until ctx is cancelled, processing one Input
// to completion before dequeuing the next.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-l.ch:
			l.process(in)
		}
	}
}

func (l *Loop) process(in Input) {
	switch v := in.(type) {
	case SubmitTx:
		err := execution.Execute(l.st, v.Tx, l.ext)
		l.persist()
		if v.Result != nil {
			v.Result <- err
		}

	case L1Log:
		if err := l.ingest.HandleLog(v.Log); err != nil {
			l.logger.Printf("L1 log handling failed: %v", err)
		}
		l.persist()

	case AdminProve:
		path, err := l.prove(context.Background())
		if v.Result != nil {
			v.Result <- ProveResult{ProofPath: path, Err: err}
		}

	case AdminBatchWithdrawals:
		batch, err := l.batcher.Close(l.st, v.Force)
		if err == nil && l.store != nil {
			if serr := l.store.SaveBatch(len(l.st.Batches)-1, batch); serr != nil {
				l.logger.Printf("persist batch failed: %v", serr)
			}
		}
		l.persist()
		if v.Result != nil {
			v.Result <- BatchResult{Batch: batch, Err: err}
		}

	default:
		l.logger.Printf("unknown input type %T", in)
	}
}

func (l *Loop) prove(ctx context.Context) (string, error) {
	stdin := prover.BuildStdin(l.st.Sequenced, nil)
	path, err := l.prv.Prove(ctx, l.programPath, stdin)
	if err != nil {
		return "", fmt.Errorf("sequencer: prove: %w", err)
	}
	return path, nil
}

func (l *Loop) persist() {
	if l.store == nil {
		return
	}
	if err := l.store.SaveState(l.st); err != nil {
		l.logger.Printf("persist failed: %v", err)
	}
}
