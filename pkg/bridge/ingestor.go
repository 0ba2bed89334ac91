// Copyright 2025 Certen Protocol
//
// Ingestor translates decoded L1 logs into rollup state transitions
// (spec.md sec. 4.3). It is the one caller that appends bridge
// transactions to state.Sequenced itself -- execution.Execute's bridge
// short-circuit deliberately does not, since only the ingestor has the
// ordering context to do so correctly.

package bridge

import (
	"errors"
	"fmt"
	"log"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/certen/chess-rollup/pkg/execution"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// ErrBatchRootMismatch is returned by HandleBatchPosted when the L1 root
// does not match the rollup's own record for that batch index -- a
// critical inconsistency spec.md sec. 4.3 says must halt, not silently
// correct.
var ErrBatchRootMismatch = errors.New("bridge: L1 batch root does not match local state")

// ErrUnknownBatchIndex is returned when BatchPosted names an index the
// rollup has never produced.
var ErrUnknownBatchIndex = errors.New("bridge: BatchPosted references unknown batch index")

// Ingestor applies decoded L1 events to a *state.State.
type Ingestor struct {
	st     *state.State
	logger *log.Logger
}

// NewIngestor builds an Ingestor writing into st.
func NewIngestor(st *state.State, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[bridge] ", log.LstdFlags)
	}
	return &Ingestor{st: st, logger: logger}
}

// HandleLog dispatches a raw log by its topic-0 signature hash. It is the
// function typically wired as a Watcher's sink.
func (in *Ingestor) HandleLog(l ethtypes.Log) error {
	if len(l.Topics) == 0 {
		return fmt.Errorf("bridge: log has no topics")
	}
	switch l.Topics[0] {
	case TopicDeposit:
		ev, err := DecodeDeposit(l)
		if err != nil {
			return err
		}
		return in.HandleDeposit(ev)
	case TopicBatchPosted:
		ev, err := DecodeBatchPosted(l)
		if err != nil {
			return err
		}
		return in.HandleBatchPosted(ev)
	default:
		return nil // event we don't subscribe to; FilterQuery should prevent this
	}
}

// HandleDeposit constructs the synthetic BridgeTokens transaction
// described in spec.md sec. 4.3, applies it via the execution engine (whose
// bridge short-circuit skips signature and nonce checks), and appends it to
// state.Sequenced itself.
func (in *Ingestor) HandleDeposit(ev DepositEvent) error {
	stx := state.SignedTransaction{
		PubKey: ev.Sender,
		Sig:    types.ZeroSignature,
		Tx: state.Transaction{
			Nonce: types.ZeroAmount(),
			Data:  state.BridgeTokens(ev.Amount, types.NewAmount(int64(ev.BlockNumber))),
		},
	}
	if err := execution.Execute(in.st, stx, nil); err != nil {
		return fmt.Errorf("bridge: applying deposit from %s: %w", ev.Sender, err)
	}
	in.st.Sequenced = append(in.st.Sequenced, stx)
	return nil
}

// HandleBatchPosted marks batches[index].verified = true once the L1 root
// matches. A mismatch is refused outright (spec.md sec. 4.3): it logs and
// returns an error rather than mutating state, since this indicates either
// a bug in batch construction or a compromised L1 submission.
func (in *Ingestor) HandleBatchPosted(ev BatchPostedEvent) error {
	if ev.Index >= uint64(len(in.st.Batches)) {
		return fmt.Errorf("%w: index %d, have %d batches", ErrUnknownBatchIndex, ev.Index, len(in.st.Batches))
	}
	batch := in.st.Batches[ev.Index]
	if batch.Root != ev.Root {
		in.logger.Printf("CRITICAL: batch %d root mismatch: local=%s l1=%s", ev.Index, batch.Root, ev.Root)
		return fmt.Errorf("%w: index %d local=%s l1=%s", ErrBatchRootMismatch, ev.Index, batch.Root, ev.Root)
	}
	batch.Verified = true
	in.st.Batches[ev.Index] = batch
	return nil
}
