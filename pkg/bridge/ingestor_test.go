package bridge

import (
	"testing"

	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

func TestHandleDepositCreditsBalanceAndSequences(t *testing.T) {
	st := state.New(nil)
	in := NewIngestor(st, nil)

	sender := types.Address{}
	sender[19] = 9
	if err := in.HandleDeposit(DepositEvent{Sender: sender, Amount: types.NewAmount(500), BlockNumber: 10}); err != nil {
		t.Fatalf("handle deposit: %v", err)
	}
	if got := st.BalanceOf(sender); got.Cmp(types.NewAmount(500)) != 0 {
		t.Fatalf("balance = %s, want 500", got)
	}
	if len(st.Sequenced) != 1 {
		t.Fatalf("expected 1 sequenced tx, got %d", len(st.Sequenced))
	}
	if st.L1Block.Cmp(types.NewAmount(10)) != 0 {
		t.Fatalf("l1_block = %s, want 10", st.L1Block)
	}
}

// TestHandleDepositIsIdempotentUnderCursor exercises the filtering decision
// itself: a cursor advanced past a delivered event must reject a redelivery
// of that same event before HandleDeposit is ever called. This is the
// in-process half of the idempotency guarantee; the other half -- that the
// cursor value itself survives a process restart rather than resetting to
// zero -- is covered by pkg/storage's TestCursorSurvivesWatcherRestart,
// since exercising that requires a *storage.Store and pkg/storage imports
// this package (a test here cannot import pkg/storage without a cycle).
func TestHandleDepositIsIdempotentUnderCursor(t *testing.T) {
	st := state.New(nil)
	in := NewIngestor(st, nil)
	sender := types.Address{}
	sender[19] = 1

	cursor := Cursor{}
	ev := DepositEvent{Sender: sender, Amount: types.NewAmount(100), BlockNumber: 5, LogIndex: 0}
	if !cursor.After(ev.BlockNumber, ev.LogIndex) {
		t.Fatalf("expected fresh cursor to accept first event")
	}
	if err := in.HandleDeposit(ev); err != nil {
		t.Fatalf("handle deposit: %v", err)
	}
	cursor = cursor.Advance(ev.BlockNumber, ev.LogIndex)
	if cursor.After(ev.BlockNumber, ev.LogIndex) {
		t.Fatalf("expected cursor to reject a duplicate of the same event")
	}
}

func TestHandleBatchPostedMarksVerified(t *testing.T) {
	st := state.New(nil)
	root := types.Keccak256([]byte("root"))
	st.Batches = append(st.Batches, state.WithdrawTree{Root: root, Verified: false})

	in := NewIngestor(st, nil)
	if err := in.HandleBatchPosted(BatchPostedEvent{Index: 0, Root: root}); err != nil {
		t.Fatalf("handle batch posted: %v", err)
	}
	if !st.Batches[0].Verified {
		t.Fatalf("expected batch to be marked verified")
	}
}

func TestHandleBatchPostedRejectsRootMismatch(t *testing.T) {
	st := state.New(nil)
	st.Batches = append(st.Batches, state.WithdrawTree{Root: types.Keccak256([]byte("local")), Verified: false})

	in := NewIngestor(st, nil)
	err := in.HandleBatchPosted(BatchPostedEvent{Index: 0, Root: types.Keccak256([]byte("different"))})
	if err == nil {
		t.Fatalf("expected root mismatch error")
	}
	if st.Batches[0].Verified {
		t.Fatalf("state must not mutate on root mismatch")
	}
}

func TestHandleBatchPostedRejectsUnknownIndex(t *testing.T) {
	st := state.New(nil)
	in := NewIngestor(st, nil)
	if err := in.HandleBatchPosted(BatchPostedEvent{Index: 3, Root: types.ZeroHash}); err == nil {
		t.Fatalf("expected unknown batch index error")
	}
}
