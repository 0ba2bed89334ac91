package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/chess-rollup/pkg/bridge"
	"github.com/certen/chess-rollup/pkg/chess"
	"github.com/certen/chess-rollup/pkg/execution"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

func TestSaveStateThenReplayRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ext := chess.Extension{}
	st := state.New(ext.Default())

	alice := types.Address{}
	alice[19] = 1
	bob := types.Address{}
	bob[19] = 2

	// Bridge deposits are appended to Sequenced the way the bridge
	// Ingestor does, so LoadAndReplay can rebuild the balances they fund.
	deposit := state.SignedTransaction{
		PubKey: alice,
		Sig:    types.ZeroSignature,
		Tx:     state.Transaction{Nonce: types.ZeroAmount(), Data: state.BridgeTokens(types.NewAmount(1000), types.NewAmount(1))},
	}
	if err := execution.Execute(st, deposit, &ext); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	st.Sequenced = append(st.Sequenced, deposit)

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	signer := types.AddressFromPrivateKey(priv)
	signerDeposit := state.SignedTransaction{
		PubKey: signer,
		Sig:    types.ZeroSignature,
		Tx:     state.Transaction{Nonce: types.ZeroAmount(), Data: state.BridgeTokens(types.NewAmount(500), types.NewAmount(2))},
	}
	if err := execution.Execute(st, signerDeposit, &ext); err != nil {
		t.Fatalf("seed signer deposit: %v", err)
	}
	st.Sequenced = append(st.Sequenced, signerDeposit)

	tx := state.Transaction{Nonce: st.NonceOf(signer), Data: state.Transfer(signer, bob, types.NewAmount(200))}
	sig, err := types.Sign(priv, state.EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	transfer := state.SignedTransaction{PubKey: signer, Sig: sig, Tx: tx}
	if err := execution.Execute(st, transfer, &ext); err != nil {
		t.Fatalf("seed transfer: %v", err)
	}

	if err := s.SaveState(st); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if !s.HasState() {
		t.Fatalf("expected HasState true after save")
	}

	replayed, err := s.LoadAndReplay(&ext)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := replayed.BalanceOf(bob); got.Cmp(types.NewAmount(200)) != 0 {
		t.Fatalf("bob balance = %s, want 200", got)
	}
	if got := replayed.BalanceOf(signer); got.Cmp(types.NewAmount(300)) != 0 {
		t.Fatalf("signer balance = %s, want 300", got)
	}
	if len(replayed.Sequenced) != len(st.Sequenced) {
		t.Fatalf("sequenced length = %d, want %d", len(replayed.Sequenced), len(st.Sequenced))
	}
}

func TestSaveAndLoadBatch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	batch := state.WithdrawTree{
		Root:       types.Keccak256([]byte("root")),
		Claims:     map[types.Address]state.Claim{},
		TokenTotal: types.NewAmount(42),
		NumDrops:   1,
	}
	if err := s.SaveBatch(0, batch); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	loaded, err := s.LoadBatch(0)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if loaded.Root != batch.Root || loaded.TokenTotal.Cmp(batch.TokenTotal) != 0 {
		t.Fatalf("loaded batch mismatch: %+v", loaded)
	}
}

// TestCursorSurvivesWatcherRestart simulates the sequence a real process
// restart drives: a watcher applies a log, persists the advanced cursor,
// the process exits, and a new Store opened on the same root directory
// reloads the cursor. The reloaded cursor must reject a redelivery of the
// same log, which is the property that keeps a bridge restart from
// double-crediting a deposit (spec.md sec. 4.3, sec. 8's idempotent-
// ingestion law).
func TestCursorSurvivesWatcherRestart(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, ok, err := first.LoadCursor(); err != nil {
		t.Fatalf("load cursor before any save: %v", err)
	} else if ok {
		t.Fatalf("expected no persisted cursor on a fresh store")
	}

	cursor := bridge.Cursor{}
	appliedBlock, appliedIndex := uint64(10), uint(2)
	if !cursor.After(appliedBlock, appliedIndex) {
		t.Fatalf("expected fresh cursor to accept the first log")
	}
	cursor = cursor.Advance(appliedBlock, appliedIndex)
	if err := first.SaveCursor(cursor); err != nil {
		t.Fatalf("save cursor: %v", err)
	}

	// Simulate a process restart: a new Store is opened against the same
	// root directory, the way cmd/rollup/main.go does on every boot before
	// it builds the Watcher from the reloaded cursor.
	restarted, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reloaded, ok, err := restarted.LoadCursor()
	if err != nil {
		t.Fatalf("load cursor after restart: %v", err)
	}
	if !ok {
		t.Fatalf("expected a persisted cursor after restart")
	}
	if reloaded != cursor {
		t.Fatalf("reloaded cursor = %+v, want %+v", reloaded, cursor)
	}

	if reloaded.After(appliedBlock, appliedIndex) {
		t.Fatalf("restarted watcher must not redeliver a log the cursor already covers")
	}

	nextBlock, nextIndex := appliedBlock, appliedIndex+1
	if !reloaded.After(nextBlock, nextIndex) {
		t.Fatalf("restarted watcher must still accept a log past the persisted watermark")
	}
}
