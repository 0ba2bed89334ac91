package execution

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/certen/chess-rollup/pkg/chess"
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// ecdsaKeyHolder pairs a private key with its derived address so tests
// don't re-derive it at every call site.
type ecdsaKeyHolder struct {
	key  *ecdsa.PrivateKey
	addr types.Address
}

func newTestKey(t *testing.T) *ecdsaKeyHolder {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &ecdsaKeyHolder{key: priv, addr: types.AddressFromPrivateKey(priv)}
}

func newSignedTx(t *testing.T, priv *ecdsaKeyHolder, nonce types.Nonce, data state.TransactionData) state.SignedTransaction {
	t.Helper()
	tx := state.Transaction{Nonce: nonce, Data: data}
	sig, err := types.Sign(priv.key, state.EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return state.SignedTransaction{PubKey: priv.addr, Sig: sig, Tx: tx}
}

func TestExecuteBridgeTokensShortCircuits(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())

	addr := types.Address{}
	addr[19] = 9

	stx := state.SignedTransaction{
		PubKey: addr,
		Sig:    types.ZeroSignature,
		Tx:     state.Transaction{Nonce: types.NewAmount(777), Data: state.BridgeTokens(types.NewAmount(500), types.NewAmount(3))},
	}

	if err := Execute(st, stx, &ext); err != nil {
		t.Fatalf("execute bridge: %v", err)
	}
	if got := st.BalanceOf(addr); got.Cmp(types.NewAmount(500)) != 0 {
		t.Fatalf("balance = %s, want 500", got)
	}
	if got := st.NonceOf(addr); got.Cmp(types.ZeroAmount()) != 0 {
		t.Fatalf("nonce bumped by bridge deposit: %s", got)
	}
	if len(st.Sequenced) != 0 {
		t.Fatalf("bridge tx must not self-append to Sequenced, got %d entries", len(st.Sequenced))
	}
	if got := st.L1Block; got.Cmp(types.NewAmount(3)) != 0 {
		t.Fatalf("l1_block = %s, want 3", got)
	}
}

func TestExecuteBridgeTokensKeepsHighestL1Block(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	st.L1Block = types.NewAmount(10)

	addr := types.Address{}
	addr[19] = 9
	stx := state.SignedTransaction{
		PubKey: addr,
		Sig:    types.ZeroSignature,
		Tx:     state.Transaction{Data: state.BridgeTokens(types.NewAmount(1), types.NewAmount(4))},
	}
	if err := Execute(st, stx, &ext); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := st.L1Block; got.Cmp(types.NewAmount(10)) != 0 {
		t.Fatalf("l1_block regressed to %s, want 10", got)
	}
}

func TestExecuteRejectsBadNonce(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	st.Balances[priv.addr] = types.NewAmount(100)

	stx := newSignedTx(t, priv, types.NewAmount(5), state.WithdrawTokens(types.NewAmount(1)))
	err := Execute(st, stx, &ext)
	if err == nil {
		t.Fatalf("expected error for bad nonce")
	}
	kind, ok := types.KindOf(err)
	if !ok || kind != types.BadNonce {
		t.Fatalf("kind = %v, ok = %v, want BadNonce", kind, ok)
	}
	if got := st.NonceOf(priv.addr); got.Cmp(types.ZeroAmount()) != 0 {
		t.Fatalf("nonce must be unchanged on rejected tx, got %s", got)
	}
}

func TestExecuteRejectsBadSignature(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	other := newTestKey(t)
	st.Balances[priv.addr] = types.NewAmount(100)

	tx := state.Transaction{Nonce: types.ZeroAmount(), Data: state.WithdrawTokens(types.NewAmount(1))}
	sig, err := types.Sign(other.key, state.EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	stx := state.SignedTransaction{PubKey: priv.addr, Sig: sig, Tx: tx}

	err = Execute(st, stx, &ext)
	if err == nil {
		t.Fatalf("expected error for mismatched signature")
	}
	kind, ok := types.KindOf(err)
	if !ok || kind != types.BadSignature {
		t.Fatalf("kind = %v, ok = %v, want BadSignature", kind, ok)
	}
	if got := st.NonceOf(priv.addr); got.Cmp(types.ZeroAmount()) != 0 {
		t.Fatalf("nonce must be unchanged when signature check fails, got %s", got)
	}
}

func TestExecuteWithdrawInsufficientFunds(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	st.Balances[priv.addr] = types.NewAmount(10)

	stx := newSignedTx(t, priv, types.ZeroAmount(), state.WithdrawTokens(types.NewAmount(100)))
	err := Execute(st, stx, &ext)
	if err == nil {
		t.Fatalf("expected error for insufficient funds")
	}
	kind, ok := types.KindOf(err)
	if !ok || kind != types.InsufficientFunds {
		t.Fatalf("kind = %v, ok = %v, want InsufficientFunds", kind, ok)
	}

	// The nonce still bumps: step 4 runs before dispatch, so a failing
	// application move still consumes the nonce.
	if got := st.NonceOf(priv.addr); got.Cmp(types.NewAmount(1)) != 0 {
		t.Fatalf("nonce = %s, want 1 (bumped despite dispatch failure)", got)
	}
	if got := st.BalanceOf(priv.addr); got.Cmp(types.NewAmount(10)) != 0 {
		t.Fatalf("balance changed on failed withdraw: %s", got)
	}
	if len(st.Sequenced) != 0 {
		t.Fatalf("failed withdraw must not append to Sequenced")
	}
}

func TestExecuteWithdrawSucceeds(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	st.Balances[priv.addr] = types.NewAmount(100)

	stx := newSignedTx(t, priv, types.ZeroAmount(), state.WithdrawTokens(types.NewAmount(40)))
	if err := Execute(st, stx, &ext); err != nil {
		t.Fatalf("execute withdraw: %v", err)
	}
	if got := st.BalanceOf(priv.addr); got.Cmp(types.NewAmount(60)) != 0 {
		t.Fatalf("balance = %s, want 60", got)
	}
	if len(st.Withdrawals) != 1 {
		t.Fatalf("expected one pending withdrawal, got %d", len(st.Withdrawals))
	}
	if len(st.Sequenced) != 1 {
		t.Fatalf("expected withdraw appended to Sequenced")
	}
}

func TestExecuteTransferRequiresSenderAuthorization(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	victim := types.Address{}
	victim[19] = 2
	to := types.Address{}
	to[19] = 3
	st.Balances[victim] = types.NewAmount(1000)

	// priv signs a transfer claiming to move funds FROM victim.
	tx := state.Transaction{Nonce: types.ZeroAmount(), Data: state.Transfer(victim, to, types.NewAmount(500))}
	sig, err := types.Sign(priv.key, state.EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	stx := state.SignedTransaction{PubKey: priv.addr, Sig: sig, Tx: tx}

	err = Execute(st, stx, &ext)
	if err == nil {
		t.Fatalf("expected authorization failure")
	}
	kind, ok := types.KindOf(err)
	if !ok || kind != types.AuthorizationFailed {
		t.Fatalf("kind = %v, ok = %v, want AuthorizationFailed", kind, ok)
	}
	if got := st.BalanceOf(victim); got.Cmp(types.NewAmount(1000)) != 0 {
		t.Fatalf("victim balance changed: %s", got)
	}
}

func TestExecuteTransferSucceeds(t *testing.T) {
	ext := chess.Extension{}
	st := state.New(ext.Default())
	priv := newTestKey(t)
	to := types.Address{}
	to[19] = 4
	st.Balances[priv.addr] = types.NewAmount(1000)

	stx := newSignedTx(t, priv, types.ZeroAmount(), state.Transfer(priv.addr, to, types.NewAmount(250)))
	if err := Execute(st, stx, &ext); err != nil {
		t.Fatalf("execute transfer: %v", err)
	}
	if got := st.BalanceOf(priv.addr); got.Cmp(types.NewAmount(750)) != 0 {
		t.Fatalf("sender balance = %s, want 750", got)
	}
	if got := st.BalanceOf(to); got.Cmp(types.NewAmount(250)) != 0 {
		t.Fatalf("recipient balance = %s, want 250", got)
	}
}

func TestExecuteRejectsExtensionTxWithoutExtension(t *testing.T) {
	st := state.New(nil)
	priv := newTestKey(t)
	tx := state.Transaction{Nonce: types.ZeroAmount(), Data: state.Extension(nil)}
	sig, err := types.Sign(priv.key, state.EncodeTransaction(tx))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	stx := state.SignedTransaction{PubKey: priv.addr, Sig: sig, Tx: tx}

	err = Execute(st, stx, nil)
	if err == nil {
		t.Fatalf("expected error when no extension is wired")
	}
	kind, ok := types.KindOf(err)
	if !ok || kind != types.InvariantViolated {
		t.Fatalf("kind = %v, ok = %v, want InvariantViolated", kind, ok)
	}
}
