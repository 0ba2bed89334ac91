// Copyright 2025 Certen Protocol
//
// The execution engine: the sole mutator of rollup state. Pure function
// (state, signed_tx) -> state' | error, per spec.md sec. 4.2. Grounded on
// the teacher's pkg/execution/executor.go shape (a thin adapter wiring
// dependencies) but the algorithm itself is this spec's, not the
// teacher's BFT pipeline.

package execution

import (
	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// Extension is the capability-set the engine consumes to dispatch
// TxExtension transactions (spec.md sec. 4.5, sec. 9 "Generic state over
// extension"). The engine never imports a concrete application package;
// chess.Extension (or any future application) satisfies this interface.
type Extension interface {
	// Execute applies appTx, authored by pubKey, against st. It must
	// leave st unchanged on error.
	Execute(st *state.State, pubKey types.Address, appTx state.ExtensionData) error

	// Default returns a freshly-initialized application state, used when
	// constructing a new State from scratch.
	Default() state.ExtensionState
}

// Execute applies stx to st, mutating it in place, per the five-step
// algorithm in spec.md sec. 4.2:
//  1. Bridge short-circuit: credit balance, bump l1_block, skip
//     signature/nonce, do not append to sequenced (the ingestor does that).
//  2. Nonce check against nonces[pub_key].
//  3. Signature recovery over canonical_encode(tx), EIP-191 preamble.
//  4. Nonce bump (before dispatch, so a failing application move still
//     consumes it).
//  5. Dispatch by transaction kind.
//
// All arithmetic is checked; underflow surfaces as InsufficientFunds. Every
// error prior to step 4 leaves state completely unchanged; an error in
// step 5 leaves state unchanged except for the already-applied nonce bump.
func Execute(st *state.State, stx state.SignedTransaction, ext Extension) error {
	tx := stx.Tx

	// Step 1: bridge short-circuit. No signature check, no nonce check,
	// no append to sequenced -- the bridge ingestor appends it itself.
	if tx.Data.Kind == state.TxBridgeTokens {
		newBal, err := st.BalanceOf(stx.PubKey).Add(tx.Data.BridgeAmount)
		if err != nil {
			return types.Fail(types.InvariantViolated, err)
		}
		st.Balances[stx.PubKey] = newBal
		if tx.Data.BridgeBlock.Cmp(st.L1Block) > 0 {
			st.L1Block = tx.Data.BridgeBlock
		}
		return nil
	}

	// Step 2: nonce check.
	expected := st.NonceOf(stx.PubKey)
	if tx.Nonce.Cmp(expected) != 0 {
		return types.Failf(types.BadNonce, "expected nonce %s, got %s", expected, tx.Nonce)
	}

	// Step 3: signature recovery over the canonical binary encoding of tx.
	recovered, err := types.Recover(stx.Sig, state.EncodeTransaction(tx))
	if err != nil {
		return types.Fail(types.BadSignature, err)
	}
	if recovered != stx.PubKey {
		return types.Failf(types.BadSignature, "recovered %s, expected %s", recovered, stx.PubKey)
	}

	// Step 4: nonce bump, before dispatch.
	bumped, err := expected.Add(types.NewAmount(1))
	if err != nil {
		return types.Fail(types.InvariantViolated, err)
	}
	st.Nonces[stx.PubKey] = bumped

	// Step 5: dispatch.
	switch tx.Data.Kind {
	case state.TxWithdrawTokens:
		return executeWithdraw(st, stx)
	case state.TxTransfer:
		return executeTransfer(st, stx)
	case state.TxExtension:
		return executeExtension(st, stx, ext)
	case state.TxBridgeTokens:
		return types.Fail(types.InvariantViolated, ErrBridgeDispatched)
	default:
		return types.Failf(types.DecodingError, "unknown transaction kind %d", tx.Data.Kind)
	}
}

func executeWithdraw(st *state.State, stx state.SignedTransaction) error {
	amount := stx.Tx.Data.WithdrawAmount
	bal := st.BalanceOf(stx.PubKey)
	newBal, err := bal.Sub(amount)
	if err != nil {
		return types.Fail(types.InsufficientFunds, err)
	}
	st.Balances[stx.PubKey] = newBal
	st.Withdrawals = append(st.Withdrawals, state.PendingWithdrawal{
		Address: stx.PubKey,
		Amount:  amount,
	})
	st.Sequenced = append(st.Sequenced, stx)
	return nil
}

func executeTransfer(st *state.State, stx state.SignedTransaction) error {
	from := stx.Tx.Data.TransferFrom
	to := stx.Tx.Data.TransferTo
	amount := stx.Tx.Data.TransferAmount

	if from != stx.PubKey {
		return types.Failf(types.AuthorizationFailed, "transfer from %s signed by %s", from, stx.PubKey)
	}

	fromBal := st.BalanceOf(from)
	newFromBal, err := fromBal.Sub(amount)
	if err != nil {
		return types.Fail(types.InsufficientFunds, err)
	}
	newToBal, err := st.BalanceOf(to).Add(amount)
	if err != nil {
		return types.Fail(types.InvariantViolated, err)
	}

	st.Balances[from] = newFromBal
	st.Balances[to] = newToBal
	st.Sequenced = append(st.Sequenced, stx)
	return nil
}

func executeExtension(st *state.State, stx state.SignedTransaction, ext Extension) error {
	if ext == nil {
		return types.Fail(types.InvariantViolated, ErrNilExtension)
	}
	if err := ext.Execute(st, stx.PubKey, stx.Tx.Data.ExtensionTx); err != nil {
		return err
	}
	st.Sequenced = append(st.Sequenced, stx)
	return nil
}
