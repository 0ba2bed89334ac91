// Copyright 2025 Certen Protocol
//
// State is the rollup's complete ledger: balances, nonces, the sequenced
// transaction log, pending and posted withdrawals, the last-seen L1 block,
// and an opaque application-extension slot (spec.md sec. 3).

package state

import (
	"encoding/json"

	"github.com/certen/chess-rollup/pkg/codec"
	"github.com/certen/chess-rollup/pkg/types"
)

// ExtensionState is the capability-set marker for application state. The
// concrete type (e.g. chess.State) is opaque to this package; it only
// needs to be JSON-serializable for snapshotting.
type ExtensionState interface{}

// PendingWithdrawal is one (address, amount) entry awaiting inclusion in
// the next withdrawal batch.
type PendingWithdrawal struct {
	Address types.Address `json:"address"`
	Amount  types.Amount  `json:"amount"`
}

// Claim is one recipient's inclusion proof within a posted WithdrawTree.
type Claim struct {
	Index  uint64       `json:"index"`
	Amount types.Amount `json:"amount"`
	Proof  []types.Hash `json:"proof"`
}

// WithdrawTree is a closed withdrawal batch: its Merkle root, the
// per-recipient claims needed to prove inclusion, and whether L1 has
// confirmed the root (spec.md sec. 3).
type WithdrawTree struct {
	Root       types.Hash               `json:"root"`
	Claims     map[types.Address]Claim  `json:"claims"`
	TokenTotal types.Amount             `json:"token_total"`
	NumDrops   uint64                   `json:"num_drops"`
	Verified   bool                     `json:"verified"`
}

// State is the complete rollup ledger. It is written only from the
// sequencer loop: by execution.Execute, by the bridge Ingestor (which
// appends bridge txs to Sequenced and marks batches Verified) and by the
// withdrawal Batcher (which moves Withdrawals into Batches).
type State struct {
	Sequenced   []SignedTransaction        `json:"sequenced"`
	Balances    map[types.Address]types.Amount `json:"balances"`
	Nonces      map[types.Address]types.Nonce  `json:"nonces"`
	Withdrawals []PendingWithdrawal        `json:"withdrawals"`
	Batches     []WithdrawTree             `json:"batches"`
	L1Block     types.Amount               `json:"l1_block"`
	App         ExtensionState             `json:"app_state"`
}

// New returns an empty State with appState as the freshly-initialized
// application extension state (execution.Extension.Default()).
func New(appState ExtensionState) *State {
	return &State{
		Sequenced:   []SignedTransaction{},
		Balances:    make(map[types.Address]types.Amount),
		Nonces:      make(map[types.Address]types.Nonce),
		Withdrawals: []PendingWithdrawal{},
		Batches:     []WithdrawTree{},
		L1Block:     types.ZeroAmount(),
		App:         appState,
	}
}

// BalanceOf returns balances[a], or zero if a has never been credited.
func (s *State) BalanceOf(a types.Address) types.Amount {
	if v, ok := s.Balances[a]; ok {
		return v
	}
	return types.ZeroAmount()
}

// NonceOf returns nonces[a], or zero if a has never transacted.
func (s *State) NonceOf(a types.Address) types.Nonce {
	if v, ok := s.Nonces[a]; ok {
		return v
	}
	return types.ZeroAmount()
}

// ToCanonicalJSON marshals the full state snapshot using the canonical
// JSON profile (sorted keys), for GET /rpc and for persisted snapshots.
// It is advisory only — never signature-covered (spec.md sec. 4.1, 6).
func (s *State) ToCanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return codec.CanonicalizeJSON(raw)
}
