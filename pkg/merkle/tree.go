// Copyright 2025 Certen Protocol
//
// The withdrawal-batch Merkle tree: aggregate pending withdrawals by
// recipient, build a sorted-pair tree over ABI-packed leaves, and emit
// per-recipient inclusion proofs (spec.md sec. 4.4). Structurally grounded
// on the teacher's pkg/merkle/tree.go (level-by-level tree, proof walked
// bottom-up by sibling index), but the leaf/node hashing and padding rule
// follow this rollup's L1 verifier contract rather than the teacher's
// plain SHA256(left||right) scheme: Keccak256 leaves over abi-packed
// (index, account, amount), and combined_hash's all-zero-operand
// short-circuit (original_source/elf_program/src/rollup_lib.rs) instead of
// duplicate-the-last-node padding.

package merkle

import (
	"errors"
	"sort"

	"github.com/certen/chess-rollup/pkg/state"
	"github.com/certen/chess-rollup/pkg/types"
)

// ErrNoPendingWithdrawals is returned when there is nothing to batch; per
// spec.md sec. 4.4 an empty pending list never produces a batch.
var ErrNoPendingWithdrawals = errors.New("merkle: no pending withdrawals to batch")

// combinedHash implements spec.md sec. 4.4 step 5: if either side is the
// all-zero hash, return the other untouched (this is how an odd leaf
// count's zero-hash padding propagates a lone node up unchanged).
// Otherwise hash the sorted pair, so sibling order never matters for
// verification.
func combinedHash(l, r types.Hash) types.Hash {
	if l == types.ZeroHash {
		return r
	}
	if r == types.ZeroHash {
		return l
	}
	if l.Less(r) {
		return types.Keccak256(l.Bytes(), r.Bytes())
	}
	return types.Keccak256(r.Bytes(), l.Bytes())
}

// leafHash computes Keccak256(abi_encode_packed(index, account, amount)):
// a 32-byte big-endian index, the raw 20-byte address, and a 32-byte
// big-endian amount, concatenated with no padding between fields.
func leafHash(index uint64, addr types.Address, amount types.Amount) types.Hash {
	idx := types.NewAmount(int64(index)).Bytes32()
	amt := amount.Bytes32()
	packed := make([]byte, 0, 32+types.AddressLength+32)
	packed = append(packed, idx[:]...)
	packed = append(packed, addr.Bytes()...)
	packed = append(packed, amt[:]...)
	return types.Keccak256(packed)
}

// BuildWithdrawTree runs the full sec. 4.4 algorithm over pending,
// returning the closed batch (with Verified: false) ready to append to
// state.batches. It never mutates pending; callers clear state.withdrawals
// themselves once the batch is committed.
func BuildWithdrawTree(pending []state.PendingWithdrawal) (*state.WithdrawTree, error) {
	if len(pending) == 0 {
		return nil, ErrNoPendingWithdrawals
	}

	// Step 1: aggregate by address.
	totals := make(map[types.Address]types.Amount)
	var order []types.Address
	for _, w := range pending {
		cur, seen := totals[w.Address]
		if !seen {
			order = append(order, w.Address)
			cur = types.ZeroAmount()
		}
		sum, err := cur.Add(w.Amount)
		if err != nil {
			return nil, err
		}
		totals[w.Address] = sum
	}

	var addrs []types.Address
	for _, a := range order {
		if !totals[a].IsZero() {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoPendingWithdrawals
	}

	// Step 2: sort ascending, lexicographic on the raw 20-byte form.
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	// Step 3: leaves.
	leaves := make([]types.Hash, len(addrs))
	tokenTotal := types.ZeroAmount()
	for i, a := range addrs {
		leaves[i] = leafHash(uint64(i), a, totals[a])
		var err error
		tokenTotal, err = tokenTotal.Add(totals[a])
		if err != nil {
			return nil, err
		}
	}

	// Step 4: tree build, one level at a time. Each level stores only its
	// real (unpadded) nodes; a synthetic zero-hash pad is used transiently
	// to pair an odd trailing node and is never itself stored, which is
	// exactly what lets buildProof below treat "sibling index out of
	// range" as "sibling was the zero hash".
	levels := [][]types.Hash{leaves}
	current := leaves
	for len(current) > 1 {
		next := make([]types.Hash, (len(current)+1)/2)
		for k := range next {
			left := current[2*k]
			right := types.ZeroHash
			if 2*k+1 < len(current) {
				right = current[2*k+1]
			}
			next[k] = combinedHash(left, right)
		}
		levels = append(levels, next)
		current = next
	}
	root := current[0]

	// Steps 6-7: proofs and publish.
	claims := make(map[types.Address]state.Claim, len(addrs))
	for i, a := range addrs {
		claims[a] = state.Claim{
			Index:  uint64(i),
			Amount: totals[a],
			Proof:  buildProof(levels, i),
		}
	}

	return &state.WithdrawTree{
		Root:       root,
		Claims:     claims,
		TokenTotal: tokenTotal,
		NumDrops:   uint64(len(addrs)),
		Verified:   false,
	}, nil
}

// buildProof walks layers bottom-up; at each layer it appends the sibling
// at index^1, substituting the zero hash when that sibling doesn't exist
// (the odd-trailing-node case), then advances to the parent index.
func buildProof(levels [][]types.Hash, leafIndex int) []types.Hash {
	proof := make([]types.Hash, 0, len(levels)-1)
	idx := leafIndex
	for layer := 0; layer < len(levels)-1; layer++ {
		nodes := levels[layer]
		sibling := idx ^ 1
		if sibling < len(nodes) {
			proof = append(proof, nodes[sibling])
		} else {
			proof = append(proof, types.ZeroHash)
		}
		idx /= 2
	}
	return proof
}

// VerifyProof independently recomputes the root from leaf upward, for
// callers (tests, or an L1-side re-check) that want to confirm a Claim
// without access to the full tree.
func VerifyProof(leaf types.Hash, index uint64, proof []types.Hash, root types.Hash) bool {
	current := leaf
	idx := index
	for _, sibling := range proof {
		if idx%2 == 0 {
			current = combinedHash(current, sibling)
		} else {
			current = combinedHash(sibling, current)
		}
		idx /= 2
	}
	return current == root
}
