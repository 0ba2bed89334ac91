// Copyright 2025 Certen Protocol
//
// L1 event decoding for the two log kinds the bridge ingestor consumes
// (spec.md sec. 4.3): Deposit(sender, amount) and BatchPosted(index, root).
// Both are non-indexed event parameters, ABI-encoded as 32-byte words in
// Log.Data, the same layout the teacher's pkg/anchor/event_watcher.go
// parses for its own contract events -- grounded there, but computing the
// topic hash with crypto.Keccak256Hash rather than sha256 (the teacher's
// computeEventSignatureHash hashes the signature string with the wrong
// algorithm; its own comment even admits as much. See DESIGN.md).

package bridge

import (
	"fmt"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	rtypes "github.com/certen/chess-rollup/pkg/types"
)

// word32 is the fixed width of one ABI-encoded, non-indexed event field.
const word32 = 32

// TopicDeposit and TopicBatchPosted are the Keccak256 event-signature
// hashes used as Log.Topics[0] (and as the FilterQuery topic filter).
var (
	TopicDeposit      = crypto.Keccak256Hash([]byte("Deposit(address,uint256)"))
	TopicBatchPosted  = crypto.Keccak256Hash([]byte("BatchPosted(uint256,bytes32)"))
)

// DepositEvent is the decoded form of an L1 Deposit log.
type DepositEvent struct {
	Sender      rtypes.Address
	Amount      rtypes.Amount
	BlockNumber uint64
	LogIndex    uint
}

// BatchPostedEvent is the decoded form of an L1 BatchPosted log.
type BatchPostedEvent struct {
	Index       uint64
	Root        rtypes.Hash
	BlockNumber uint64
	LogIndex    uint
}

// errUnexpectedDataLength builds the error returned when a log's Data field is not the
// width the event's ABI signature requires.
func errUnexpectedDataLength(event string, want, got int) error {
	return fmt.Errorf("bridge: %s log data must be %d bytes, got %d", event, want, got)
}

// DecodeDeposit parses log as a Deposit(address,uint256) event.
func DecodeDeposit(log ethtypes.Log) (DepositEvent, error) {
	if len(log.Data) != 2*word32 {
		return DepositEvent{}, errUnexpectedDataLength("Deposit", 2*word32, len(log.Data))
	}
	var sender rtypes.Address
	// A Solidity address occupies the low 20 bytes of its 32-byte word.
	copy(sender[:], log.Data[word32-rtypes.AddressLength:word32])
	var amountBytes [32]byte
	copy(amountBytes[:], log.Data[word32:2*word32])
	return DepositEvent{
		Sender:      sender,
		Amount:      rtypes.AmountFromBytes32(amountBytes),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}

// DecodeBatchPosted parses log as a BatchPosted(uint256,bytes32) event.
func DecodeBatchPosted(log ethtypes.Log) (BatchPostedEvent, error) {
	if len(log.Data) != 2*word32 {
		return BatchPostedEvent{}, errUnexpectedDataLength("BatchPosted", 2*word32, len(log.Data))
	}
	var indexBytes [32]byte
	copy(indexBytes[:], log.Data[0:word32])
	var rootBytes [32]byte
	copy(rootBytes[:], log.Data[word32:2*word32])
	return BatchPostedEvent{
		Index:       rtypes.AmountFromBytes32(indexBytes).Big().Uint64(),
		Root:        rtypes.Hash(rootBytes),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}
