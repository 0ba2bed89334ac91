// Copyright 2025 Certen Protocol
//
// Transaction data model: SignedTransaction / Transaction / TransactionData
// per spec.md sec. 3. TransactionData is a tagged union; canonical binary
// encoding follows pkg/codec, JSON encoding uses an explicit "type"
// discriminant at the RPC boundary only.

package state

import (
	"encoding/json"
	"fmt"

	"github.com/certen/chess-rollup/pkg/codec"
	"github.com/certen/chess-rollup/pkg/types"
)

// TxKind is the tagged-union discriminant for TransactionData. Values are
// stable and defined by declaration order (spec.md sec. 4.1).
type TxKind byte

const (
	TxBridgeTokens TxKind = iota
	TxWithdrawTokens
	TxTransfer
	TxExtension
)

func (k TxKind) String() string {
	switch k {
	case TxBridgeTokens:
		return "bridge_tokens"
	case TxWithdrawTokens:
		return "withdraw_tokens"
	case TxTransfer:
		return "transfer"
	case TxExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// ExtensionData is the capability every application-extension transaction
// type must satisfy so it can be folded into the canonical encoding the
// engine signs over. The execution engine never imports a concrete
// extension type; it only ever sees this interface (spec.md sec. 9,
// "Generic state over extension").
type ExtensionData interface {
	// ExtensionEncode appends this payload's canonical encoding to e. It
	// must NOT write its own tag byte; TransactionData.Encode already did.
	ExtensionEncode(e *codec.Encoder)
}

// ExtensionJSONCodec lets a concrete extension package plug its own
// marshal/unmarshal into the generic TransactionData JSON envelope, the
// same function-table style the execution engine uses for Execute/Default
// (see execution.Extension). Registered once at process start by the
// application package (e.g. chess.init via RegisterExtensionCodec).
type ExtensionJSONCodec interface {
	MarshalExtension(ExtensionData) (json.RawMessage, error)
	UnmarshalExtension(json.RawMessage) (ExtensionData, error)
}

var extensionCodec ExtensionJSONCodec

// RegisterExtensionCodec installs the application's JSON codec for
// extension transactions. Must be called before any TransactionData JSON
// (de)serialization involving TxExtension.
func RegisterExtensionCodec(c ExtensionJSONCodec) {
	extensionCodec = c
}

// TransactionData is the tagged union of the four transaction kinds
// spec.md sec. 3 defines. Only the fields relevant to Kind are populated.
type TransactionData struct {
	Kind TxKind

	// BridgeTokens
	BridgeAmount types.Amount
	BridgeBlock  types.Amount

	// WithdrawTokens
	WithdrawAmount types.Amount

	// Transfer
	TransferFrom   types.Address
	TransferTo     types.Address
	TransferAmount types.Amount

	// Extension
	ExtensionTx ExtensionData
}

// BridgeTokens builds a TransactionData of that variant.
func BridgeTokens(amount, block types.Amount) TransactionData {
	return TransactionData{Kind: TxBridgeTokens, BridgeAmount: amount, BridgeBlock: block}
}

// WithdrawTokens builds a TransactionData of that variant.
func WithdrawTokens(amount types.Amount) TransactionData {
	return TransactionData{Kind: TxWithdrawTokens, WithdrawAmount: amount}
}

// Transfer builds a TransactionData of that variant.
func Transfer(from, to types.Address, amount types.Amount) TransactionData {
	return TransactionData{Kind: TxTransfer, TransferFrom: from, TransferTo: to, TransferAmount: amount}
}

// Extension builds a TransactionData of that variant.
func Extension(tx ExtensionData) TransactionData {
	return TransactionData{Kind: TxExtension, ExtensionTx: tx}
}

// Encode appends the canonical binary encoding of d to e: the tag byte
// followed by the variant's payload, in struct-field declaration order.
func (d TransactionData) Encode(e *codec.Encoder) {
	e.PutTag(byte(d.Kind))
	switch d.Kind {
	case TxBridgeTokens:
		e.PutUint256(d.BridgeAmount)
		e.PutUint256(d.BridgeBlock)
	case TxWithdrawTokens:
		e.PutUint256(d.WithdrawAmount)
	case TxTransfer:
		e.PutAddress(d.TransferFrom)
		e.PutAddress(d.TransferTo)
		e.PutUint256(d.TransferAmount)
	case TxExtension:
		if d.ExtensionTx != nil {
			d.ExtensionTx.ExtensionEncode(e)
		}
	}
}

type txDataJSON struct {
	Type   string          `json:"type"`
	Amount *types.Amount   `json:"amount,omitempty"`
	Block  *types.Amount   `json:"block,omitempty"`
	From   *types.Address  `json:"from,omitempty"`
	To     *types.Address  `json:"to,omitempty"`
	Ext    json.RawMessage `json:"ext,omitempty"`
}

func (d TransactionData) MarshalJSON() ([]byte, error) {
	out := txDataJSON{Type: d.Kind.String()}
	switch d.Kind {
	case TxBridgeTokens:
		out.Amount = &d.BridgeAmount
		out.Block = &d.BridgeBlock
	case TxWithdrawTokens:
		out.Amount = &d.WithdrawAmount
	case TxTransfer:
		out.From = &d.TransferFrom
		out.To = &d.TransferTo
		out.Amount = &d.TransferAmount
	case TxExtension:
		if extensionCodec == nil {
			return nil, fmt.Errorf("state: no extension JSON codec registered")
		}
		raw, err := extensionCodec.MarshalExtension(d.ExtensionTx)
		if err != nil {
			return nil, err
		}
		out.Ext = raw
	}
	return json.Marshal(out)
}

func (d *TransactionData) UnmarshalJSON(data []byte) error {
	var in txDataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case TxBridgeTokens.String():
		if in.Amount == nil || in.Block == nil {
			return fmt.Errorf("state: bridge_tokens requires amount and block")
		}
		*d = BridgeTokens(*in.Amount, *in.Block)
	case TxWithdrawTokens.String():
		if in.Amount == nil {
			return fmt.Errorf("state: withdraw_tokens requires amount")
		}
		*d = WithdrawTokens(*in.Amount)
	case TxTransfer.String():
		if in.From == nil || in.To == nil || in.Amount == nil {
			return fmt.Errorf("state: transfer requires from, to, amount")
		}
		*d = Transfer(*in.From, *in.To, *in.Amount)
	case TxExtension.String():
		if extensionCodec == nil {
			return fmt.Errorf("state: no extension JSON codec registered")
		}
		ext, err := extensionCodec.UnmarshalExtension(in.Ext)
		if err != nil {
			return err
		}
		*d = Extension(ext)
	default:
		return fmt.Errorf("state: unknown transaction type %q", in.Type)
	}
	return nil
}

// Transaction is the signed payload: application data plus a replay-
// protecting nonce (spec.md sec. 3).
type Transaction struct {
	Data  TransactionData `json:"data"`
	Nonce types.Nonce     `json:"nonce"`
}

// Encode appends the canonical binary encoding of t: data then nonce, in
// struct-field declaration order.
func (t Transaction) Encode(e *codec.Encoder) {
	t.Data.Encode(e)
	e.PutUint256(t.Nonce)
}

// EncodeTransaction returns the canonical binary encoding that is signed
// and recovered over. It never includes pub_key or sig.
func EncodeTransaction(t Transaction) []byte {
	e := codec.NewEncoder()
	t.Encode(e)
	return e.Bytes()
}

// SignedTransaction is a Transaction plus its signer and signature
// (spec.md sec. 3).
type SignedTransaction struct {
	PubKey types.Address   `json:"pub_key"`
	Sig    types.Signature `json:"sig"`
	Tx     Transaction     `json:"tx"`
}
