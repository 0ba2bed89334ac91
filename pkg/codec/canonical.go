// Copyright 2025 Certen Protocol
//
// Package codec implements the deterministic canonical encoding the rollup
// signs and proves over (see spec.md sec. 4.1). Two profiles live here:
// a binary form (Encoder) used for anything signature- or hash-covered,
// and a canonical-JSON profile (CanonicalJSON) used only at the RPC and
// storage boundary. The binary form is authoritative; nothing
// signature-covered may round-trip through JSON.

package codec

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/certen/chess-rollup/pkg/types"
)

// Encoder accumulates the canonical byte-exact representation of a value.
// Every Put method appends a self-delimiting field so concatenation is
// unambiguous without a surrounding length prefix.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// PutTag appends a single-byte tagged-union discriminant. Variant indices
// are stable and defined by declaration order (spec.md sec. 4.1).
func (e *Encoder) PutTag(variant byte) {
	e.buf.WriteByte(variant)
}

// PutUint256 appends a's big-endian fixed 32-byte encoding.
func (e *Encoder) PutUint256(a types.Amount) {
	b := a.Bytes32()
	e.buf.Write(b[:])
}

// PutUint64 appends v as big-endian fixed 8 bytes, for lengths/counts that
// never need the full 256-bit width.
func (e *Encoder) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// PutAddress appends the raw 20-byte address.
func (e *Encoder) PutAddress(a types.Address) {
	e.buf.Write(a.Bytes())
}

// PutHash appends the raw 32-byte hash.
func (e *Encoder) PutHash(h types.Hash) {
	e.buf.Write(h.Bytes())
}

// PutBytes appends a uint32 big-endian length prefix followed by b, so
// variable-length fields are self-delimiting.
func (e *Encoder) PutBytes(b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	e.buf.Write(lenBuf[:])
	e.buf.Write(b)
}

// PutString appends s as length-prefixed UTF-8 bytes.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// Bytes returns the accumulated canonical encoding.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// KV is one key/value pair of a canonically-encoded map.
type KV struct {
	Key   []byte
	Value []byte
}

// PutSortedMap appends a length-prefixed sequence of (key, value) pairs,
// sorted ascending by the key's own canonical encoding, per spec.md's "maps
// must be encoded as sorted sequences of (key, value) with keys compared
// lexicographically on their canonical encodings". No signature-covered
// structure in this rollup currently carries a literal map field (balances
// and nonces are encoded as part of the persisted snapshot, not signed),
// but the encoder exposes this so any future Extension payload that adds
// one gets a deterministic encoding for free.
func (e *Encoder) PutSortedMap(pairs []KV) {
	sorted := make([]KV, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})
	e.PutUint64(uint64(len(sorted)))
	for _, kv := range sorted {
		e.PutBytes(kv.Key)
		e.PutBytes(kv.Value)
	}
}
