// Copyright 2025 Certen Protocol
//
// Package types defines the rollup's core value types: Address, Amount,
// Nonce, BatchIndex, Hash and Signature. All of them are fixed-width and
// are designed to round-trip through pkg/codec without ambiguity.

package types

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressLength is the size in bytes of an L1-compatible account identifier.
const AddressLength = 20

// Address is a 20-byte account identifier, shared between L1 and L2.
type Address [AddressLength]byte

// ErrInvalidAddress is returned when a hex string does not decode to 20 bytes.
var ErrInvalidAddress = errors.New("types: address must be 20 bytes")

// ZeroAddress is the all-zero account, used as a sentinel for "no account".
var ZeroAddress = Address{}

// AddressFromCommon converts a go-ethereum common.Address into our Address.
func AddressFromCommon(a common.Address) Address {
	var out Address
	copy(out[:], a[:])
	return out
}

// Common converts an Address back to a go-ethereum common.Address, for use
// with go-ethereum's ABI/RPC machinery.
func (a Address) Common() common.Address {
	return common.Address(a)
}

// ParseAddress decodes a "0x"-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(b) != AddressLength {
		return Address{}, ErrInvalidAddress
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// String renders the address as a lowercase "0x"-prefixed hex string.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns the raw 20-byte form, used for canonical encoding and for
// the lexicographic ordering the withdrawal batcher sorts on.
func (a Address) Bytes() []byte {
	return a[:]
}

// Less reports whether a sorts strictly before b under the raw-byte
// lexicographic order the Merkle leaf layout requires.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler, which the json package
// also uses for map keys (map[Address]Amount marshals as a JSON object
// keyed by address, not an array of pairs).
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
