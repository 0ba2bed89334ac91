// Copyright 2025 Certen Protocol

package types

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength is the size in bytes of a Keccak-256 digest.
const HashLength = 32

// Hash is a 32-byte Keccak-256 digest.
type Hash [HashLength]byte

// ZeroHash is the all-zero digest. combined_hash treats it as "absent" on
// either side of a pairing, per the withdrawal batcher's zero-hash padding
// rule.
var ZeroHash = Hash{}

// ErrInvalidHash is returned when a hex string does not decode to 32 bytes.
var ErrInvalidHash = errors.New("types: hash must be 32 bytes")

// Keccak256 hashes the concatenation of data using Keccak-256.
func Keccak256(data ...[]byte) Hash {
	var h Hash
	copy(h[:], crypto.Keccak256(data...))
	return h
}

func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashLength {
		return Hash{}, ErrInvalidHash
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// Less gives Hash a total order so sorted-pair hashing has a deterministic
// "min"/"max" regardless of which side a caller happened to pass first.
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
