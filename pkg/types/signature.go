// Copyright 2025 Certen Protocol
//
// Recoverable ECDSA signatures over secp256k1, EIP-191 "personal_sign"
// preamble. Grounded on the teacher's pkg/ethereum/client.go, which wraps
// the same go-ethereum/crypto primitives for key handling.

package types

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size in bytes of a 65-byte recoverable signature
// (32-byte r, 32-byte s, 1-byte recovery id).
const SignatureLength = 65

// ErrInvalidSignature is returned when a hex string does not decode to 65
// bytes.
var ErrInvalidSignature = errors.New("types: signature must be 65 bytes")

// Signature is a 65-byte recoverable ECDSA signature.
type Signature [SignatureLength]byte

// ZeroSignature is used for synthetic bridge transactions, which the
// execution engine never verifies (see execution.Execute step 1).
var ZeroSignature = Signature{}

func ParseSignature(s string) (Signature, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Signature{}, err
	}
	if len(b) != SignatureLength {
		return Signature{}, ErrInvalidSignature
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

func (s Signature) Bytes() []byte {
	return s[:]
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	sig, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// personalSignHash returns the Keccak-256 digest of message prefixed with
// the EIP-191 "\x19Ethereum Signed Message:\n<length>" preamble.
func personalSignHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefixed), message)
}

// Sign produces a 65-byte recoverable signature over message, applying the
// EIP-191 personal-sign preamble first. message must be the canonical
// binary encoding of the transaction being signed, never JSON.
func Sign(key *ecdsa.PrivateKey, message []byte) (Signature, error) {
	digest := personalSignHash(message)
	raw, err := crypto.Sign(digest, key)
	if err != nil {
		return Signature{}, err
	}
	var sig Signature
	copy(sig[:], raw)
	return sig, nil
}

// Recover recovers the signing address from sig over message, applying the
// same EIP-191 preamble Sign used.
func Recover(sig Signature, message []byte) (Address, error) {
	digest := personalSignHash(message)
	pub, err := crypto.SigToPub(digest, sig[:])
	if err != nil {
		return Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return AddressFromCommon(crypto.PubkeyToAddress(*pub)), nil
}

// AddressFromPrivateKey derives the Address that corresponds to key.
func AddressFromPrivateKey(key *ecdsa.PrivateKey) Address {
	return AddressFromCommon(crypto.PubkeyToAddress(key.PublicKey))
}
