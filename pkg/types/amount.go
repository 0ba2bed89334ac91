// Copyright 2025 Certen Protocol

package types

import (
	"encoding/json"
	"errors"
	"math/big"
)

// AmountWidth is the fixed byte width of an Amount/Nonce/BatchIndex in its
// canonical encoding: a 256-bit unsigned integer, big-endian.
const AmountWidth = 32

// ErrAmountOverflow is returned when an Amount would exceed 256 bits.
var ErrAmountOverflow = errors.New("types: amount overflows 256 bits")

// ErrAmountUnderflow is returned by a checked subtraction that would go
// negative. Per spec.md this is a validation error, never a silent wrap.
var ErrAmountUnderflow = errors.New("types: amount underflow")

var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Amount is a checked 256-bit unsigned integer. Nonce and BatchIndex reuse
// the same representation, since the spec defines all three identically.
type Amount struct {
	v big.Int
}

type Nonce = Amount
type BatchIndex = Amount

// ZeroAmount is the additive identity.
func ZeroAmount() Amount { return Amount{} }

// NewAmount builds an Amount from a non-negative int64.
func NewAmount(v int64) Amount {
	if v < 0 {
		panic("types: NewAmount requires a non-negative value")
	}
	var a Amount
	a.v.SetInt64(v)
	return a
}

// AmountFromBigInt copies b into an Amount, rejecting negative or
// overflowing values.
func AmountFromBigInt(b *big.Int) (Amount, error) {
	if b.Sign() < 0 {
		return Amount{}, ErrAmountUnderflow
	}
	if b.Cmp(maxAmount) > 0 {
		return Amount{}, ErrAmountOverflow
	}
	var a Amount
	a.v.Set(b)
	return a, nil
}

// AmountFromBytes32 decodes a big-endian 32-byte canonical encoding.
func AmountFromBytes32(b [32]byte) Amount {
	var a Amount
	a.v.SetBytes(b[:])
	return a
}

// Bytes32 returns the big-endian fixed 32-byte canonical encoding.
func (a Amount) Bytes32() [32]byte {
	var out [32]byte
	b := a.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// Big returns a defensive copy of the underlying big.Int.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(&a.v)
}

// Add returns a+b, erroring on overflow past 256 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(&a.v, &b.v)
	return AmountFromBigInt(sum)
}

// Sub returns a-b, erroring (ErrAmountUnderflow) if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.v.Cmp(&b.v) < 0 {
		return Amount{}, ErrAmountUnderflow
	}
	diff := new(big.Int).Sub(&a.v, &b.v)
	return AmountFromBigInt(diff)
}

// Cmp compares a to b the way big.Int.Cmp does.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// GreaterOrEqual reports whether a >= b.
func (a Amount) GreaterOrEqual(b Amount) bool {
	return a.v.Cmp(&b.v) >= 0
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.Sign() == 0
}

func (a Amount) String() string {
	return a.v.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.New("types: invalid amount string " + s)
	}
	parsed, err := AmountFromBigInt(v)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
