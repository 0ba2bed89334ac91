// Copyright 2025 Certen Protocol

package codec

import (
	"bytes"
	"testing"

	"github.com/certen/chess-rollup/pkg/types"
)

func TestEncoderDeterministic(t *testing.T) {
	addr := types.Address{1, 2, 3}
	amount := types.NewAmount(42)

	e1 := NewEncoder()
	e1.PutTag(1)
	e1.PutAddress(addr)
	e1.PutUint256(amount)

	e2 := NewEncoder()
	e2.PutTag(1)
	e2.PutAddress(addr)
	e2.PutUint256(amount)

	if !bytes.Equal(e1.Bytes(), e2.Bytes()) {
		t.Fatalf("identical inputs produced different encodings")
	}
}

func TestEncoderDistinguishesVariants(t *testing.T) {
	e1 := NewEncoder()
	e1.PutTag(0)
	e1.PutUint256(types.NewAmount(5))

	e2 := NewEncoder()
	e2.PutTag(1)
	e2.PutUint256(types.NewAmount(5))

	if bytes.Equal(e1.Bytes(), e2.Bytes()) {
		t.Fatalf("different variant tags produced identical encoding")
	}
}

func TestPutSortedMapOrdersByKey(t *testing.T) {
	pairs := []KV{
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("a"), Value: []byte("1")},
	}
	e1 := NewEncoder()
	e1.PutSortedMap(pairs)

	reversed := []KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}
	e2 := NewEncoder()
	e2.PutSortedMap(reversed)

	if !bytes.Equal(e1.Bytes(), e2.Bytes()) {
		t.Fatalf("map encoding depended on input order")
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a, err := CanonicalizeJSON([]byte(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := CanonicalizeJSON([]byte(`{"a":2,"b":1}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("canonical JSON depended on source key order: %s vs %s", a, b)
	}
	want := `{"a":2,"b":1}`
	if string(a) != want {
		t.Fatalf("got %s, want %s", a, want)
	}
}
