// Copyright 2025 Certen Protocol
//
// Canonical-JSON profile for the RPC/storage boundary: sorted map keys, no
// insignificant whitespace. Generalized from the teacher's
// pkg/commitment.CanonicalizeJSON, which did the same thing in service of
// RFC8785-flavored hashing. This profile is advisory/storage-only: nothing
// signature-covered is ever marshaled through it (see canonical.go).

package codec

import (
	"encoding/json"
	"sort"
)

// CanonicalJSON marshals v to JSON and then re-canonicalizes key order so
// the result is stable regardless of Go's (randomized-free, but
// unspecified-for-maps) struct field emission order.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSON(raw)
}

// CanonicalizeJSON takes arbitrary JSON bytes and returns a canonical
// encoding: map keys sorted ascending, arrays left in place, no
// insignificant whitespace.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalizeValue(v))
}

func canonicalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]canonKV, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, canonKV{k, canonicalizeValue(vv[k])})
		}
		return orderedMap(ordered)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

type canonKV struct {
	Key   string
	Value any
}

// orderedMap marshals as a JSON object preserving the insertion order given
// to it, which canonicalizeValue has already sorted lexicographically.
type orderedMap []canonKV

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, kv := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}
