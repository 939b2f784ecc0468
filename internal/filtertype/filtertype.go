// Package filtertype defines the canonical address-filter kinds persisted by
// the compactor and the fixed translation from the upstream indexer's raw
// tag namespace into canonical codes.
package filtertype

import (
	"fmt"
	"math/bits"
)

// Type is a canonical, persisted filter kind. Only five values are valid.
type Type uint8

const (
	Type1  Type = 1
	Type2  Type = 2
	Type4  Type = 4
	Type8  Type = 8
	Type16 Type = 16
)

// All lists the five canonical types in ascending order.
func All() []Type {
	return []Type{Type1, Type2, Type4, Type8, Type16}
}

// Count is the number of canonical types.
const Count = 5

// rawToCanonical is the fixed bijection from the upstream indexer's raw tag
// namespace to canonical codes (spec §3).
var rawToCanonical = map[byte]Type{
	0: Type2,
	1: Type4,
	2: Type1,
	5: Type8,
	6: Type16,
}

// FromRawTag translates a raw record's tag byte to its canonical type. An
// unrecognized tag is reported as an error.
func FromRawTag(tag byte) (Type, error) {
	t, ok := rawToCanonical[tag]
	if !ok {
		return 0, fmt.Errorf("filtertype: raw tag %d is not in the translation table", tag)
	}
	return t, nil
}

// Index returns the dense 0..4 slot for a canonical type, used to key small
// fixed-size arrays instead of a map. Canonical codes are powers of two, so
// the slot is simply their bit position.
func Index(t Type) int {
	return bits.TrailingZeros8(uint8(t))
}
