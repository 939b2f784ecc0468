package codec

import "math/bits"

// MapIntoRange maps a 64-bit hash uniformly into [0, f) using the
// multiply-and-shift technique: (h * f) >> 64. This avoids a biased modulo
// reduction and matches the BIP 158 family's fast range mapping (the
// teacher's internal/network/gcs.go hand-rolls the same 128-bit product with
// 32-bit partial sums; bits.Mul64 computes the identical high word).
func MapIntoRange(h, f uint64) uint64 {
	hi, _ := bits.Mul64(h, f)
	return hi
}

// Element derives the 32-bit element identifier for a filter payload:
// map_into_range(siphash(payload), 2^32).
func Element(k0, k1 uint64, payload []byte) uint32 {
	h := SipHash24(k0, k1, payload)
	return uint32(MapIntoRange(h, 1<<32))
}
