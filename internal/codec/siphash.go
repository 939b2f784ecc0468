package codec

import "golang.org/x/crypto/siphash"

// SipHashKey0 and SipHashKey1 are the fixed SipHash key shared with filter
// consumers. Every element in every filter this service ever produces must
// be derived with this exact key, or clients re-deriving elements from
// payloads they already hold will disagree with the filter.
const (
	SipHashKey0 uint64 = 0x0706050403020100
	SipHashKey1 uint64 = 0x0f0e0d0c0b0a0908
)

// SipHash24 computes keyed SipHash-2-4 over data. The key (k0, k1) is fixed
// and shared with downstream filter consumers; callers must not vary it.
func SipHash24(k0, k1 uint64, data []byte) uint64 {
	return siphash.Hash(k0, k1, data)
}
