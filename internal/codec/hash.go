package codec

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // matches the teacher's hash helpers and the filter commitment's required digest
)

// Sha256 returns the single SHA-256 digest of data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// DoubleSha256 returns sha256(sha256(data)), the chain-hash building block
// used throughout the compactor.
func DoubleSha256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second
}

// Ripemd160Sha256 returns ripemd160(sha256(data)), the 20-byte tx-digest
// commitment appended to non-empty filters.
func Ripemd160Sha256(data []byte) [20]byte {
	first := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(first[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}
