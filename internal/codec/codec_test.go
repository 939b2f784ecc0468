package codec

import (
	"bytes"
	"testing"
)

func TestDoubleSha256Deterministic(t *testing.T) {
	a := DoubleSha256([]byte("block filter"))
	b := DoubleSha256([]byte("block filter"))
	if a != b {
		t.Fatalf("double sha256 not deterministic")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-byte digest, got %d bytes", len(a))
	}
}

func TestRipemd160Sha256Length(t *testing.T) {
	got := Ripemd160Sha256([]byte("hello"))
	if len(got) != 20 {
		t.Fatalf("expected 20-byte digest, got %d bytes", len(got))
	}
}

func TestSipHash24Deterministic(t *testing.T) {
	k0, k1 := uint64(1), uint64(2)
	a := SipHash24(k0, k1, []byte("payload"))
	b := SipHash24(k0, k1, []byte("payload"))
	if a != b {
		t.Fatalf("siphash not deterministic: %d != %d", a, b)
	}
	c := SipHash24(k0, k1, []byte("other"))
	if a == c {
		t.Fatalf("siphash collided on distinct inputs (suspicious, not necessarily wrong)")
	}
}

func TestMapIntoRangeBounds(t *testing.T) {
	for _, h := range []uint64{0, 1, 1 << 63, ^uint64(0)} {
		v := MapIntoRange(h, 1<<32)
		if v >= 1<<32 {
			t.Fatalf("MapIntoRange(%d, 2^32) = %d, out of range", h, v)
		}
	}
	if MapIntoRange(^uint64(0), 1<<32) != (1<<32)-1 {
		t.Fatalf("MapIntoRange(maxuint64, 2^32) should map to the top of the range")
	}
	if MapIntoRange(0, 1<<32) != 0 {
		t.Fatalf("MapIntoRange(0, f) should be 0")
	}
}

func TestEncodeVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000, 1 << 40}
	for _, n := range cases {
		enc := EncodeVarInt(n)
		got, err := DecodeVarInt(bytes.NewReader(enc))
		if err != nil {
			t.Fatalf("DecodeVarInt(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("round trip mismatch: encoded %d, decoded %d", n, got)
		}
	}
}

func TestEncodeVarIntZeroIsSingleByte(t *testing.T) {
	if got := EncodeVarInt(0); !bytes.Equal(got, []byte{0x00}) {
		t.Fatalf("EncodeVarInt(0) = %x, want 0x00", got)
	}
}

func TestEncodeGCSEmpty(t *testing.T) {
	if got := EncodeGCS(nil, false); got != nil {
		t.Fatalf("EncodeGCS(nil) = %x, want nil", got)
	}
}

func TestEncodeDecodeGCSRoundTrip(t *testing.T) {
	values := []uint32{3, 17, 1000, 1000000, 4294967295}
	encoded := EncodeGCS(values, true)
	decoded, err := DecodeGCS(encoded, len(values))
	if err != nil {
		t.Fatalf("DecodeGCS: %v", err)
	}
	if len(decoded) != len(values) {
		t.Fatalf("decoded %d values, want %d", len(decoded), len(values))
	}
	for i, v := range values {
		if decoded[i] != v {
			t.Errorf("value %d: got %d want %d", i, decoded[i], v)
		}
	}
}

func TestEncodeGCSUnsortedAssertsSorted(t *testing.T) {
	// sort=false is a caller contract: passing an unsorted slice is a
	// programmer error, and EncodeGCS panics rather than encoding
	// wrap-around deltas.
	values := []uint32{0, 5, 1}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected EncodeGCS(sort=false) to panic on unsorted input")
		}
	}()
	EncodeGCS(values, false)
}

func TestEncodeGCSSortsWhenRequested(t *testing.T) {
	unsorted := []uint32{50, 1, 25}
	sortedInput := []uint32{1, 25, 50}
	a := EncodeGCS(unsorted, true)
	b := EncodeGCS(sortedInput, false)
	if !bytes.Equal(a, b) {
		t.Fatalf("EncodeGCS(sort=true) should match pre-sorted EncodeGCS(sort=false): %x != %x", a, b)
	}
}
