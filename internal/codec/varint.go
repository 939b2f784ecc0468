package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeVarInt encodes n as a standard Bitcoin-style compact-size integer,
// matching the teacher's internal/encoding.EncodeVarInt byte for byte.
func EncodeVarInt(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n < 0x10000:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		return buf
	case n < 0x100000000:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		return buf
	}
}

// DecodeVarInt reads a compact-size integer from r. Used only by tests to
// round-trip EncodeVarInt; the compactor itself never needs to parse its own
// varints back.
func DecodeVarInt(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, fmt.Errorf("codec: varint prefix: %w", err)
	}
	switch buf[0] {
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf[:2])), nil
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(buf[:4])), nil
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf[:8]), nil
	default:
		return uint64(buf[0]), nil
	}
}
