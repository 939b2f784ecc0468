// Package rawrecord slices a block's raw filter blob into its constituent
// 25-byte records and maps each into the form the compactor operates on.
package rawrecord

import (
	"encoding/binary"
	"fmt"

	"blockfilter-compactor/internal/codec"
	"blockfilter-compactor/internal/filtertype"
)

// RecordSize is the fixed width of a raw element record: 1 tag byte, 4
// little-endian tx-index bytes, 20 payload bytes.
const RecordSize = 25

// Element is a single parsed contribution from a block's raw filter blob.
type Element struct {
	Type    filtertype.Type
	TxIndex uint32
	Value   uint32 // map_into_range(siphash(payload), 2^32)
}

// Parse slices raw into RecordSize-byte records, pre-deduplicates identical
// records within the block (spec §4.2), and derives the (canonical type,
// tx-index, element) triple for each surviving record. A raw length that is
// not a multiple of RecordSize, or a record whose tag is not in the
// translation table, is returned as an error.
func Parse(raw []byte, k0, k1 uint64) ([]Element, error) {
	if len(raw)%RecordSize != 0 {
		return nil, fmt.Errorf("rawrecord: blob length %d is not a multiple of %d", len(raw), RecordSize)
	}

	n := len(raw) / RecordSize
	seen := make(map[[RecordSize]byte]struct{}, n)
	elements := make([]Element, 0, n)

	for i := 0; i < n; i++ {
		var rec [RecordSize]byte
		copy(rec[:], raw[i*RecordSize:(i+1)*RecordSize])
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}

		t, err := filtertype.FromRawTag(rec[0])
		if err != nil {
			return nil, fmt.Errorf("rawrecord: record %d: %w", i, err)
		}
		txIndex := binary.LittleEndian.Uint32(rec[1:5])
		payload := rec[5:25]

		elements = append(elements, Element{
			Type:    t,
			TxIndex: txIndex,
			Value:   codec.Element(k0, k1, payload),
		})
	}

	return elements, nil
}
