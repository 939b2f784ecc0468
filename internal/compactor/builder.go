// Package compactor implements the per-block filter builder (C4), the
// chain hasher (C5), and batch-level assembly over those two (C6's
// algorithmic core, excluding storage I/O which lives in internal/store).
package compactor

import (
	"bytes"
	"encoding/binary"
	"slices"

	"blockfilter-compactor/internal/codec"
	"blockfilter-compactor/internal/dedupe"
	"blockfilter-compactor/internal/filtertype"
	"blockfilter-compactor/internal/rawrecord"
)

// blockFilter is the per-type byte string produced for one block, along
// with the stats its construction contributed.
type blockFilter struct {
	bytes []byte
	stats Stats
}

// buildBlock produces the per-canonical-type filter bytes for one block's
// parsed elements (spec §4.4), advancing dd's dense-index assignment for
// every type that gained new elements.
func buildBlock(elements []rawrecord.Element, dd *dedupe.Batch) [filtertype.Count]blockFilter {
	var newElems [filtertype.Count]map[uint32]struct{}
	var dupElems [filtertype.Count]map[uint32]struct{}
	var txFilters [filtertype.Count]map[uint32]map[[4]byte]struct{}
	for i := range newElems {
		newElems[i] = make(map[uint32]struct{})
		dupElems[i] = make(map[uint32]struct{})
		txFilters[i] = make(map[uint32]map[[4]byte]struct{})
	}

	for _, el := range elements {
		slot := filtertype.Index(el.Type)

		if _, alreadyBatched := dd.Lookup(el.Type, el.Value); alreadyBatched {
			dupElems[slot][el.Value] = struct{}{}
		} else {
			newElems[slot][el.Value] = struct{}{}
		}

		byTx := txFilters[slot][el.TxIndex]
		if byTx == nil {
			byTx = make(map[[4]byte]struct{})
			txFilters[slot][el.TxIndex] = byTx
		}
		var le4 [4]byte
		binary.LittleEndian.PutUint32(le4[:], el.Value)
		byTx[le4] = struct{}{}
	}

	var out [filtertype.Count]blockFilter
	for _, t := range filtertype.All() {
		slot := filtertype.Index(t)
		out[slot] = buildTypeFilter(dd, t, newElems[slot], dupElems[slot], txFilters[slot])
	}
	return out
}

// buildTypeFilter implements spec §4.4 steps 2-5 for a single (block, type)
// pair.
func buildTypeFilter(dd *dedupe.Batch, t filtertype.Type, newSet, dupSet map[uint32]struct{}, txFilters map[uint32]map[[4]byte]struct{}) blockFilter {
	var buf bytes.Buffer
	var stats Stats

	if len(newSet) > 0 {
		sortedNew := make([]uint32, 0, len(newSet))
		for e := range newSet {
			sortedNew = append(sortedNew, e)
		}
		slices.Sort(sortedNew)

		dd.AssignNew(t, sortedNew)

		encoded := codec.EncodeGCS(sortedNew, false)
		buf.Write(codec.EncodeVarInt(uint64(len(encoded))))
		buf.Write(encoded)

		stats.NewElements = uint64(len(sortedNew))
		stats.NewElementBytes = uint64(buf.Len())
	} else {
		buf.WriteByte(0x00)
	}

	if len(dupSet) > 0 {
		pointers := make([]uint32, 0, len(dupSet))
		for e := range dupSet {
			idx, ok := dd.Lookup(t, e)
			if !ok {
				panic("compactor: duplicate element has no dense index assigned")
			}
			pointers = append(pointers, idx)
		}

		beforeDup := buf.Len()
		encoded := codec.EncodeGCS(pointers, true)
		buf.Write(codec.EncodeVarInt(uint64(len(encoded))))
		buf.Write(encoded)

		stats.DuplicateElements = uint64(len(dupSet))
		stats.DuplicateBytes = uint64(buf.Len() - beforeDup)
	} else {
		buf.WriteByte(0x00)
	}

	if !isEmptyPrefix(buf.Bytes()) {
		buf.Write(txDigest(txFilters)[:])
	}

	stats.TotalFilterBytes = uint64(buf.Len())
	return blockFilter{bytes: buf.Bytes(), stats: stats}
}

// isEmptyPrefix reports whether the accumulated `<varint Ne><varint Nd>`
// prefix is the two-byte value 0x00 0x00 — the "filter is non-empty"
// predicate from spec §3.
func isEmptyPrefix(prefix []byte) bool {
	return len(prefix) == 2 && prefix[0] == 0x00 && prefix[1] == 0x00
}

// txDigest commits to every element (new or duplicate) contributed by the
// block for one type, ordered by ascending tx-index and, within a tx, by
// the byte order of its 4-byte little-endian element codes (spec §4.4(4)).
func txDigest(txFilters map[uint32]map[[4]byte]struct{}) [20]byte {
	txIndices := make([]uint32, 0, len(txFilters))
	for idx := range txFilters {
		txIndices = append(txIndices, idx)
	}
	slices.Sort(txIndices)

	var d bytes.Buffer
	for _, idx := range txIndices {
		codes := make([][4]byte, 0, len(txFilters[idx]))
		for c := range txFilters[idx] {
			codes = append(codes, c)
		}
		slices.SortFunc(codes, func(a, b [4]byte) int { return bytes.Compare(a[:], b[:]) })
		for _, c := range codes {
			d.Write(c[:])
		}
	}
	return codec.Ripemd160Sha256(d.Bytes())
}
