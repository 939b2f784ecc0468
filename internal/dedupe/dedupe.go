// Package dedupe implements the batch deduper (spec §4.3): a per-canonical
// -type element -> dense-index map, with dense indices assigned only once a
// block's new-element set has been finalized and sorted.
package dedupe

import (
	"blockfilter-compactor/internal/filtertype"
)

// Batch tracks, for each of the five canonical types, the elements already
// seen earlier in the current batch and the dense index each was assigned.
// A fresh Batch is created per batch — dense indices never span batches.
type Batch struct {
	slots [filtertype.Count]map[uint32]uint32
	next  [filtertype.Count]uint32
}

// New returns an empty deduper ready for a new batch.
func New() *Batch {
	b := &Batch{}
	for i := range b.slots {
		b.slots[i] = make(map[uint32]uint32)
	}
	return b
}

// Lookup reports whether element e of type t was already reserved earlier in
// the batch (in an earlier block, or earlier in the same block's finalize
// step) and, if so, its dense index.
func (b *Batch) Lookup(t filtertype.Type, e uint32) (index uint32, ok bool) {
	index, ok = b.slots[filtertype.Index(t)][e]
	return index, ok
}

// AssignNew assigns contiguous dense indices, starting at the type's next
// unused index, to each element of sorted in order. sorted must already be
// in ascending order — the caller (the per-block filter builder) is
// responsible for finalizing and sorting the block's new-element set before
// calling this, so that indices are a deterministic function of the input.
func (b *Batch) AssignNew(t filtertype.Type, sorted []uint32) {
	slot := filtertype.Index(t)
	for _, e := range sorted {
		b.slots[slot][e] = b.next[slot]
		b.next[slot]++
	}
}
