package compactor

import (
	"bytes"

	"blockfilter-compactor/internal/codec"
	"blockfilter-compactor/internal/filtertype"
)

// ChainHeads tracks the rolling per-type chain hash (spec §4.5) across the
// batches a single process runs. A type's chain is undefined until its
// first non-empty filter is observed, at which point it initializes from a
// 32 zero-byte predecessor.
type ChainHeads struct {
	hash [filtertype.Count][32]byte
	init [filtertype.Count]bool
}

// NewChainHeads returns chain state with every type uninitialized.
func NewChainHeads() *ChainHeads {
	return &ChainHeads{}
}

// Seed marks t's chain as initialized with a previously persisted hash,
// used when the driver resumes after a restart (spec §4.6 initialization).
func (c *ChainHeads) Seed(t filtertype.Type, h [32]byte) {
	slot := filtertype.Index(t)
	c.hash[slot] = h
	c.init[slot] = true
}

var zero32 [32]byte

// Advance folds filter into t's chain. It returns the resulting hash and
// whether a record should be emitted for this (block, type): the chain
// skips emitting only when it is still uninitialized and filter is empty.
func (c *ChainHeads) Advance(t filtertype.Type, filter []byte) (h [32]byte, emit bool) {
	slot := filtertype.Index(t)
	inner := codec.DoubleSha256(filter)

	if c.init[slot] {
		h = codec.DoubleSha256(append(append([]byte{}, inner[:]...), c.hash[slot][:]...))
		c.hash[slot] = h
		return h, true
	}

	if bytes.Equal(filter, []byte{0x00, 0x00}) {
		return zero32, false
	}

	h = codec.DoubleSha256(append(append([]byte{}, inner[:]...), zero32[:]...))
	c.hash[slot] = h
	c.init[slot] = true
	return h, true
}
