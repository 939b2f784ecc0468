package compactor

import (
	"fmt"

	"blockfilter-compactor/internal/codec"
	"blockfilter-compactor/internal/dedupe"
	"blockfilter-compactor/internal/filtertype"
	"blockfilter-compactor/internal/rawrecord"
)

// BatchSize is the fixed number of consecutive heights compacted as one
// transactional unit (spec §3 invariant 1): 144 * 7, one week of blocks at
// Bitcoin's target spacing.
const BatchSize = 144 * 7

// BlockRow is one raw input row: a block height and its raw filter blob.
type BlockRow struct {
	Height int64
	Filter []byte
}

// Record is one persisted output row.
type Record struct {
	Height int64
	Type   filtertype.Type
	Hash   [32]byte
	Filter []byte
}

// ProcessBatch runs C2-C5 over exactly one batch of contiguous rows: parses
// each block's raw blob, dedupes elements against a fresh per-batch map,
// builds each block's per-type filter, and folds it into chain. chain is
// mutated in place so the caller can persist its post-batch state for the
// next run.
//
// rows must already be validated as exactly BatchSize rows at strictly
// consecutive heights; that contiguity assertion is the caller's
// responsibility (the Driver in driver.go), not this function's, because it
// only applies once the store has fetched rows and is better reported with
// the height that broke the chain.
func ProcessBatch(rows []BlockRow, chain *ChainHeads) ([]Record, Stats, error) {
	if len(rows) != BatchSize {
		return nil, Stats{}, fmt.Errorf("compactor: batch has %d rows, want %d", len(rows), BatchSize)
	}

	dd := dedupe.New()
	records := make([]Record, 0, len(rows)*filtertype.Count)
	var total Stats

	for _, row := range rows {
		elements, err := rawrecord.Parse(row.Filter, codec.SipHashKey0, codec.SipHashKey1)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("compactor: height %d: %w", row.Height, err)
		}

		filters := buildBlock(elements, dd)
		for _, t := range filtertype.All() {
			slot := filtertype.Index(t)
			bf := filters[slot]
			total.Add(bf.stats)

			h, emit := chain.Advance(t, bf.bytes)
			if !emit {
				continue
			}
			records = append(records, Record{
				Height: row.Height,
				Type:   t,
				Hash:   h,
				Filter: bf.bytes,
			})
		}
	}

	return records, total, nil
}
