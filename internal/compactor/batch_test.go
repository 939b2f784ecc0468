package compactor

import (
	"encoding/binary"
	"testing"

	"blockfilter-compactor/internal/filtertype"
	"blockfilter-compactor/internal/rawrecord"
)

func blockWithRecord(height int64, tag byte, txIndex uint32, payload byte) BlockRow {
	rec := make([]byte, rawrecord.RecordSize)
	rec[0] = tag
	binary.LittleEndian.PutUint32(rec[1:5], txIndex)
	for i := 5; i < rawrecord.RecordSize; i++ {
		rec[i] = payload
	}
	return BlockRow{Height: height, Filter: rec}
}

func emptyBlock(height int64) BlockRow {
	return BlockRow{Height: height, Filter: nil}
}

func makeBatch(first BlockRow, rest ...BlockRow) []BlockRow {
	rows := make([]BlockRow, 0, BatchSize)
	rows = append(rows, first)
	rows = append(rows, rest...)
	for int64(len(rows)) < BatchSize {
		rows = append(rows, emptyBlock(first.Height+int64(len(rows))))
	}
	return rows
}

func TestProcessBatchRejectsWrongSize(t *testing.T) {
	_, _, err := ProcessBatch(make([]BlockRow, BatchSize-1), NewChainHeads())
	if err == nil {
		t.Fatalf("expected an error for a short batch")
	}
}

// Scenario 2: a duplicate across blocks in one batch. Block h0 contributes
// an element as new; block h1 contributes it again. h0's filter carries it
// as new at dense index 0, h1's filter carries duplicate pointer 0.
func TestProcessBatchDuplicateAcrossBlocks(t *testing.T) {
	h0 := blockWithRecord(0, 2, 0, 0x42)
	h1 := blockWithRecord(1, 2, 0, 0x42)
	rows := makeBatch(h0, h1)

	records, stats, err := ProcessBatch(rows, NewChainHeads())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	var recH0, recH1 *Record
	for i := range records {
		if records[i].Type != filtertype.Type1 {
			continue
		}
		switch records[i].Height {
		case 0:
			recH0 = &records[i]
		case 1:
			recH1 = &records[i]
		}
	}
	if recH0 == nil || recH1 == nil {
		t.Fatalf("expected type-1 records at heights 0 and 1")
	}

	// h0: Ne=varint(len)>0 at byte 0 nonzero length marker.
	if recH0.Filter[0] == 0x00 {
		t.Fatalf("h0 filter should carry a new element, got Ne-length byte 0x00")
	}
	// h1: Ne must be the single zero byte (no new elements)...
	if recH1.Filter[0] != 0x00 {
		t.Fatalf("h1 filter should have no new elements, got Ne-length byte %#x", recH1.Filter[0])
	}
	// ...and Nd must be nonzero (one duplicate pointer).
	if recH1.Filter[1] == 0x00 {
		t.Fatalf("h1 filter should carry a duplicate pointer, got Nd-length byte 0x00")
	}

	if stats.NewElements != 1 {
		t.Fatalf("expected 1 new element across the batch, got %d", stats.NewElements)
	}
	if stats.DuplicateElements != 1 {
		t.Fatalf("expected 1 duplicate element across the batch, got %d", stats.DuplicateElements)
	}
}

func TestProcessBatchChainResumesAcrossBatches(t *testing.T) {
	h0 := blockWithRecord(0, 2, 0, 0x01)
	batch1 := makeBatch(h0)

	chain := NewChainHeads()
	_, _, err := ProcessBatch(batch1, chain)
	if err != nil {
		t.Fatalf("ProcessBatch batch1: %v", err)
	}

	h1008 := blockWithRecord(BatchSize, 2, 0, 0x02)
	batch2 := makeBatch(h1008)
	records, _, err := ProcessBatch(batch2, chain)
	if err != nil {
		t.Fatalf("ProcessBatch batch2: %v", err)
	}

	// A second, independently-constructed chain seeded from batch1's final
	// head must produce the same records for batch2.
	freshChain := NewChainHeads()
	_, firstBatchStats, _ := ProcessBatch(batch1, freshChain)
	_ = firstBatchStats
	seeded := NewChainHeads()
	seeded.Seed(filtertype.Type1, freshChain.hash[filtertype.Index(filtertype.Type1)])
	recordsFromSeed, _, err := ProcessBatch(batch2, seeded)
	if err != nil {
		t.Fatalf("ProcessBatch from seed: %v", err)
	}

	if len(records) != len(recordsFromSeed) {
		t.Fatalf("record count mismatch between resumed and seeded runs: %d vs %d", len(records), len(recordsFromSeed))
	}
	for i := range records {
		if records[i].Hash != recordsFromSeed[i].Hash {
			t.Fatalf("record %d hash mismatch: resumed run and restart-from-seed run diverged", i)
		}
	}
}
