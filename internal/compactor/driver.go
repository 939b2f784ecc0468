package compactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"blockfilter-compactor/internal/filtertype"
)

// Store is the storage contract the driver polls, reads from, and commits
// to (spec §6). internal/store implements it against Postgres; tests use an
// in-memory fake.
type Store interface {
	// HighestHeight returns the tallest height currently persisted in the
	// compressed store. ok is false if the store is empty.
	HighestHeight(ctx context.Context) (height int64, ok bool, err error)
	// ChainHeads returns the (type -> hash) rows persisted at height.
	ChainHeads(ctx context.Context, height int64) (map[filtertype.Type][32]byte, error)
	// FetchRawBatch returns up to limit raw rows at heights > afterHeight,
	// ascending, joined against the canonical blocks table.
	FetchRawBatch(ctx context.Context, afterHeight int64, limit int) ([]BlockRow, error)
	// CommitBatch bulk-inserts records and deletes raw rows in
	// [deleteFromHeight, deleteToHeight] inclusive, in one transaction.
	CommitBatch(ctx context.Context, records []Record, deleteFromHeight, deleteToHeight int64) error
}

// waitCondition marks a runOnce outcome that should retry after the
// driver's poll interval rather than its transient-I/O retry interval:
// mid-batch state, a short fetch, or a data-integrity condition the
// upstream producer may still resolve on its own (spec §7).
type waitCondition struct{ reason string }

func (w *waitCondition) Error() string { return w.reason }

func waitf(format string, args ...any) error {
	return &waitCondition{reason: fmt.Sprintf(format, args...)}
}

func isWaitCondition(err error) bool {
	var w *waitCondition
	return errors.As(err, &w)
}

// Driver runs the single-worker batch compressor loop (spec §4.6, §5).
type Driver struct {
	store         Store
	log           *logrus.Entry
	pollInterval  time.Duration
	retryInterval time.Duration
	totals        Stats
}

// NewDriver constructs a Driver with the source's default throttle
// intervals: 60s when waiting for more raw rows or a mid-batch store to
// settle, 10s after a transient I/O failure.
func NewDriver(store Store, log *logrus.Entry) *Driver {
	return &Driver{
		store:         store,
		log:           log,
		pollInterval:  60 * time.Second,
		retryInterval: 10 * time.Second,
	}
}

// Run drives the loop until ctx is canceled. It never returns a non-nil
// error for cancellation; all other conditions are handled internally by
// retrying, so Run only returns once stopped cleanly.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			d.log.Info("stopped")
			return nil
		}

		err := d.runOnce(ctx)
		switch {
		case err == nil:
			continue // a batch committed; poll again immediately, like the source's bare `continue`.
		case errors.Is(err, context.Canceled):
			d.log.Info("stopped")
			return nil
		case isWaitCondition(err):
			d.log.WithField("reason", err.Error()).Debug("waiting for more data")
			if !d.sleep(ctx, d.pollInterval) {
				d.log.Info("stopped")
				return nil
			}
		default:
			d.log.WithError(err).Error("filter compressor error")
			if !d.sleep(ctx, d.retryInterval) {
				d.log.Info("stopped")
				return nil
			}
		}
	}
}

// sleep waits for d, returning false if ctx was canceled first.
func (d *Driver) sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// runOnce executes one iteration of spec §4.6's loop body. A nil return
// means a batch was committed; any error (possibly a *waitCondition)
// signals the caller should retry.
func (d *Driver) runOnce(ctx context.Context) error {
	highest, ok, err := d.store.HighestHeight(ctx)
	if err != nil {
		return fmt.Errorf("query highest compressed height: %w", err)
	}

	lastHeight := int64(-1)
	if ok {
		lastBatchHeight := (highest / BatchSize) * BatchSize
		lastHeight = lastBatchHeight + BatchSize - 1
		if highest != lastHeight {
			return waitf("store is mid-batch at height %d (expected cursor %d)", highest, lastHeight)
		}
	}

	rows, err := d.store.FetchRawBatch(ctx, lastHeight, BatchSize)
	if err != nil {
		return fmt.Errorf("fetch raw batch after height %d: %w", lastHeight, err)
	}
	if len(rows) < BatchSize {
		return waitf("only %d/%d raw rows available after height %d", len(rows), BatchSize, lastHeight)
	}

	for i, row := range rows {
		want := lastHeight + 1 + int64(i)
		if row.Height != want {
			return waitf("height gap in raw batch: expected %d, got %d at offset %d", want, row.Height, i)
		}
	}

	chain := NewChainHeads()
	if ok {
		heads, err := d.store.ChainHeads(ctx, highest)
		if err != nil {
			return fmt.Errorf("load chain heads at height %d: %w", highest, err)
		}
		for t, h := range heads {
			chain.Seed(t, h)
		}
	}

	records, stats, err := ProcessBatch(rows, chain)
	if err != nil {
		return waitf("batch processing rejected the fetched rows: %v", err)
	}

	firstHeight := lastHeight + 1
	newHeight := lastHeight + BatchSize
	if err := d.store.CommitBatch(ctx, records, firstHeight, newHeight); err != nil {
		return fmt.Errorf("commit batch [%d, %d]: %w", firstHeight, newHeight, err)
	}

	d.totals.Add(stats)
	d.logBatch(firstHeight, newHeight, stats)
	return nil
}

func (d *Driver) logBatch(first, last int64, stats Stats) {
	fields := logrus.Fields{
		"batch_first_height": first,
		"batch_last_height":  last,
		"new_elements":       stats.NewElements,
		"duplicate_elements": stats.DuplicateElements,
		"total_bytes":        stats.TotalFilterBytes,
	}
	if v, ok := stats.BytesPerElement(); ok {
		fields["bytes_per_element"] = v
	}
	if v, ok := stats.BytesPerDuplicate(); ok {
		fields["bytes_per_duplicate"] = v
	}
	if v, ok := stats.BytesPerAddress(); ok {
		fields["bytes_per_address"] = v
	}
	d.log.WithFields(fields).Info("created block filters batch")

	cumulative := logrus.Fields{
		"total_new_elements":       d.totals.NewElements,
		"total_duplicate_elements": d.totals.DuplicateElements,
		"total_bytes":              d.totals.TotalFilterBytes,
	}
	if v, ok := d.totals.BytesPerElement(); ok {
		cumulative["cumulative_bytes_per_element"] = v
	}
	d.log.WithFields(cumulative).Debug("cumulative batch statistics")
}
