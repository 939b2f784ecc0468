// Package store implements the compactor's Postgres-backed storage
// contract (spec §6): reading raw filter rows, reading/writing chain
// heads, and committing a compacted batch alongside the deletion of the
// raw rows it consumed.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blockfilter-compactor/internal/compactor"
	"blockfilter-compactor/internal/filtertype"
)

// Store adapts a pgx connection pool to compactor.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-configured pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool sized per spec §5: a small pool (min 1, max 2) held
// for the worker's lifetime.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MinConns = 1
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	return pool, nil
}

// checkpointService names this worker's row in compactor_checkpoints, the
// dedicated progress cursor table. A watermark derived from MAX(height) in
// block_filter would desync from the raw cursor on an all-empty batch (one
// that yields zero Records, e.g. before any canonical type has initialized)
// since no row would ever be inserted to advance it — the checkpoint table
// is updated unconditionally in CommitBatch regardless of how many records
// a batch produced.
const checkpointService = "filter_compactor"

// HighestHeight returns the tallest height this worker has committed
// through, per compactor_checkpoints, not per block_filter's contents.
func (s *Store) HighestHeight(ctx context.Context) (int64, bool, error) {
	var height int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_height FROM compactor_checkpoints WHERE service_name = $1`,
		checkpointService,
	).Scan(&height)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: query checkpoint height: %w", err)
	}
	return height, true, nil
}

// ChainHeads returns every (type, hash) row persisted at height, seeding
// the per-type chain state on restart.
func (s *Store) ChainHeads(ctx context.Context, height int64) (map[filtertype.Type][32]byte, error) {
	rows, err := s.pool.Query(ctx, `SELECT type, hash FROM block_filter WHERE height = $1`, height)
	if err != nil {
		return nil, fmt.Errorf("store: query chain heads at %d: %w", height, err)
	}
	defer rows.Close()

	heads := make(map[filtertype.Type][32]byte, filtertype.Count)
	for rows.Next() {
		var typeCode uint8
		var hash []byte
		if err := rows.Scan(&typeCode, &hash); err != nil {
			return nil, fmt.Errorf("store: scan chain head row: %w", err)
		}
		var arr [32]byte
		copy(arr[:], hash)
		heads[filtertype.Type(typeCode)] = arr
	}
	return heads, rows.Err()
}

// FetchRawBatch returns up to limit raw rows at heights strictly above
// afterHeight, ascending, joined against blocks so the height is
// recognized as canonical.
func (s *Store) FetchRawBatch(ctx context.Context, afterHeight int64, limit int) ([]compactor.BlockRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT raw_block_filters.height, raw_block_filters.filter
		FROM raw_block_filters
		JOIN blocks ON blocks.height = raw_block_filters.height
		WHERE raw_block_filters.height > $1
		ORDER BY raw_block_filters.height ASC
		LIMIT $2`, afterHeight, limit)
	if err != nil {
		return nil, fmt.Errorf("store: fetch raw batch after %d: %w", afterHeight, err)
	}
	defer rows.Close()

	out := make([]compactor.BlockRow, 0, limit)
	for rows.Next() {
		var row compactor.BlockRow
		if err := rows.Scan(&row.Height, &row.Filter); err != nil {
			return nil, fmt.Errorf("store: scan raw row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CommitBatch bulk-inserts records and deletes the raw rows the batch
// consumed, in one transaction. deleteFromHeight and deleteToHeight are
// inclusive — unlike the upstream Python source's off-by-one range, this
// deletes exactly the heights the committed batch covers (SPEC_FULL.md §1).
func (s *Store) CommitBatch(ctx context.Context, records []compactor.Record, deleteFromHeight, deleteToHeight int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if len(records) > 0 {
		copyRows := make([][]any, len(records))
		for i, rec := range records {
			copyRows[i] = []any{rec.Height, uint8(rec.Type), rec.Hash[:], rec.Filter}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"block_filter"},
			[]string{"height", "type", "hash", "filter"},
			pgx.CopyFromRows(copyRows),
		)
		if err != nil {
			return fmt.Errorf("store: bulk insert block_filter: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM raw_block_filters WHERE height >= $1 AND height <= $2`,
		deleteFromHeight, deleteToHeight,
	); err != nil {
		return fmt.Errorf("store: delete consumed raw rows: %w", err)
	}

	// Advance the checkpoint unconditionally, even when records is empty, so
	// the cursor never desyncs from the raw rows just deleted above.
	if _, err := tx.Exec(ctx, `
		INSERT INTO compactor_checkpoints (service_name, last_height, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (service_name) DO UPDATE SET last_height = excluded.last_height, updated_at = excluded.updated_at`,
		checkpointService, deleteToHeight,
	); err != nil {
		return fmt.Errorf("store: advance checkpoint: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}
