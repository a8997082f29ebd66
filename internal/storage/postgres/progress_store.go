package postgres

import (
	"context"
	"fmt"

	"solana-exit-engine/internal/storage"
)

// ProgressStore is a PostgreSQL implementation of storage.ProgressStore.
// Uses two tables:
//   - watch_progress: single row with (slot, signature)
//   - exited_mints: set of mints already sold
type ProgressStore struct {
	pool *Pool
}

// NewProgressStore creates a new PostgreSQL progress store.
func NewProgressStore(pool *Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the last processed slot and signature.
func (s *ProgressStore) GetLastProcessed(ctx context.Context) (*storage.WatchProgress, error) {
	row := s.pool.QueryRow(ctx, `SELECT slot, signature FROM watch_progress WHERE id = 1`)

	var slot int64
	var p storage.WatchProgress
	if err := row.Scan(&slot, &p.Signature); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get watch progress: %w", err)
	}
	p.Slot = uint64(slot)
	return &p, nil
}

// SetLastProcessed upserts the single progress row.
func (s *ProgressStore) SetLastProcessed(ctx context.Context, progress *storage.WatchProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO watch_progress (id, slot, signature, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, int64(progress.Slot), progress.Signature)
	if err != nil {
		return fmt.Errorf("set watch progress: %w", err)
	}
	return nil
}

// IsMintExited reports whether a sell of mint has already succeeded.
func (s *ProgressStore) IsMintExited(ctx context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM exited_mints WHERE mint = $1)`, mint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exited mint: %w", err)
	}
	return exists, nil
}

// MarkMintExited records a successful sell of mint. Repeated marks are no-ops.
func (s *ProgressStore) MarkMintExited(ctx context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO exited_mints (mint, exited_at)
		VALUES ($1, NOW())
		ON CONFLICT (mint) DO NOTHING
	`, mint)
	if err != nil {
		return fmt.Errorf("mark exited mint: %w", err)
	}
	return nil
}

// LoadExitedMints returns all exited mints.
func (s *ProgressStore) LoadExitedMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint FROM exited_mints ORDER BY mint`)
	if err != nil {
		return nil, fmt.Errorf("query exited mints: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, fmt.Errorf("scan exited mint: %w", err)
		}
		mints = append(mints, mint)
	}
	return mints, rows.Err()
}
