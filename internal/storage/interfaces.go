package storage

import (
	"context"

	"solana-exit-engine/internal/domain"
)

// SellRecordStore provides access to sell_records storage.
type SellRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if sell_id exists.
	Insert(ctx context.Context, r *domain.SellRecord) error

	// GetByID retrieves a record by sell ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, sellID string) (*domain.SellRecord, error)

	// GetByMint retrieves all sells of a mint, ordered by started_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.SellRecord, error)

	// GetByTimeRange retrieves sells started within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SellRecord, error)
}

// AttemptStore provides access to sell_attempts storage.
type AttemptStore interface {
	// Insert adds one attempt. Returns ErrDuplicateKey if (sell_id, venue, attempt) exists.
	Insert(ctx context.Context, a *domain.AttemptRecord) error

	// InsertBulk adds multiple attempts. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, attempts []*domain.AttemptRecord) error

	// GetBySellID retrieves the attempts of one sell, ordered by timestamp then attempt.
	GetBySellID(ctx context.Context, sellID string) ([]*domain.AttemptRecord, error)
}
