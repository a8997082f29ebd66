package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/storage"
)

// SellRecordStore implements storage.SellRecordStore using PostgreSQL.
type SellRecordStore struct {
	pool *Pool
}

// NewSellRecordStore creates a new SellRecordStore.
func NewSellRecordStore(pool *Pool) *SellRecordStore {
	return &SellRecordStore{pool: pool}
}

var _ storage.SellRecordStore = (*SellRecordStore)(nil)

const sellRecordColumns = `
	sell_id, trade_signature, mint, pool_id,
	success, signature, error, used_fallback_venue,
	attempt_count, venue, started_at, duration_ms`

// Insert adds a new record. Returns ErrDuplicateKey if sell_id exists.
func (s *SellRecordStore) Insert(ctx context.Context, r *domain.SellRecord) error {
	if r == nil || r.SellID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO sell_records (` + sellRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		r.SellID, r.TradeSignature, r.Mint, r.PoolID,
		r.Success, r.Signature, r.Error, r.UsedFallbackVenue,
		r.AttemptCount, r.Venue, r.StartedAt, r.DurationMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sell record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by sell ID. Returns ErrNotFound if not exists.
func (s *SellRecordStore) GetByID(ctx context.Context, sellID string) (*domain.SellRecord, error) {
	query := `SELECT ` + sellRecordColumns + ` FROM sell_records WHERE sell_id = $1`

	r, err := scanSellRecord(s.pool.QueryRow(ctx, query, sellID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sell record: %w", err)
	}
	return r, nil
}

// GetByMint retrieves all sells of a mint, ordered by started_at ASC.
func (s *SellRecordStore) GetByMint(ctx context.Context, mint string) ([]*domain.SellRecord, error) {
	query := `SELECT ` + sellRecordColumns + ` FROM sell_records
		WHERE mint = $1
		ORDER BY started_at ASC, sell_id ASC`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query sell records by mint: %w", err)
	}
	return collectSellRecords(rows)
}

// GetByTimeRange retrieves sells started within [start, end] (inclusive).
func (s *SellRecordStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SellRecord, error) {
	query := `SELECT ` + sellRecordColumns + ` FROM sell_records
		WHERE started_at >= $1 AND started_at <= $2
		ORDER BY started_at ASC, sell_id ASC`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query sell records by time range: %w", err)
	}
	return collectSellRecords(rows)
}

func scanSellRecord(row pgx.Row) (*domain.SellRecord, error) {
	var r domain.SellRecord
	err := row.Scan(
		&r.SellID, &r.TradeSignature, &r.Mint, &r.PoolID,
		&r.Success, &r.Signature, &r.Error, &r.UsedFallbackVenue,
		&r.AttemptCount, &r.Venue, &r.StartedAt, &r.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectSellRecords(rows pgx.Rows) ([]*domain.SellRecord, error) {
	defer rows.Close()

	var result []*domain.SellRecord
	for rows.Next() {
		r, err := scanSellRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sell record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sell records: %w", err)
	}
	return result, nil
}
