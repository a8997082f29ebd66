package clickhouse

import (
	"context"
	"fmt"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/storage"
)

// AttemptStore implements storage.AttemptStore using ClickHouse.
// MergeTree does not enforce keys, so duplicates are checked before insert.
type AttemptStore struct {
	conn *Conn
}

// NewAttemptStore creates a new AttemptStore.
func NewAttemptStore(conn *Conn) *AttemptStore {
	return &AttemptStore{conn: conn}
}

var _ storage.AttemptStore = (*AttemptStore)(nil)

// Insert adds one attempt. Returns ErrDuplicateKey if (sell_id, venue, attempt) exists.
func (s *AttemptStore) Insert(ctx context.Context, a *domain.AttemptRecord) error {
	return s.InsertBulk(ctx, []*domain.AttemptRecord{a})
}

// InsertBulk adds multiple attempts in one batch. Fails entire batch on any duplicate.
func (s *AttemptStore) InsertBulk(ctx context.Context, attempts []*domain.AttemptRecord) error {
	if len(attempts) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		if a == nil || a.SellID == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%s|%d", a.SellID, a.Venue, a.Attempt)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, a := range attempts {
		exists, err := s.exists(ctx, a)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO sell_attempts (
			sell_id, venue, attempt, stage, success,
			signature, error, latency_ms, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range attempts {
		err = batch.Append(
			a.SellID, a.Venue, int64(a.Attempt), a.Stage, a.Success,
			a.Signature, a.Error, a.LatencyMs, a.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySellID retrieves the attempts of one sell, ordered by timestamp then attempt.
func (s *AttemptStore) GetBySellID(ctx context.Context, sellID string) ([]*domain.AttemptRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			sell_id, venue, attempt, stage, success,
			signature, error, latency_ms, timestamp_ms
		FROM sell_attempts
		WHERE sell_id = ?
		ORDER BY timestamp_ms ASC, attempt ASC
	`, sellID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var result []*domain.AttemptRecord
	for rows.Next() {
		var a domain.AttemptRecord
		var attempt int64
		if err := rows.Scan(
			&a.SellID, &a.Venue, &attempt, &a.Stage, &a.Success,
			&a.Signature, &a.Error, &a.LatencyMs, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Attempt = int(attempt)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return result, nil
}

func (s *AttemptStore) exists(ctx context.Context, a *domain.AttemptRecord) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count()
		FROM sell_attempts
		WHERE sell_id = ? AND venue = ? AND attempt = ?
	`, a.SellID, a.Venue, int64(a.Attempt)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
