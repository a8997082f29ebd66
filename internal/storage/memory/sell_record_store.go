package memory

import (
	"context"
	"sort"
	"sync"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/storage"
)

// SellRecordStore is an in-memory implementation of storage.SellRecordStore.
type SellRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SellRecord // keyed by sell_id
}

// NewSellRecordStore creates a new in-memory sell record store.
func NewSellRecordStore() *SellRecordStore {
	return &SellRecordStore{
		data: make(map[string]*domain.SellRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if sell_id exists.
func (s *SellRecordStore) Insert(_ context.Context, r *domain.SellRecord) error {
	if r == nil || r.SellID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SellID]; exists {
		return storage.ErrDuplicateKey
	}

	rec := *r
	s.data[r.SellID] = &rec
	return nil
}

// GetByID retrieves a record by sell ID. Returns ErrNotFound if not exists.
func (s *SellRecordStore) GetByID(_ context.Context, sellID string) (*domain.SellRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[sellID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *r
	return &rec, nil
}

// GetByMint retrieves all sells of a mint, ordered by started_at ASC.
func (s *SellRecordStore) GetByMint(_ context.Context, mint string) ([]*domain.SellRecord, error) {
	return s.filter(func(r *domain.SellRecord) bool { return r.Mint == mint }), nil
}

// GetByTimeRange retrieves sells started within [start, end] (inclusive).
func (s *SellRecordStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SellRecord, error) {
	return s.filter(func(r *domain.SellRecord) bool {
		return r.StartedAt >= start && r.StartedAt <= end
	}), nil
}

func (s *SellRecordStore) filter(keep func(*domain.SellRecord) bool) []*domain.SellRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SellRecord
	for _, r := range s.data {
		if keep(r) {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].SellID < result[j].SellID
	})
	return result
}

var _ storage.SellRecordStore = (*SellRecordStore)(nil)
