package memory

import (
	"context"
	"sort"
	"sync"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/storage"
)

type attemptKey struct {
	sellID  string
	venue   string
	attempt int
}

func keyOf(a *domain.AttemptRecord) attemptKey {
	return attemptKey{sellID: a.SellID, venue: a.Venue, attempt: a.Attempt}
}

// AttemptStore is an in-memory implementation of storage.AttemptStore.
type AttemptStore struct {
	mu     sync.RWMutex
	data   map[string][]*domain.AttemptRecord // keyed by sell_id
	exists map[attemptKey]struct{}
}

// NewAttemptStore creates a new in-memory attempt store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		data:   make(map[string][]*domain.AttemptRecord),
		exists: make(map[attemptKey]struct{}),
	}
}

// Insert adds one attempt. Returns ErrDuplicateKey if (sell_id, venue, attempt) exists.
func (s *AttemptStore) Insert(ctx context.Context, a *domain.AttemptRecord) error {
	return s.InsertBulk(ctx, []*domain.AttemptRecord{a})
}

// InsertBulk adds multiple attempts atomically. Fails entire batch on any duplicate.
func (s *AttemptStore) InsertBulk(_ context.Context, attempts []*domain.AttemptRecord) error {
	if len(attempts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[attemptKey]struct{}, len(attempts))
	for _, a := range attempts {
		if a == nil || a.SellID == "" {
			return storage.ErrInvalidInput
		}
		k := keyOf(a)
		if _, dup := s.exists[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[k]; dup {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, a := range attempts {
		rec := *a
		s.data[a.SellID] = append(s.data[a.SellID], &rec)
		s.exists[keyOf(a)] = struct{}{}
	}
	return nil
}

// GetBySellID retrieves the attempts of one sell, ordered by timestamp then attempt.
func (s *AttemptStore) GetBySellID(_ context.Context, sellID string) ([]*domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AttemptRecord, 0, len(s.data[sellID]))
	for _, a := range s.data[sellID] {
		rec := *a
		result = append(result, &rec)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Attempt < result[j].Attempt
	})
	return result, nil
}

var _ storage.AttemptStore = (*AttemptStore)(nil)
