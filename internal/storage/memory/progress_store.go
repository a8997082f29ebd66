package memory

import (
	"context"
	"sync"

	"solana-exit-engine/internal/storage"
)

// ProgressStore is an in-memory implementation of storage.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	progress *storage.WatchProgress
	exited   map[string]bool
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		exited: make(map[string]bool),
	}
}

// GetLastProcessed returns the last processed slot and signature.
func (s *ProgressStore) GetLastProcessed(_ context.Context) (*storage.WatchProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}
	p := *s.progress
	return &p, nil
}

// SetLastProcessed saves the last processed slot and signature.
func (s *ProgressStore) SetLastProcessed(_ context.Context, progress *storage.WatchProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := *progress
	s.progress = &p
	return nil
}

// IsMintExited reports whether a sell of mint has already succeeded.
func (s *ProgressStore) IsMintExited(_ context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.exited[mint], nil
}

// MarkMintExited records a successful sell of mint.
func (s *ProgressStore) MarkMintExited(_ context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.exited[mint] = true
	return nil
}

// LoadExitedMints returns all exited mints.
func (s *ProgressStore) LoadExitedMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.exited))
	for mint := range s.exited {
		mints = append(mints, mint)
	}
	return mints, nil
}

var _ storage.ProgressStore = (*ProgressStore)(nil)
