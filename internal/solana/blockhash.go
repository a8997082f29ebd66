package solana

import (
	"context"
	"sync"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// BlockhashFetcher returns the latest ledger blockhash.
type BlockhashFetcher interface {
	GetLatestBlockhash(ctx context.Context) (sol.Hash, error)
}

// BlockhashCache serves a recently fetched blockhash and refreshes it in the background.
// Reads older than maxAge fall through to the fetcher.
type BlockhashCache struct {
	fetcher BlockhashFetcher
	maxAge  time.Duration
	log     logrus.FieldLogger
	now     func() time.Time

	mu        sync.RWMutex
	hash      sol.Hash
	fetchedAt time.Time
}

// NewBlockhashCache creates a cache. A nil logger disables refresh-failure logging.
func NewBlockhashCache(fetcher BlockhashFetcher, maxAge time.Duration, log logrus.FieldLogger) *BlockhashCache {
	return &BlockhashCache{
		fetcher: fetcher,
		maxAge:  maxAge,
		log:     log,
		now:     time.Now,
	}
}

// LatestBlockhash returns the cached blockhash when fresh, otherwise fetches a new one.
func (c *BlockhashCache) LatestBlockhash(ctx context.Context) (sol.Hash, error) {
	c.mu.RLock()
	hash, fetchedAt := c.hash, c.fetchedAt
	c.mu.RUnlock()

	if !fetchedAt.IsZero() && c.now().Sub(fetchedAt) < c.maxAge {
		return hash, nil
	}
	return c.refresh(ctx)
}

func (c *BlockhashCache) refresh(ctx context.Context) (sol.Hash, error) {
	hash, err := c.fetcher.GetLatestBlockhash(ctx)
	if err != nil {
		return sol.Hash{}, err
	}

	c.mu.Lock()
	c.hash = hash
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return hash, nil
}

// Run refreshes the cache every interval until ctx is done.
func (c *BlockhashCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.refresh(ctx); err != nil && ctx.Err() == nil && c.log != nil {
			c.log.WithError(err).Warn("blockhash refresh failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
