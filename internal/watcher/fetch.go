package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/solana"
)

const (
	DefaultFetchRetries = 3
	DefaultFetchBackoff = 500 * time.Millisecond
)

var (
	// ErrTransactionNotFound is returned when the node never returned the transaction.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNoTrade is returned when the transaction carries no venue trade.
	ErrNoTrade = errors.New("transaction carries no venue trade")
)

// TransactionFetcher retrieves a transaction by signature. A nil transaction
// with a nil error means the node has not indexed it yet.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// TradeExtractor turns a transaction into a trade, or nil when it has none.
type TradeExtractor interface {
	Extract(tx *solana.Transaction) (*domain.TradeInfo, error)
}

// Resolver fetches transactions with retry and extracts their trade.
type Resolver struct {
	Fetcher   TransactionFetcher
	Extractor TradeExtractor
	Retries   int
	Backoff   time.Duration // doubled after each miss
}

// FetchTransaction retries GetTransaction on errors and on not-yet-indexed
// results, backing off 500ms, 1s, 2s with the defaults.
func (r *Resolver) FetchTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	retries := r.Retries
	if retries <= 0 {
		retries = DefaultFetchRetries
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = DefaultFetchBackoff
	}

	lastErr := ErrTransactionNotFound
	for attempt := 0; attempt < retries; attempt++ {
		tx, err := r.Fetcher.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == retries-1 {
			break
		}

		select {
		case <-time.After(backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("get transaction %s: %w", signature, lastErr)
}

// Resolve fetches signature and extracts its trade.
func (r *Resolver) Resolve(ctx context.Context, signature string) (*domain.TradeInfo, error) {
	tx, err := r.FetchTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}
	if tx.Signature == "" {
		tx.Signature = signature
	}

	trade, err := r.Extractor.Extract(tx)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", signature, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%s: %w", signature, ErrNoTrade)
	}
	return trade, nil
}
