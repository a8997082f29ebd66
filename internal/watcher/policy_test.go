package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-exit-engine/internal/domain"
)

func TestPolicy_Evaluate(t *testing.T) {
	decoded := func(mutate func(*domain.TradeInfo)) *domain.TradeInfo {
		tr := &domain.TradeInfo{Mint: "mintA", Liquidity: 20, Confidence: domain.ConfidenceDecoded}
		if mutate != nil {
			mutate(tr)
		}
		return tr
	}

	tests := []struct {
		name   string
		policy *Policy
		trade  *domain.TradeInfo
		want   bool
		reason string
	}{
		{"sell on watched mint", NewPolicy([]string{"mintA"}, 10, true, false), decoded(nil), true, ""},
		{"mint not watched", NewPolicy([]string{"mintB"}, 0, true, false), decoded(nil), false, SkipNotWatched},
		{"buy with sell trigger", NewPolicy(nil, 0, true, false), decoded(func(tr *domain.TradeInfo) { tr.IsBuy = true }), false, SkipBuy},
		{"ambiguous direction", NewPolicy(nil, 0, true, false), decoded(func(tr *domain.TradeInfo) { tr.IsBuy, tr.DirectionAmbiguous = true, true }), false, SkipBuy},
		{"buy with any trigger", NewPolicy(nil, 0, false, false), decoded(func(tr *domain.TradeInfo) { tr.IsBuy = true }), true, ""},
		{"low liquidity", NewPolicy(nil, 50, true, false), decoded(nil), false, SkipLowLiquidity},
		{"placeholder refused", NewPolicy(nil, 0, true, false), decoded(func(tr *domain.TradeInfo) { tr.Confidence = domain.ConfidencePlaceholder }), false, SkipPlaceholder},
		{"placeholder allowed ignores liquidity", NewPolicy(nil, 5000, true, true), decoded(func(tr *domain.TradeInfo) { tr.Confidence = domain.ConfidencePlaceholder }), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := tt.policy.Evaluate(tt.trade)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestResolver_RetriesUntilIndexed(t *testing.T) {
	fetcher := &mapFetcher{misses: map[string]int{"s1": 2}}
	r := &Resolver{Fetcher: fetcher, Extractor: mapExtractor{"s1": sellTrade("s1", "mintA")}, Backoff: time.Millisecond}

	trade, err := r.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "mintA", trade.Mint)
	assert.Equal(t, 3, fetcher.calls["s1"])
}

func TestResolver_GivesUp(t *testing.T) {
	fetcher := &mapFetcher{misses: map[string]int{"s1": 10}}
	r := &Resolver{Fetcher: fetcher, Extractor: mapExtractor{}, Retries: 2, Backoff: time.Millisecond}

	_, err := r.Resolve(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Equal(t, 2, fetcher.calls["s1"])
}

func TestResolver_KeepsLastError(t *testing.T) {
	boom := errors.New("429 too many requests")
	r := &Resolver{Fetcher: &mapFetcher{err: boom}, Extractor: mapExtractor{}, Backoff: time.Millisecond}

	_, err := r.FetchTransaction(context.Background(), "s1")
	assert.ErrorIs(t, err, boom)
}

func TestResolver_NoTrade(t *testing.T) {
	r := &Resolver{Fetcher: &mapFetcher{}, Extractor: mapExtractor{}, Backoff: time.Millisecond}

	_, err := r.Resolve(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNoTrade)
}

func TestResolver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Resolver{Fetcher: &mapFetcher{misses: map[string]int{"s1": 5}}, Extractor: mapExtractor{}, Backoff: time.Hour}

	_, err := r.FetchTransaction(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
}
