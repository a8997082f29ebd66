package watcher

import "solana-exit-engine/internal/domain"

// Skip reasons reported by Policy.Evaluate and the watcher.
const (
	SkipNotWatched    = "not_watched"
	SkipBuy           = "buy"
	SkipPlaceholder   = "placeholder"
	SkipLowLiquidity  = "low_liquidity"
	SkipAlreadyExited = "already_exited"
	SkipInFlight      = "in_flight"
	SkipFailedTx      = "failed_tx"
	SkipFetchFailed   = "fetch_failed"
	SkipNoTrade       = "no_trade"
)

// Policy decides whether an observed trade triggers an exit.
type Policy struct {
	mints           map[string]struct{} // empty means every mint
	MinLiquiditySOL float64
	// SellOnly triggers only on trades observed as sells. A trade whose
	// direction is ambiguous never counts as a sell.
	SellOnly         bool
	AllowPlaceholder bool
}

// NewPolicy builds a policy watching mints (all mints when empty).
func NewPolicy(mints []string, minLiquiditySOL float64, sellOnly, allowPlaceholder bool) *Policy {
	p := &Policy{
		mints:            make(map[string]struct{}, len(mints)),
		MinLiquiditySOL:  minLiquiditySOL,
		SellOnly:         sellOnly,
		AllowPlaceholder: allowPlaceholder,
	}
	for _, m := range mints {
		p.mints[m] = struct{}{}
	}
	return p
}

// Evaluate returns true when trade should trigger a sell, or the skip reason.
func (p *Policy) Evaluate(trade *domain.TradeInfo) (bool, string) {
	if len(p.mints) > 0 {
		if _, ok := p.mints[trade.Mint]; !ok {
			return false, SkipNotWatched
		}
	}
	if p.SellOnly && (trade.IsBuy || trade.DirectionAmbiguous) {
		return false, SkipBuy
	}
	if trade.IsPlaceholder() {
		if !p.AllowPlaceholder {
			return false, SkipPlaceholder
		}
		// placeholder liquidity is synthetic
		return true, ""
	}
	if trade.Liquidity < p.MinLiquiditySOL {
		return false, SkipLowLiquidity
	}
	return true, ""
}
