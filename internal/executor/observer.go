package executor

import (
	"time"

	"solana-exit-engine/internal/domain"
)

// Attempt identifies one build/submit/verify pass against a venue.
type Attempt struct {
	SellID    string
	Venue     string
	Number    int // primary attempt number; 1 for the fallback attempt
	Mint      string
	StartedAt time.Time
}

// AttemptResult is how an attempt ended.
type AttemptResult struct {
	Stage     string // last stage reached, one of domain.Stage*
	Signature string // set once a transaction was submitted
	Err       error
	Duration  time.Duration
}

// Succeeded reports whether the attempt verified on chain.
func (r AttemptResult) Succeeded() bool {
	return r.Err == nil && r.Stage == domain.StageDone
}

// Observer receives executor checkpoints. Implementations must be safe for
// concurrent use because sells for different trades run in parallel.
type Observer interface {
	AttemptStarted(a Attempt)
	AttemptFinished(a Attempt, r AttemptResult)
	SellFinished(trade *domain.TradeInfo, o domain.SellOutcome)
}

// NopObserver ignores all checkpoints.
type NopObserver struct{}

func (NopObserver) AttemptStarted(Attempt)                           {}
func (NopObserver) AttemptFinished(Attempt, AttemptResult)           {}
func (NopObserver) SellFinished(*domain.TradeInfo, domain.SellOutcome) {}

// MultiObserver fans checkpoints out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) AttemptStarted(a Attempt) {
	for _, o := range m {
		o.AttemptStarted(a)
	}
}

func (m MultiObserver) AttemptFinished(a Attempt, r AttemptResult) {
	for _, o := range m {
		o.AttemptFinished(a, r)
	}
}

func (m MultiObserver) SellFinished(trade *domain.TradeInfo, out domain.SellOutcome) {
	for _, o := range m {
		o.SellFinished(trade, out)
	}
}
