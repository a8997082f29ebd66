// Package executor runs a sell against the primary venue with bounded retries
// and falls back to the aggregator venue once those are exhausted.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/venue"
)

// Defaults.
const (
	DefaultMaxPrimaryAttempts = 3
	DefaultRetryDelay         = 2 * time.Second
	DefaultVerifyAttempts     = 3
)

var (
	// ErrNotVerified is recorded when verification ends without confirmation or error.
	ErrNotVerified = errors.New("transaction not verified")
	// ErrNoTrade is recorded when ExecuteSell is called without a trade.
	ErrNoTrade = errors.New("no trade to sell")
	// ErrNoFallback is recorded when the primary venue is exhausted and no fallback exists.
	ErrNoFallback = errors.New("no fallback venue configured")
)

// SignatureVerifier confirms that a submitted signature landed.
type SignatureVerifier interface {
	Verify(ctx context.Context, signature string, maxAttempts int) (bool, error)
}

// BlockhashSource provides the recent blockhash each submission is anchored to.
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (sol.Hash, error)
}

// Options for creating an Executor.
type Options struct {
	// Required
	Primary   venue.Client
	Verifier  SignatureVerifier
	Blockhash BlockhashSource

	Fallback venue.Client
	Observer Observer

	MaxPrimaryAttempts int           // default 3
	RetryDelay         time.Duration // wait between primary attempts; default 2s
	VerifyAttempts     int           // status queries per submission; default 3
}

// Executor drives sells through the venue state machine.
// It holds no per-sell state and is safe for concurrent use.
type Executor struct {
	primary   venue.Client
	fallback  venue.Client
	verifier  SignatureVerifier
	blockhash BlockhashSource
	observer  Observer

	maxPrimaryAttempts int
	retryDelay         time.Duration
	verifyAttempts     int

	now   func() time.Time
	newID func() string
}

// New creates an Executor.
func New(opts Options) *Executor {
	e := &Executor{
		primary:            opts.Primary,
		fallback:           opts.Fallback,
		verifier:           opts.Verifier,
		blockhash:          opts.Blockhash,
		observer:           opts.Observer,
		maxPrimaryAttempts: opts.MaxPrimaryAttempts,
		retryDelay:         opts.RetryDelay,
		verifyAttempts:     opts.VerifyAttempts,
		now:                time.Now,
		newID:              uuid.NewString,
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	if e.maxPrimaryAttempts <= 0 {
		e.maxPrimaryAttempts = DefaultMaxPrimaryAttempts
	}
	if e.retryDelay <= 0 {
		e.retryDelay = DefaultRetryDelay
	}
	if e.verifyAttempts <= 0 {
		e.verifyAttempts = DefaultVerifyAttempts
	}
	return e
}

// ExecuteSell sells the position referenced by trade. Up to MaxPrimaryAttempts
// build/submit/verify passes run against the primary venue with RetryDelay
// between them; after the last one fails, a single attempt runs against the
// fallback venue. The outcome always describes the run; ExecuteSell never
// returns an error.
func (e *Executor) ExecuteSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) domain.SellOutcome {
	started := e.now()
	out := domain.SellOutcome{
		ID:        e.newID(),
		StartedAt: started,
	}

	var (
		state     = StateTryingPrimary
		attempts  int
		lastErr   error
		signature string
	)

	if trade == nil {
		lastErr = ErrNoTrade
		state = StateFailed
	}

	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			lastErr = err
			state = StateFailed
			break
		}

		client := e.primary
		number := 1
		if state == StateTryingPrimary {
			attempts++
			number = attempts
		} else {
			out.UsedFallbackVenue = true
			client = e.fallback
		}

		if client == nil {
			// only the fallback may be absent
			lastErr = ErrNoFallback
			state = StateFailed
			break
		}
		out.Venue = client.Name()

		a := Attempt{
			SellID:    out.ID,
			Venue:     client.Name(),
			Number:    number,
			Mint:      trade.Mint,
			StartedAt: e.now(),
		}
		e.observer.AttemptStarted(a)
		res := e.attempt(ctx, client, trade, cfg)
		res.Duration = e.now().Sub(a.StartedAt)
		e.observer.AttemptFinished(a, res)

		ok := res.Succeeded()
		if ok {
			signature = res.Signature
		} else {
			lastErr = res.Err
		}

		next := transition(state, attempts, e.maxPrimaryAttempts, ok)
		if state == StateTryingPrimary && next == StateTryingPrimary {
			if err := e.wait(ctx); err != nil {
				lastErr = err
				next = StateFailed
			}
		}
		state = next
	}

	out.AttemptCount = attempts
	out.Success = state == StateSucceeded
	if out.Success {
		out.Signature = &signature
	} else if lastErr != nil {
		out.Error = lastErr.Error()
	}
	out.Duration = e.now().Sub(started)

	e.observer.SellFinished(trade, out)
	return out
}

// attempt runs one build, submit and verify pass against client.
func (e *Executor) attempt(ctx context.Context, client venue.Client, trade *domain.TradeInfo, cfg domain.SellConfig) AttemptResult {
	plan, err := client.BuildSell(ctx, trade, cfg)
	if err != nil {
		return AttemptResult{Stage: domain.StageBuild, Err: err}
	}

	anchor, err := e.blockhash.LatestBlockhash(ctx)
	if err != nil {
		return AttemptResult{
			Stage: domain.StageSubmit,
			Err:   &venue.SubmitError{Venue: client.Name(), Err: fmt.Errorf("fetch blockhash: %w", err)},
		}
	}

	sig, err := client.Submit(ctx, plan, anchor)
	if err != nil {
		return AttemptResult{Stage: domain.StageSubmit, Err: err}
	}

	confirmed, err := e.verifier.Verify(ctx, sig, e.verifyAttempts)
	if err != nil {
		return AttemptResult{Stage: domain.StageVerify, Signature: sig, Err: err}
	}
	if !confirmed {
		return AttemptResult{Stage: domain.StageVerify, Signature: sig, Err: ErrNotVerified}
	}
	return AttemptResult{Stage: domain.StageDone, Signature: sig}
}

func (e *Executor) wait(ctx context.Context) error {
	if e.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
