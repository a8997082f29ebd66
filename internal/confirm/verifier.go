// Package confirm polls the ledger until a submitted signature is confirmed.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-exit-engine/internal/solana"
)

// DefaultInterval is the wait between status queries.
const DefaultInterval = 2 * time.Second

// ErrVerificationTimeout matches any *TimeoutError.
var ErrVerificationTimeout = errors.New("verification timeout")

// TimeoutError reports that the signature never reached Confirmed within the budget.
type TimeoutError struct {
	Signature string
	Attempts  int
	LastErr   error // last query error, if any
}

func (e *TimeoutError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("transaction %s not confirmed after %d attempts (last error: %v)", e.Signature, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("transaction %s not confirmed after %d attempts", e.Signature, e.Attempts)
}

// Is makes errors.Is(err, ErrVerificationTimeout) hold.
func (e *TimeoutError) Is(target error) bool { return target == ErrVerificationTimeout }

// TransactionFailedError reports a signature that landed with an execution error.
type TransactionFailedError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed on chain: %v", e.Signature, e.Err)
}

// StatusQuerier reads signature statuses.
type StatusQuerier interface {
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*solana.SignatureStatus, error)
}

// PollFunc is notified after every status query.
type PollFunc func(attempt int, status *solana.SignatureStatus, err error)

// Verifier polls signature status with a fixed interval.
type Verifier struct {
	rpc      StatusQuerier
	interval time.Duration
	onPoll   PollFunc
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithInterval sets the wait between queries.
func WithInterval(d time.Duration) Option {
	return func(v *Verifier) { v.interval = d }
}

// WithPollFunc registers a callback invoked after each query.
func WithPollFunc(fn PollFunc) Option {
	return func(v *Verifier) { v.onPoll = fn }
}

// NewVerifier creates a verifier.
func NewVerifier(rpc StatusQuerier, opts ...Option) *Verifier {
	v := &Verifier{rpc: rpc, interval: DefaultInterval}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify queries the status of signature up to maxAttempts times. It returns
// true once the status is Confirmed or Finalized, false with a
// *TransactionFailedError if the transaction landed with an error, and a
// *TimeoutError once attempts run out. There is no wait after the last query.
func (v *Verifier) Verify(ctx context.Context, signature string, maxAttempts int) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := v.query(ctx, signature)
		if v.onPoll != nil {
			v.onPoll(attempt, status, err)
		}

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err
		case status != nil && status.Err != nil:
			return false, &TransactionFailedError{Signature: signature, Err: status.Err}
		case status.IsConfirmed():
			return true, nil
		}

		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(v.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	return false, &TimeoutError{Signature: signature, Attempts: maxAttempts, LastErr: lastErr}
}

func (v *Verifier) query(ctx context.Context, signature string) (*solana.SignatureStatus, error) {
	statuses, err := v.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}
