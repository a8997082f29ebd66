// Package venue builds and submits sell transactions against execution venues.
package venue

import (
	"context"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"solana-exit-engine/internal/domain"
)

// Venue names.
const (
	NamePrimary  = "raydium_launchpad"
	NameFallback = "jupiter"
)

// Sentinel causes carried inside BuildError and SubmitError.
var (
	ErrInvalidMint     = errors.New("invalid mint")
	ErrMissingReserves = errors.New("trade has no usable reserves")
	ErrNoBalance       = errors.New("no token balance to sell")
	ErrLowConfidence   = errors.New("trade carries placeholder economics")
	ErrNoSignature     = errors.New("no signature returned")
)

// Client builds and submits sells for one venue.
type Client interface {
	Name() string
	// BuildSell constructs the sell for trade. Failures are *BuildError.
	BuildSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) (*SellPlan, error)
	// Submit signs the plan against anchor and broadcasts it. Failures are *SubmitError.
	Submit(ctx context.Context, plan *SellPlan, anchor sol.Hash) (string, error)
}

// SellPlan is a built sell ready for submission.
type SellPlan struct {
	Venue  string
	Signer sol.PublicKey
	Mint   string

	// Instructions is set by venues that assemble the transaction locally.
	Instructions []sol.Instruction
	// Transaction is set by venues that receive a prebuilt transaction.
	Transaction *sol.Transaction

	Amount uint64 // raw token amount being sold
	MinOut uint64 // minimum lamports accepted
}

// Signer signs transactions for the wallet selling the position.
type Signer interface {
	PublicKey() sol.PublicKey
	Sign(tx *sol.Transaction) error
}

// BalanceReader reads raw token account balances.
type BalanceReader interface {
	GetTokenAccountBalance(ctx context.Context, account string) (uint64, error)
}

// BuildError reports that a venue could not construct a sell.
type BuildError struct {
	Venue string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: build sell: %v", e.Venue, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// SubmitError reports that a venue rejected or failed to broadcast a sell.
type SubmitError struct {
	Venue string
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: submit sell: %v", e.Venue, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// QuoteError reports that the quote service produced no quote.
type QuoteError struct {
	InputMint string
	Amount    uint64
	Err       error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote %d of %s: %v", e.Amount, e.InputMint, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// RouteError reports that a quote could not be turned into a usable transaction.
type RouteError struct {
	Err error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route: %v", e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	key sol.PrivateKey
}

// NewKeySigner parses a base58 private key.
func NewKeySigner(base58Key string) (*KeySigner, error) {
	key, err := sol.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &KeySigner{key: key}, nil
}

// NewKeySignerFromKey wraps an existing private key.
func NewKeySignerFromKey(key sol.PrivateKey) *KeySigner {
	return &KeySigner{key: key}
}

// PublicKey returns the wallet address.
func (s *KeySigner) PublicKey() sol.PublicKey {
	return s.key.PublicKey()
}

// Sign replaces any existing signatures with the wallet's.
func (s *KeySigner) Sign(tx *sol.Transaction) error {
	pub := s.key.PublicKey()
	tx.Signatures = nil
	_, err := tx.Sign(func(key sol.PublicKey) *sol.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	return err
}
