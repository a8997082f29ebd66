package solana

import (
	"context"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Relay submits signed transactions to a low-latency relay endpoint that speaks
// the sendTransaction JSON-RPC method. Preflight simulation is always skipped.
type Relay struct {
	client     *HTTPClient
	tipAccount *sol.PublicKey
	tipLamport uint64
}

// NewRelay creates a relay client. tipAccount may be empty when the relay needs no tip.
func NewRelay(endpoint, tipAccount string, tipLamports uint64, opts ...ClientOption) (*Relay, error) {
	r := &Relay{
		client:     NewHTTPClient(endpoint, opts...),
		tipLamport: tipLamports,
	}
	if tipAccount != "" {
		pk, err := sol.PublicKeyFromBase58(tipAccount)
		if err != nil {
			return nil, fmt.Errorf("parse relay tip account: %w", err)
		}
		r.tipAccount = &pk
	}
	return r, nil
}

// TipInstruction returns the transfer paying the relay tip, or nil when tipping is disabled.
func (r *Relay) TipInstruction(from sol.PublicKey) sol.Instruction {
	if r.tipAccount == nil || r.tipLamport == 0 {
		return nil
	}
	return system.NewTransferInstruction(r.tipLamport, from, *r.tipAccount).Build()
}

// SendTransaction submits tx and returns the signatures the relay acknowledged.
func (r *Relay) SendTransaction(ctx context.Context, tx *sol.Transaction) ([]string, error) {
	sig, err := r.client.SendTransaction(ctx, tx, SendOptions{SkipPreflight: true})
	if err != nil {
		return nil, fmt.Errorf("relay send: %w", err)
	}
	return []string{sig}, nil
}
