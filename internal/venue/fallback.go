package venue

import (
	"context"
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/jupiter"
	"solana-exit-engine/internal/solana"
)

// Quoter is the quote-and-route service backing the fallback venue.
type Quoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*jupiter.Quote, error)
	GetSwapTransaction(ctx context.Context, quote *jupiter.Quote, payer, source, destination string) (*jupiter.SwapTransaction, error)
}

// Broadcaster sends a transaction and waits for confirmation.
type Broadcaster interface {
	SendAndConfirmTransaction(ctx context.Context, tx *sol.Transaction) (string, error)
}

// FallbackClient sells through the aggregator, which picks the route and
// assembles the transaction.
type FallbackClient struct {
	signer      Signer
	balances    BalanceReader
	quoter      Quoter
	broadcaster Broadcaster
}

var _ Client = (*FallbackClient)(nil)

// NewFallbackClient creates the aggregator venue client.
func NewFallbackClient(signer Signer, balances BalanceReader, quoter Quoter, broadcaster Broadcaster) *FallbackClient {
	return &FallbackClient{signer: signer, balances: balances, quoter: quoter, broadcaster: broadcaster}
}

// Name implements Client.
func (c *FallbackClient) Name() string { return NameFallback }

// BuildSell implements Client. Placeholder trades are accepted because the
// aggregator prices the sell itself.
func (c *FallbackClient) BuildSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) (*SellPlan, error) {
	plan, err := c.buildSell(ctx, trade, cfg)
	if err != nil {
		return nil, &BuildError{Venue: NameFallback, Err: err}
	}
	return plan, nil
}

func (c *FallbackClient) buildSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) (*SellPlan, error) {
	if trade == nil {
		return nil, fmt.Errorf("%w: no trade", ErrInvalidMint)
	}
	mint, err := sol.PublicKeyFromBase58(trade.Mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMint, trade.Mint, err)
	}

	owner := c.signer.PublicKey()
	source, err := solana.FindAssociatedTokenAddress(owner, mint, sol.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}
	destination, err := solana.FindAssociatedTokenAddress(owner, sol.WrappedSol, sol.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive wsol account: %w", err)
	}

	balance, err := c.balances.GetTokenAccountBalance(ctx, source.String())
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", source, err)
	}
	amount := SellAmount(balance, cfg.AmountFraction)
	if amount == 0 {
		return nil, ErrNoBalance
	}

	quote, err := c.quoter.GetQuote(ctx, trade.Mint, sol.WrappedSol.String(), amount, cfg.SlippageBps)
	if err != nil {
		return nil, &QuoteError{InputMint: trade.Mint, Amount: amount, Err: err}
	}

	swap, err := c.quoter.GetSwapTransaction(ctx, quote, owner.String(), source.String(), destination.String())
	if err != nil {
		return nil, &RouteError{Err: err}
	}
	tx, err := decodeTransaction(swap.SwapTransaction)
	if err != nil {
		return nil, &RouteError{Err: err}
	}

	minOut, _ := quote.OutAmountUint()
	return &SellPlan{
		Venue:       NameFallback,
		Signer:      owner,
		Mint:        trade.Mint,
		Transaction: tx,
		Amount:      amount,
		MinOut:      minOut,
	}, nil
}

// Submit implements Client. A non-zero anchor replaces the blockhash chosen by the aggregator.
func (c *FallbackClient) Submit(ctx context.Context, plan *SellPlan, anchor sol.Hash) (string, error) {
	sig, err := c.submit(ctx, plan, anchor)
	if err != nil {
		return "", &SubmitError{Venue: NameFallback, Err: err}
	}
	return sig, nil
}

func (c *FallbackClient) submit(ctx context.Context, plan *SellPlan, anchor sol.Hash) (string, error) {
	if plan == nil || plan.Transaction == nil {
		return "", fmt.Errorf("sell plan has no transaction")
	}
	tx := plan.Transaction
	if anchor != (sol.Hash{}) {
		tx.Message.RecentBlockhash = anchor
	}
	if err := c.signer.Sign(tx); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.broadcaster.SendAndConfirmTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	if sig == "" {
		return "", ErrNoSignature
	}
	return sig, nil
}

func decodeTransaction(encoded string) (*sol.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := sol.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("parse swap transaction: %w", err)
	}
	return tx, nil
}
