package venue

import (
	"context"
	"encoding/binary"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/solana"
)

// Launchpad program accounts.
const (
	DefaultLaunchpadProgram = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"
	DefaultGlobalConfig     = "6s1xP3hpbAfFoNtUNF8mfHsjr2Bd97JxFJRWLbL6aHuX"
	DefaultPlatformConfig   = "FfYek5vEz23cMkWsdJwG2oa6EphsvXSHrGpdALN4g6W1"

	// DefaultTradeFeeBps is the curve trade fee deducted from sell proceeds.
	DefaultTradeFeeBps = 25
)

// PDA seeds.
var (
	seedPool           = []byte("pool")
	seedPoolVault      = []byte("pool_vault")
	seedVaultAuthority = []byte("vault_auth_seed")
	seedEventAuthority = []byte("__event_authority")

	sellExactInDiscriminator = []byte{149, 39, 222, 155, 211, 124, 152, 26}
)

// ComputeBudgetProgramID is the compute budget program.
var ComputeBudgetProgramID = sol.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// PrimaryConfig identifies the launchpad deployment.
type PrimaryConfig struct {
	ProgramID      sol.PublicKey
	GlobalConfig   sol.PublicKey
	PlatformConfig sol.PublicKey
	TradeFeeBps    uint64
	ShareFeeRate   uint64
}

// DefaultPrimaryConfig returns the mainnet launchpad deployment.
func DefaultPrimaryConfig() PrimaryConfig {
	return PrimaryConfig{
		ProgramID:      sol.MustPublicKeyFromBase58(DefaultLaunchpadProgram),
		GlobalConfig:   sol.MustPublicKeyFromBase58(DefaultGlobalConfig),
		PlatformConfig: sol.MustPublicKeyFromBase58(DefaultPlatformConfig),
		TradeFeeBps:    DefaultTradeFeeBps,
	}
}

// Relay submits signed transactions through a low-latency channel.
type Relay interface {
	SendTransaction(ctx context.Context, tx *sol.Transaction) ([]string, error)
	// TipInstruction returns the relay tip transfer, or nil when none is needed.
	TipInstruction(from sol.PublicKey) sol.Instruction
}

// PrimaryClient sells directly against the launchpad bonding curve.
type PrimaryClient struct {
	cfg      PrimaryConfig
	signer   Signer
	balances BalanceReader
	relay    Relay
}

var _ Client = (*PrimaryClient)(nil)

// NewPrimaryClient creates the launchpad venue client.
func NewPrimaryClient(cfg PrimaryConfig, signer Signer, balances BalanceReader, relay Relay) *PrimaryClient {
	return &PrimaryClient{cfg: cfg, signer: signer, balances: balances, relay: relay}
}

// Name implements Client.
func (c *PrimaryClient) Name() string { return NamePrimary }

// launchpadAccounts are the accounts of a sell_exact_in call.
type launchpadAccounts struct {
	pool, authority, eventAuthority sol.PublicKey
	baseVault, quoteVault           sol.PublicKey
	userBase, userQuote             sol.PublicKey
	baseMint, quoteMint             sol.PublicKey
}

func (c *PrimaryClient) deriveAccounts(trade *domain.TradeInfo, owner sol.PublicKey) (*launchpadAccounts, error) {
	mint, err := sol.PublicKeyFromBase58(trade.Mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMint, trade.Mint, err)
	}
	a := &launchpadAccounts{baseMint: mint, quoteMint: sol.WrappedSol}
	program := c.cfg.ProgramID

	if trade.PoolID != "" {
		if a.pool, err = sol.PublicKeyFromBase58(trade.PoolID); err != nil {
			return nil, fmt.Errorf("parse pool %s: %w", trade.PoolID, err)
		}
	} else if a.pool, _, err = solana.FindProgramAddress([][]byte{seedPool, mint[:], a.quoteMint[:]}, program); err != nil {
		return nil, fmt.Errorf("derive pool: %w", err)
	}

	steps := []struct {
		dst   *sol.PublicKey
		seeds [][]byte
		what  string
	}{
		{&a.authority, [][]byte{seedVaultAuthority}, "vault authority"},
		{&a.eventAuthority, [][]byte{seedEventAuthority}, "event authority"},
		{&a.baseVault, [][]byte{seedPoolVault, a.pool[:], mint[:]}, "base vault"},
		{&a.quoteVault, [][]byte{seedPoolVault, a.pool[:], a.quoteMint[:]}, "quote vault"},
	}
	for _, s := range steps {
		if *s.dst, _, err = solana.FindProgramAddress(s.seeds, program); err != nil {
			return nil, fmt.Errorf("derive %s: %w", s.what, err)
		}
	}

	if a.userBase, err = solana.FindAssociatedTokenAddress(owner, mint, sol.TokenProgramID); err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}
	if a.userQuote, err = solana.FindAssociatedTokenAddress(owner, a.quoteMint, sol.TokenProgramID); err != nil {
		return nil, fmt.Errorf("derive wsol account: %w", err)
	}
	return a, nil
}

// BuildSell implements Client.
func (c *PrimaryClient) BuildSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) (*SellPlan, error) {
	plan, err := c.buildSell(ctx, trade, cfg)
	if err != nil {
		return nil, &BuildError{Venue: NamePrimary, Err: err}
	}
	return plan, nil
}

func (c *PrimaryClient) buildSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) (*SellPlan, error) {
	if trade == nil {
		return nil, ErrMissingReserves
	}
	if trade.IsPlaceholder() {
		return nil, ErrLowConfidence
	}
	if trade.VirtualTokenReserves == 0 || trade.VirtualSolReserves == 0 {
		return nil, ErrMissingReserves
	}

	owner := c.signer.PublicKey()
	accts, err := c.deriveAccounts(trade, owner)
	if err != nil {
		return nil, err
	}

	balance, err := c.balances.GetTokenAccountBalance(ctx, accts.userBase.String())
	if err != nil {
		return nil, fmt.Errorf("read balance of %s: %w", accts.userBase, err)
	}
	amount := SellAmount(balance, cfg.AmountFraction)
	if amount == 0 {
		return nil, ErrNoBalance
	}
	minOut := MinimumOut(amount, trade.VirtualTokenReserves, trade.VirtualSolReserves, c.cfg.TradeFeeBps, uint64(cfg.SlippageBps))

	instrs := []sol.Instruction{
		setComputeUnitLimit(cfg.ComputeUnitLimit),
		setComputeUnitPrice(cfg.PriorityFeeMicroLamports),
		createIdempotentATA(owner, accts.userQuote, owner, accts.quoteMint),
		c.sellExactIn(owner, accts, amount, minOut),
		token.NewCloseAccountInstruction(accts.userQuote, owner, owner, nil).Build(),
	}
	if c.relay != nil {
		if tip := c.relay.TipInstruction(owner); tip != nil {
			instrs = append(instrs, tip)
		}
	}

	return &SellPlan{
		Venue:        NamePrimary,
		Signer:       owner,
		Mint:         trade.Mint,
		Instructions: instrs,
		Amount:       amount,
		MinOut:       minOut,
	}, nil
}

// Submit implements Client.
func (c *PrimaryClient) Submit(ctx context.Context, plan *SellPlan, anchor sol.Hash) (string, error) {
	sig, err := c.submit(ctx, plan, anchor)
	if err != nil {
		return "", &SubmitError{Venue: NamePrimary, Err: err}
	}
	return sig, nil
}

func (c *PrimaryClient) submit(ctx context.Context, plan *SellPlan, anchor sol.Hash) (string, error) {
	if plan == nil || len(plan.Instructions) == 0 {
		return "", fmt.Errorf("empty sell plan")
	}
	tx, err := sol.NewTransaction(plan.Instructions, anchor, sol.TransactionPayer(plan.Signer))
	if err != nil {
		return "", fmt.Errorf("assemble transaction: %w", err)
	}
	if err := c.signer.Sign(tx); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sigs, err := c.relay.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	if len(sigs) == 0 || sigs[0] == "" {
		return "", ErrNoSignature
	}
	return sigs[0], nil
}

func (c *PrimaryClient) sellExactIn(owner sol.PublicKey, a *launchpadAccounts, amountIn, minOut uint64) sol.Instruction {
	data := make([]byte, 0, 32)
	data = append(data, sellExactInDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, amountIn)
	data = binary.LittleEndian.AppendUint64(data, minOut)
	data = binary.LittleEndian.AppendUint64(data, c.cfg.ShareFeeRate)

	accounts := sol.AccountMetaSlice{
		sol.NewAccountMeta(owner, false, true),
		sol.NewAccountMeta(a.authority, false, false),
		sol.NewAccountMeta(c.cfg.GlobalConfig, false, false),
		sol.NewAccountMeta(c.cfg.PlatformConfig, false, false),
		sol.NewAccountMeta(a.pool, true, false),
		sol.NewAccountMeta(a.userBase, true, false),
		sol.NewAccountMeta(a.userQuote, true, false),
		sol.NewAccountMeta(a.baseVault, true, false),
		sol.NewAccountMeta(a.quoteVault, true, false),
		sol.NewAccountMeta(a.baseMint, false, false),
		sol.NewAccountMeta(a.quoteMint, false, false),
		sol.NewAccountMeta(sol.TokenProgramID, false, false),
		sol.NewAccountMeta(sol.TokenProgramID, false, false),
		sol.NewAccountMeta(a.eventAuthority, false, false),
		sol.NewAccountMeta(c.cfg.ProgramID, false, false),
	}
	return sol.NewInstruction(c.cfg.ProgramID, accounts, data)
}

func setComputeUnitLimit(units uint32) sol.Instruction {
	data := binary.LittleEndian.AppendUint32([]byte{2}, units)
	return sol.NewInstruction(ComputeBudgetProgramID, sol.AccountMetaSlice{}, data)
}

func setComputeUnitPrice(microLamports uint64) sol.Instruction {
	data := binary.LittleEndian.AppendUint64([]byte{3}, microLamports)
	return sol.NewInstruction(ComputeBudgetProgramID, sol.AccountMetaSlice{}, data)
}

// createIdempotentATA creates ata for owner and mint unless it already exists.
func createIdempotentATA(payer, ata, owner, mint sol.PublicKey) sol.Instruction {
	accounts := sol.AccountMetaSlice{
		sol.NewAccountMeta(payer, true, true),
		sol.NewAccountMeta(ata, true, false),
		sol.NewAccountMeta(owner, false, false),
		sol.NewAccountMeta(mint, false, false),
		sol.NewAccountMeta(sol.SystemProgramID, false, false),
		sol.NewAccountMeta(sol.TokenProgramID, false, false),
	}
	return sol.NewInstruction(sol.SPLAssociatedTokenAccountProgramID, accounts, []byte{1})
}
