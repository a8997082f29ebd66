package solana

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
)

// RPCClient defines the Solana RPC HTTP calls used by the engine.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignatureStatuses returns one status per signature; nil entries are not yet observed.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetLatestBlockhash returns the most recent blockhash at confirmed commitment.
	GetLatestBlockhash(ctx context.Context) (sol.Hash, error)

	// GetTokenAccountBalance returns the raw token amount held by a token account.
	GetTokenAccountBalance(ctx context.Context, account string) (uint64, error)

	// SendTransaction broadcasts a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, tx *sol.Transaction, opts SendOptions) (string, error)
}

// Transaction represents a Solana transaction update.
type Transaction struct {
	Slot       int64
	Signature  string
	BlockTime  int64 // Unix timestamp (seconds), 0 if unknown
	ReceivedAt int64 // Unix timestamp (ms) when the update was received
	Meta       *TransactionMeta
	Message    *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	InnerInstructions []InnerInstructionSet
}

// TransactionMessage contains parsed transaction message.
// AccountKeys includes address-table loaded keys after the static keys.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is a pre/post token balance snapshot entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw amount as decimal string
	Decimals     uint8
}

// InnerInstructionSet holds instructions invoked by one top-level instruction.
type InnerInstructionSet struct {
	Index        int
	Instructions []CompiledInstruction
}

// CompiledInstruction is an instruction referencing accounts by index.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte
}

// ConfirmationStatus is the ledger-reported durability level of a transaction.
type ConfirmationStatus string

// Confirmation levels.
const (
	StatusProcessed ConfirmationStatus = "processed"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFinalized ConfirmationStatus = "finalized"
)

// SignatureStatus is the status of one submitted signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once rooted
	Err                interface{}
	ConfirmationStatus ConfirmationStatus
}

// IsConfirmed reports whether the status is Confirmed or Finalized.
func (s *SignatureStatus) IsConfirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == StatusConfirmed || s.ConfirmationStatus == StatusFinalized
}

// SendOptions configures sendTransaction.
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    *uint
}
