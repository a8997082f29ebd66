package stub

import (
	"context"
	"errors"
	"sync"

	sol "github.com/gagliardetto/solana-go"

	"solana-exit-engine/internal/solana"
)

// ErrNotFound is returned when a token account has no configured balance.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. It is safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Balances     map[string]uint64

	// Statuses holds a per-signature sequence; each query consumes one entry and
	// the last entry repeats. A nil entry means "not yet observed".
	Statuses    map[string][]*solana.SignatureStatus
	StatusErr   error
	StatusCalls map[string]int

	Blockhash    sol.Hash
	BlockhashErr error

	SendErr error
	Sent    []*sol.Transaction
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Balances:     make(map[string]uint64),
		Statuses:     make(map[string][]*solana.SignatureStatus),
		StatusCalls:  make(map[string]int),
	}
}

// GetTransaction returns the stored transaction, or nil if unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}

// GetSignatureStatuses consumes the next configured status for each signature.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sig := range signatures {
		c.StatusCalls[sig]++
	}
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		seq := c.Statuses[sig]
		if len(seq) == 0 {
			continue
		}
		idx := c.StatusCalls[sig] - 1
		if idx >= len(seq) {
			idx = len(seq) - 1
		}
		out[i] = seq[idx]
	}
	return out, nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(context.Context) (sol.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockhashErr != nil {
		return sol.Hash{}, c.BlockhashErr
	}
	return c.Blockhash, nil
}

// GetTokenAccountBalance returns the configured balance for account.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := c.Balances[account]
	if !ok {
		return 0, ErrNotFound
	}
	return amount, nil
}

// SendTransaction records tx and returns its first signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx *sol.Transaction, _ solana.SendOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, tx)
	if len(tx.Signatures) == 0 {
		return "", errors.New("transaction not signed")
	}
	return tx.Signatures[0].String(), nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// SetStatuses configures the status sequence returned for signature.
func (c *RPCClient) SetStatuses(signature string, seq ...*solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = seq
}

// StatusQueries returns how many times signature was queried.
func (c *RPCClient) StatusQueries(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.StatusCalls[signature]
}

// SetBalance configures the balance of a token account.
func (c *RPCClient) SetBalance(account string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = amount
}

// SentTransactions returns the transactions submitted so far.
func (c *RPCClient) SentTransactions() []*sol.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sol.Transaction(nil), c.Sent...)
}
