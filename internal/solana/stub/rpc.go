package stub

import (
	"context"
	"errors"
	"sync"

	"pump-sniper/internal/solana"
)

// ErrNotFound is returned by GetTransaction when NotFoundIsError is set.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Accounts     map[string]*solana.AccountInfo
	Blockhash    *solana.LatestBlockhash
	Simulation   *solana.SimulateResult

	// Err, when set, is returned by every call.
	Err error

	// Simulated records every transaction passed to SimulateTransaction.
	Simulated [][]byte
	Calls     map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Accounts:     make(map[string]*solana.AccountInfo),
		Blockhash: &solana.LatestBlockhash{
			Blockhash:            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			LastValidBlockHeight: 1000,
		},
		Simulation: &solana.SimulateResult{},
		Calls:      make(map[string]int),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

func (c *RPCClient) record(method string) error {
	c.Calls[method]++
	return c.Err
}

// GetTransaction returns a stored transaction, or nil if unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getTransaction"); err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetAccountInfo returns a stored account, or nil if unknown.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("getLatestBlockhash"); err != nil {
		return nil, err
	}
	if c.Blockhash == nil {
		return nil, ErrNotFound
	}
	bh := *c.Blockhash
	return &bh, nil
}

// SimulateTransaction records the transaction and returns the configured result.
func (c *RPCClient) SimulateTransaction(_ context.Context, tx []byte) (*solana.SimulateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("simulateTransaction"); err != nil {
		return nil, err
	}
	c.Simulated = append(c.Simulated, append([]byte(nil), tx...))
	sim := *c.Simulation
	return &sim, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}
