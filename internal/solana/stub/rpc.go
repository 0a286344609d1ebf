// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"sync"

	"solana-holder-tracker/internal/solana"
)

// RPCClient implements solana.RPCClient from in-memory fixtures.
// Setting an entry in Errors makes the named method fail with that error.
type RPCClient struct {
	mu sync.RWMutex

	LargestAccounts map[string][]solana.TokenAccountBalance
	MintAccounts    map[string][]solana.TokenAccount
	TokenAccounts   map[string]*solana.TokenAccount
	Balances        map[string]uint64
	Signatures      map[string][]solana.SignatureInfo
	Transactions    map[string]*solana.Transaction

	// Errors maps method name (e.g. "GetBalance") to a forced error.
	Errors map[string]error
	// AddressErrors maps an address or signature to a forced error on any method.
	AddressErrors map[string]error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		LargestAccounts: make(map[string][]solana.TokenAccountBalance),
		MintAccounts:    make(map[string][]solana.TokenAccount),
		TokenAccounts:   make(map[string]*solana.TokenAccount),
		Balances:        make(map[string]uint64),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Transactions:    make(map[string]*solana.Transaction),
		Errors:          make(map[string]error),
		AddressErrors:   make(map[string]error),
		calls:           make(map[string]int),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

func (c *RPCClient) record(method, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if err := c.Errors[method]; err != nil {
		return err
	}
	return c.AddressErrors[key]
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[method]
}

// GetTokenLargestAccounts returns the fixture for mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if err := c.record("GetTokenLargestAccounts", mint); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LargestAccounts[mint], nil
}

// GetTokenAccountsByMint returns the fixture for mint.
func (c *RPCClient) GetTokenAccountsByMint(_ context.Context, mint string) ([]solana.TokenAccount, error) {
	if err := c.record("GetTokenAccountsByMint", mint); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MintAccounts[mint], nil
}

// GetTokenAccounts returns index-aligned fixtures; unknown addresses are nil.
func (c *RPCClient) GetTokenAccounts(_ context.Context, addresses []string) ([]*solana.TokenAccount, error) {
	if err := c.record("GetTokenAccounts", ""); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*solana.TokenAccount, len(addresses))
	for i, addr := range addresses {
		out[i] = c.TokenAccounts[addr]
	}
	return out, nil
}

// GetBalance returns the lamport fixture for address (0 when unknown).
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	if err := c.record("GetBalance", address); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Balances[address], nil
}

// GetSignaturesForAddress returns signatures for address, honoring opts.Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.record("GetSignaturesForAddress", address); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction returns the fixture for signature, or nil when unknown.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.record("GetTransaction", signature); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Transactions[signature], nil
}

// AddTransaction stores tx and lists its signature under each address.
func (c *RPCClient) AddTransaction(tx *solana.Transaction, addresses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
	for _, addr := range addresses {
		bt := tx.BlockTime
		c.Signatures[addr] = append(c.Signatures[addr], solana.SignatureInfo{
			Signature: tx.Signature,
			Slot:      tx.Slot,
			BlockTime: &bt,
		})
	}
}

// AddTokenAccount registers a token account owned by owner.
func (c *RPCClient) AddTokenAccount(acct solana.TokenAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := acct
	c.TokenAccounts[acct.Address] = &a
	c.MintAccounts[acct.Mint] = append(c.MintAccounts[acct.Mint], acct)
	c.LargestAccounts[acct.Mint] = append(c.LargestAccounts[acct.Mint], solana.TokenAccountBalance{
		Address: acct.Address,
		Amount:  acct.Amount,
	})
}
