package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods used by the ledger gateway.
type RPCClient interface {
	// GetTokenLargestAccounts returns the largest token accounts of a mint (at most 20, RPC limit).
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTokenAccountsByMint scans every token account of a mint via getProgramAccounts.
	GetTokenAccountsByMint(ctx context.Context, mint string) ([]TokenAccount, error)

	// GetTokenAccounts resolves parsed token accounts. Missing accounts are nil entries.
	GetTokenAccounts(ctx context.Context, addresses []string) ([]*TokenAccount, error)

	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a parsed transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a parsed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
	// ProgramIDs lists invoked programs in instruction order (outer, then inner).
	ProgramIDs []string
}
