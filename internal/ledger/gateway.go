// Package ledger adapts the Solana RPC client to the holder and transaction
// reads the tracker needs.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	// ErrUnavailable is returned when the ledger cannot be reached or refuses a request.
	ErrUnavailable = errors.New("ledger unavailable")
	// ErrTransactionNotFound is returned when a signature is unknown to the ledger.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Gateway supplies raw holder lists and parsed transactions for a token mint.
// Calls may take seconds; callers bound them with ctx.
type Gateway interface {
	// FetchTopHolders returns holders of mint aggregated per owner.
	// Returns an empty list (no error) when the mint has no holders.
	FetchTopHolders(ctx context.Context, mint string, limit int) ([]RawHolder, error)

	// FetchNativeBalance returns the SOL balance of address.
	FetchNativeBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// FetchRecentTransactions returns up to limit recent transactions involving address.
	FetchRecentTransactions(ctx context.Context, address string, limit int) ([]RawTransaction, error)

	// FetchTransaction returns one transaction by signature.
	FetchTransaction(ctx context.Context, signature string) (*RawTransaction, error)
}

// RawHolder is one owner's aggregated token position.
type RawHolder struct {
	Address       string
	TokenAmount   decimal.Decimal
	NativeBalance decimal.Decimal // zero unless the gateway resolved it
	TokenAccounts int             // number of token accounts aggregated
}

// TokenBalance is one pre or post token balance entry of a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       decimal.Decimal
}

// RawTransaction is a parsed ledger transaction.
type RawTransaction struct {
	Signature         string
	BlockTime         int64 // ms
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	// ProgramIDs lists account keys then invoked program ids, deduplicated, in order.
	ProgramIDs []string
	// Err is the ledger's execution error; nil means the transaction succeeded.
	Err interface{}
}
