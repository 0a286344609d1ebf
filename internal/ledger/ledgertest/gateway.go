// Package ledgertest provides a testify mock of ledger.Gateway.
package ledgertest

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"solana-holder-tracker/internal/ledger"
)

// Gateway is a mock ledger.Gateway.
type Gateway struct {
	mock.Mock
}

var _ ledger.Gateway = (*Gateway)(nil)

// FetchTopHolders implements ledger.Gateway.
func (g *Gateway) FetchTopHolders(ctx context.Context, mint string, limit int) ([]ledger.RawHolder, error) {
	args := g.Called(ctx, mint, limit)
	holders, _ := args.Get(0).([]ledger.RawHolder)
	return holders, args.Error(1)
}

// FetchNativeBalance implements ledger.Gateway.
func (g *Gateway) FetchNativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	args := g.Called(ctx, address)
	bal, _ := args.Get(0).(decimal.Decimal)
	return bal, args.Error(1)
}

// FetchRecentTransactions implements ledger.Gateway.
func (g *Gateway) FetchRecentTransactions(ctx context.Context, address string, limit int) ([]ledger.RawTransaction, error) {
	args := g.Called(ctx, address, limit)
	txs, _ := args.Get(0).([]ledger.RawTransaction)
	return txs, args.Error(1)
}

// FetchTransaction implements ledger.Gateway.
func (g *Gateway) FetchTransaction(ctx context.Context, signature string) (*ledger.RawTransaction, error) {
	args := g.Called(ctx, signature)
	tx, _ := args.Get(0).(*ledger.RawTransaction)
	return tx, args.Error(1)
}
