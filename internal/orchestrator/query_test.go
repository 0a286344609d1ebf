package orchestrator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

func storedTx(sig string, dir domain.Direction, protocol string, amount int64) *domain.Transaction {
	return &domain.Transaction{
		Signature: sig,
		Amount:    decimal.NewFromInt(amount),
		Direction: dir,
		Protocol:  protocol,
		Timestamp: fixedNow.UnixMilli(),
		Success:   true,
	}
}

func TestStats_Aggregates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, tx := range []*domain.Transaction{
		storedTx("1", domain.DirectionBuy, "Jupiter", 10),
		storedTx("2", domain.DirectionBuy, "Jupiter", 20),
		storedTx("3", domain.DirectionBuy, "Raydium", 30),
		storedTx("4", domain.DirectionSell, "Raydium", 5),
		storedTx("5", domain.DirectionTransfer, domain.ProtocolUnknown, 0),
	} {
		require.NoError(t, f.txs.Upsert(ctx, tx))
	}

	stats, err := f.orch.Stats(ctx, domain.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalTransactions)
	assert.Equal(t, 3, stats.TotalBuys)
	assert.Equal(t, 1, stats.TotalSells)
	assert.Equal(t, 1, stats.TotalTransfers)
	assert.True(t, decimal.NewFromInt(65).Equal(stats.TotalVolume))
	assert.Equal(t, "up", stats.PriceDirection)
	assert.Equal(t, "bullish", stats.MarketSentiment)
	assert.InDelta(t, 66.666, stats.PriceChange, 0.01)
	assert.Equal(t, testMint, stats.TokenAddress)

	require.Len(t, stats.ProtocolUsage, 3)
	assert.Equal(t, ProtocolCount{Protocol: "Jupiter", Count: 2}, stats.ProtocolUsage[0])
	assert.Equal(t, ProtocolCount{Protocol: "Raydium", Count: 2}, stats.ProtocolUsage[1])
}

func TestStats_Empty(t *testing.T) {
	stats := aggregate(nil, testMint, fixedNow)
	assert.Zero(t, stats.TotalTransactions)
	assert.Zero(t, stats.PriceChange)
	assert.Equal(t, "down", stats.PriceDirection)
	assert.Empty(t, stats.ProtocolUsage)
}

func TestTransactions_RejectsBadFilter(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.Transactions(context.Background(), domain.TransactionFilter{From: 10, To: 5})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = f.orch.Transactions(context.Background(), domain.TransactionFilter{Direction: "swap"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
