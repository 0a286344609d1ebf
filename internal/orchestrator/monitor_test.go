package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"solana-holder-tracker/internal/classifier"
	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/ledger"
)

func holderTx(sig, owner string, pre, post int64, programs ...string) ledger.RawTransaction {
	return ledger.RawTransaction{
		Signature: sig,
		BlockTime: fixedNow.UnixMilli(),
		PreTokenBalances: []ledger.TokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: owner, Amount: decimal.NewFromInt(pre)},
		},
		PostTokenBalances: []ledger.TokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: owner, Amount: decimal.NewFromInt(post)},
		},
		ProgramIDs: programs,
	}
}

func seedHolders(t *testing.T, f *fixture, addrs ...string) {
	t.Helper()
	holders := make([]*domain.Holder, len(addrs))
	for i, a := range addrs {
		holders[i] = &domain.Holder{
			Address:     a,
			TokenAmount: decimal.NewFromInt(int64(1000 - i)),
			Rank:        i + 1,
		}
	}
	require.NoError(t, f.holders.ReplaceAll(context.Background(), holders))
}

func TestRunMonitor_PartialFailure(t *testing.T) {
	f := newFixture(t, nil)
	seedHolders(t, f, "A", "B", "C")

	f.gw.On("FetchRecentTransactions", mock.Anything, "A", DefaultMonitorSignatures).
		Return([]ledger.RawTransaction{holderTx("sigA", "A", 500, 300, classifier.RaydiumProgramID)}, nil)
	f.gw.On("FetchRecentTransactions", mock.Anything, "B", DefaultMonitorSignatures).
		Return([]ledger.RawTransaction{holderTx("sigB", "B", 10, 60, classifier.OrcaProgramID)}, nil)
	f.gw.On("FetchRecentTransactions", mock.Anything, "C", DefaultMonitorSignatures).
		Return(nil, fmt.Errorf("%w: timeout", ledger.ErrUnavailable))

	result := f.orch.RunMonitor(context.Background())
	assert.Equal(t, 3, result.Addresses)
	assert.Equal(t, 1, result.FailedAddresses)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Recorded)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "C:")

	sell, err := f.txs.Get(context.Background(), "sigA")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionSell, sell.Direction)
	assert.True(t, decimal.NewFromInt(200).Equal(sell.Amount))
	assert.Equal(t, "Raydium", sell.Protocol)
	assert.Equal(t, "A", sell.WalletAddress)

	buy, err := f.txs.Get(context.Background(), "sigB")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionBuy, buy.Direction)
	assert.Equal(t, "Orca", buy.Protocol)
}

func TestRunMonitor_SkipsUntrackedAndIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	seedHolders(t, f, "A")

	other := holderTx("sigOther", "A", 1, 2)
	other.PreTokenBalances[0].Mint = "Other"
	other.PostTokenBalances[0].Mint = "Other"

	f.gw.On("FetchRecentTransactions", mock.Anything, "A", DefaultMonitorSignatures).
		Return([]ledger.RawTransaction{holderTx("sig1", "A", 5, 5), other}, nil)

	first := f.orch.RunMonitor(context.Background())
	second := f.orch.RunMonitor(context.Background())
	assert.Equal(t, 1, first.Recorded)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, first.Recorded, second.Recorded)

	all, err := f.orch.Transactions(context.Background(), domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.DirectionTransfer, all[0].Direction)
	assert.Equal(t, domain.ProtocolUnknown, all[0].Protocol)
}

func TestRunMonitor_NoHolders(t *testing.T) {
	f := newFixture(t, nil)
	result := f.orch.RunMonitor(context.Background())
	assert.Zero(t, result.Addresses)
	f.gw.AssertNotCalled(t, "FetchRecentTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunMonitor_RespectsWalletLimit(t *testing.T) {
	f := newFixture(t, nil, func(o *Options) {
		o.MonitorWallets = 2
		o.MonitorSignatures = 3
	})
	seedHolders(t, f, "A", "B", "C")
	f.gw.On("FetchRecentTransactions", mock.Anything, mock.Anything, 3).
		Return([]ledger.RawTransaction{}, nil)

	result := f.orch.RunMonitor(context.Background())
	assert.Equal(t, 2, result.Addresses)
	f.gw.AssertNotCalled(t, "FetchRecentTransactions", mock.Anything, "C", 3)
}

func TestRunMonitor_AbandonsAddressAfterTimeout(t *testing.T) {
	f := newFixture(t, nil, func(o *Options) { o.AddressTimeout = 50 * time.Millisecond })
	seedHolders(t, f, "Slow", "Fast")

	f.gw.On("FetchRecentTransactions", mock.Anything, "Slow", DefaultMonitorSignatures).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, fmt.Errorf("%w: %v", ledger.ErrUnavailable, context.DeadlineExceeded))
	f.gw.On("FetchRecentTransactions", mock.Anything, "Fast", DefaultMonitorSignatures).
		Return([]ledger.RawTransaction{holderTx("sigFast", "Fast", 10, 30, classifier.RaydiumProgramID)}, nil)

	start := time.Now()
	result := f.orch.RunMonitor(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, result.Addresses)
	assert.Equal(t, 1, result.FailedAddresses)
	assert.Equal(t, 1, result.Recorded)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Slow:")

	stored, err := f.txs.Get(context.Background(), "sigFast")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionBuy, stored.Direction)
}
