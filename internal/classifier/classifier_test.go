package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/ledger"
)

const (
	mint  = "TrackedMint"
	other = "OtherMint"
)

func bal(idx int, mint, owner string, amount int64) ledger.TokenBalance {
	return ledger.TokenBalance{AccountIndex: idx, Mint: mint, Owner: owner, Amount: decimal.NewFromInt(amount)}
}

func rawTx(pre, post []ledger.TokenBalance, programs ...string) ledger.RawTransaction {
	return ledger.RawTransaction{
		Signature:         "sig1",
		BlockTime:         1700000000000,
		PreTokenBalances:  pre,
		PostTokenBalances: post,
		ProgramIDs:        programs,
	}
}

func TestClassify_Sell(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 500)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 300)},
	)

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionSell, tx.Direction)
	assert.True(t, decimal.NewFromInt(200).Equal(tx.Amount), "amount = %s", tx.Amount)
	assert.Equal(t, "OwnerX", tx.WalletAddress)
	assert.Equal(t, "sig1", tx.Signature)
	assert.Equal(t, int64(1700000000000), tx.Timestamp)
	assert.True(t, tx.Success)
	assert.Equal(t, domain.ProtocolUnknown, tx.Protocol)
}

func TestClassify_Buy(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 100)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 175)},
	)

	tx, ok := c.Classify(raw, "OwnerX")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionBuy, tx.Direction)
	assert.True(t, decimal.NewFromInt(75).Equal(tx.Amount))
}

func TestClassify_ZeroNetChangeIsTransfer(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 42)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 42)},
	)

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionTransfer, tx.Direction)
	assert.True(t, tx.Amount.IsZero())
}

func TestClassify_UntrackedMintRejected(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, other, "OwnerX", 500)},
		[]ledger.TokenBalance{bal(1, other, "OwnerX", 300), bal(2, mint, "OwnerY", 10)},
	)

	_, ok := c.Classify(raw, "")
	assert.False(t, ok)
}

func TestClassify_NoBalancesRejected(t *testing.T) {
	c := New(mint, nil)

	_, ok := c.Classify(ledger.RawTransaction{Signature: "sig"}, "OwnerX")
	assert.False(t, ok)
}

func TestClassify_SelectsWatchedWallet(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{
			bal(1, mint, "Pool", 10000),
			bal(2, other, "OwnerX", 5),
			bal(3, mint, "OwnerX", 0),
		},
		[]ledger.TokenBalance{
			bal(1, mint, "Pool", 9000),
			bal(3, mint, "OwnerX", 1000),
		},
	)

	tx, ok := c.Classify(raw, "OwnerX")
	require.True(t, ok)
	assert.Equal(t, "OwnerX", tx.WalletAddress)
	assert.Equal(t, domain.DirectionBuy, tx.Direction)
	assert.True(t, decimal.NewFromInt(1000).Equal(tx.Amount))

	// Without a watched wallet the first tracked-mint entry wins.
	tx, ok = c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, "Pool", tx.WalletAddress)
	assert.Equal(t, domain.DirectionSell, tx.Direction)
}

func TestClassify_MissingPostCountsAsZero(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(4, mint, "OwnerX", 250)},
		nil,
	)

	tx, ok := c.Classify(raw, "OwnerX")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionSell, tx.Direction)
	assert.True(t, decimal.NewFromInt(250).Equal(tx.Amount))
}

func TestClassify_PostMatchedByAccountIndex(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{{AccountIndex: 2, Mint: mint, Amount: decimal.NewFromInt(10)}},
		[]ledger.TokenBalance{{AccountIndex: 2, Mint: mint, Amount: decimal.NewFromInt(15)}},
	)

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, domain.DirectionBuy, tx.Direction)
	assert.True(t, decimal.NewFromInt(5).Equal(tx.Amount))
}

func TestClassify_FailedTransaction(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 5)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 5)},
	)
	raw.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.False(t, tx.Success)
}

func TestClassify_ProtocolFirstMatchByTableOrder(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 5)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 6)},
		// Raydium listed first in the transaction, Jupiter first in the table.
		"OwnerX", RaydiumProgramID, JupiterProgramID,
	)

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, "Jupiter", tx.Protocol)
}

func TestClassify_IsDeterministic(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "A", 9), bal(2, mint, "B", 3)},
		[]ledger.TokenBalance{bal(2, mint, "B", 8), bal(1, mint, "A", 1)},
		OrcaProgramID, SaberProgramID,
	)

	first, ok1 := c.Classify(raw, "B")
	for i := 0; i < 50; i++ {
		again, ok2 := c.Classify(raw, "B")
		require.Equal(t, ok1, ok2)
		require.Equal(t, first.Direction, again.Direction)
		require.True(t, first.Amount.Equal(again.Amount))
		require.Equal(t, first.Protocol, again.Protocol)
	}
	assert.Equal(t, "Orca", first.Protocol)
	assert.Equal(t, domain.DirectionBuy, first.Direction)
}

func TestClassify_CustomProtocolTable(t *testing.T) {
	table, err := ParseProtocolTable([]string{"PumpSwap=pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA", "Jupiter=" + JupiterProgramID})
	require.NoError(t, err)

	c := New(mint, table)
	raw := rawTx(
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 5)},
		[]ledger.TokenBalance{bal(1, mint, "OwnerX", 1)},
		JupiterProgramID, "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA",
	)

	tx, ok := c.Classify(raw, "")
	require.True(t, ok)
	assert.Equal(t, "PumpSwap", tx.Protocol)

	raw.ProgramIDs = []string{RaydiumProgramID}
	tx, _ = c.Classify(raw, "")
	assert.Equal(t, domain.ProtocolUnknown, tx.Protocol)
}

func TestOwners_DistinctTrackedMintOwnersInOrder(t *testing.T) {
	c := New(mint, nil)
	raw := rawTx([]ledger.TokenBalance{
		bal(1, mint, "Pool", 100),
		bal(2, other, "Elsewhere", 5),
		bal(3, mint, "HolderA", 10),
		bal(4, mint, "Pool", 7),
		bal(5, mint, "", 1),
	}, nil)

	assert.Equal(t, []string{"Pool", "HolderA"}, c.Owners(raw))
	assert.Empty(t, c.Owners(rawTx(nil, nil)))
}
