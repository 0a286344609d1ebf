package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"solana-holder-tracker/internal/solana"
	"solana-holder-tracker/internal/solana/stub"
)

const testMint = "MintA"

func amount(ui string) solana.UITokenAmount {
	return solana.UITokenAmount{UIAmountString: ui}
}

func newTestGateway(t *testing.T, client solana.RPCClient, opts ...GatewayOption) *RPCGateway {
	t.Helper()
	opts = append([]GatewayOption{WithRateLimit(0, 0), WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewRPCGateway(client, opts...)
}

func TestFetchTopHolders_AggregatesPerOwner(t *testing.T) {
	client := stub.NewRPCClient()
	client.AddTokenAccount(solana.TokenAccount{Address: "acct1", Mint: testMint, Owner: "OwnerA", Amount: amount("300")})
	client.AddTokenAccount(solana.TokenAccount{Address: "acct2", Mint: testMint, Owner: "OwnerB", Amount: amount("200")})
	client.AddTokenAccount(solana.TokenAccount{Address: "acct3", Mint: testMint, Owner: "OwnerA", Amount: amount("50")})

	gw := newTestGateway(t, client)

	holders, err := gw.FetchTopHolders(context.Background(), testMint, 60)
	require.NoError(t, err)
	require.Len(t, holders, 2)

	assert.Equal(t, "OwnerA", holders[0].Address)
	assert.True(t, decimal.NewFromInt(350).Equal(holders[0].TokenAmount))
	assert.Equal(t, 2, holders[0].TokenAccounts)
	assert.Equal(t, "OwnerB", holders[1].Address)
}

func TestFetchTopHolders_DropsUnresolvedAndEmpty(t *testing.T) {
	client := stub.NewRPCClient()
	client.AddTokenAccount(solana.TokenAccount{Address: "acct1", Mint: testMint, Owner: "OwnerA", Amount: amount("10")})
	client.AddTokenAccount(solana.TokenAccount{Address: "acct2", Mint: testMint, Owner: "OwnerB", Amount: amount("0")})
	// Listed as a large account but not resolvable.
	client.LargestAccounts[testMint] = append(client.LargestAccounts[testMint],
		solana.TokenAccountBalance{Address: "ghost", Amount: amount("999")})

	gw := newTestGateway(t, client)

	holders, err := gw.FetchTopHolders(context.Background(), testMint, 60)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, "OwnerA", holders[0].Address)
}

func TestFetchTopHolders_NoAccounts(t *testing.T) {
	client := stub.NewRPCClient()
	gw := newTestGateway(t, client)

	holders, err := gw.FetchTopHolders(context.Background(), testMint, 60)
	require.NoError(t, err)
	assert.Empty(t, holders)
	assert.Equal(t, 0, client.Calls("GetTokenAccounts"))
}

func TestFetchTopHolders_Unavailable(t *testing.T) {
	client := stub.NewRPCClient()
	rpcErr := errors.New("connection refused")
	client.Errors["GetTokenLargestAccounts"] = rpcErr

	gw := newTestGateway(t, client)

	_, err := gw.FetchTopHolders(context.Background(), testMint, 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, rpcErr)
}

func TestFetchTopHolders_ScanModeTruncates(t *testing.T) {
	client := stub.NewRPCClient()
	client.AddTokenAccount(solana.TokenAccount{Address: "a1", Mint: testMint, Owner: "Small", Amount: amount("1")})
	client.AddTokenAccount(solana.TokenAccount{Address: "a2", Mint: testMint, Owner: "Big", Amount: amount("100")})
	client.AddTokenAccount(solana.TokenAccount{Address: "a3", Mint: testMint, Owner: "Mid", Amount: amount("50")})
	client.AddTokenAccount(solana.TokenAccount{Address: "a4", Mint: "OtherMint", Owner: "Other", Amount: amount("1000")})

	gw := newTestGateway(t, client, WithHolderMode(HolderModeScan))

	holders, err := gw.FetchTopHolders(context.Background(), testMint, 2)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, "Big", holders[0].Address)
	assert.Equal(t, "Mid", holders[1].Address)
	assert.Equal(t, 1, client.Calls("GetTokenAccountsByMint"))
	assert.Equal(t, 0, client.Calls("GetTokenLargestAccounts"))
}

func TestFetchNativeBalance(t *testing.T) {
	client := stub.NewRPCClient()
	client.Balances["OwnerA"] = 1_500_000_000

	gw := newTestGateway(t, client)

	bal, err := gw.FetchNativeBalance(context.Background(), "OwnerA")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.5").Equal(bal))

	client.AddressErrors["OwnerB"] = errors.New("timeout")
	_, err = gw.FetchNativeBalance(context.Background(), "OwnerB")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func sellTx(sig string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      10,
		Signature: sig,
		BlockTime: 1700000000,
		Meta: &solana.TransactionMeta{
			PreTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: testMint, Owner: "OwnerX", UITokenAmount: amount("500")},
			},
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 1, Mint: testMint, Owner: "OwnerX", UITokenAmount: amount("300")},
			},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{"OwnerX", "acct1", "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"},
			ProgramIDs:  []string{"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB", solana.TokenProgramID},
		},
	}
}

func TestFetchRecentTransactions(t *testing.T) {
	client := stub.NewRPCClient()
	client.AddTransaction(sellTx("sig1"), "OwnerX")
	client.AddTransaction(sellTx("sig2"), "OwnerX")
	client.AddressErrors["sig2"] = errors.New("node hiccup")
	client.AddTransaction(sellTx("sig3"), "OwnerX")

	gw := newTestGateway(t, client)

	txs, err := gw.FetchRecentTransactions(context.Background(), "OwnerX", 5)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	tx := txs[0]
	assert.Equal(t, "sig1", tx.Signature)
	assert.Equal(t, int64(1700000000000), tx.BlockTime)
	require.Len(t, tx.PreTokenBalances, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(tx.PreTokenBalances[0].Amount))
	assert.Equal(t, []string{"OwnerX", "acct1", "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB", solana.TokenProgramID}, tx.ProgramIDs)
	assert.Nil(t, tx.Err)

	assert.Equal(t, "sig3", txs[1].Signature)
}

func TestFetchRecentTransactions_RespectsLimit(t *testing.T) {
	client := stub.NewRPCClient()
	for _, sig := range []string{"s1", "s2", "s3"} {
		client.AddTransaction(sellTx(sig), "OwnerX")
	}

	gw := newTestGateway(t, client)

	txs, err := gw.FetchRecentTransactions(context.Background(), "OwnerX", 2)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFetchRecentTransactions_Unavailable(t *testing.T) {
	client := stub.NewRPCClient()
	client.AddressErrors["OwnerC"] = errors.New("503")

	gw := newTestGateway(t, client)

	_, err := gw.FetchRecentTransactions(context.Background(), "OwnerC", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchTransaction_NotFound(t *testing.T) {
	gw := newTestGateway(t, stub.NewRPCClient())

	_, err := gw.FetchTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestRateLimit_CancelledContext(t *testing.T) {
	client := stub.NewRPCClient()
	gw := NewRPCGateway(client, WithRateLimit(0.001, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.FetchNativeBalance(ctx, "OwnerA")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, client.Calls("GetBalance"))
}
