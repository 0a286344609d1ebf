package snapshot

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/solana"
)

func TestFallback_SizeAndRanks(t *testing.T) {
	for _, limit := range []int{1, 20, 60, 100} {
		holders := NewFallbackGenerator(rand.New(rand.NewSource(1))).Generate(limit, 1)
		require.Len(t, holders, limit)
		require.NoError(t, Validate(holders), "limit %d", limit)
	}
}

func TestFallback_JitterWithinTenPercent(t *testing.T) {
	holders := NewFallbackGenerator(rand.New(rand.NewSource(7))).Generate(60, 1)

	// Jitter may reorder neighbours, so compare the sorted amounts with the sorted bounds.
	lo := decimal.NewFromFloat(0.9 * float64(fallbackCurve[len(fallbackCurve)-1]))
	hi := decimal.NewFromFloat(1.1 * float64(fallbackCurve[0]))
	for _, h := range holders {
		assert.True(t, h.TokenAmount.GreaterThanOrEqual(lo.Floor()), "amount %s", h.TokenAmount)
		assert.True(t, h.TokenAmount.LessThanOrEqual(hi), "amount %s", h.TokenAmount)
	}
	assert.True(t, holders[0].TokenAmount.GreaterThanOrEqual(decimal.NewFromInt(4500000)))
}

func TestFallback_NativeBalanceRatio(t *testing.T) {
	holders := NewFallbackGenerator(rand.New(rand.NewSource(3))).Generate(30, 1)

	for _, h := range holders {
		maxNative := h.TokenAmount.Mul(decimal.NewFromFloat(0.0012))
		minNative := h.TokenAmount.Mul(decimal.NewFromFloat(0.0008)).Sub(decimal.NewFromInt(1))
		assert.True(t, h.NativeBalance.LessThanOrEqual(maxNative), "native %s for %s", h.NativeBalance, h.TokenAmount)
		assert.True(t, h.NativeBalance.GreaterThanOrEqual(minNative), "native %s for %s", h.NativeBalance, h.TokenAmount)
	}
}

func TestFallback_DeterministicWithSeed(t *testing.T) {
	a := NewFallbackGenerator(rand.New(rand.NewSource(99))).Generate(10, 5)
	b := NewFallbackGenerator(rand.New(rand.NewSource(99))).Generate(10, 5)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Address, b[i].Address)
		assert.True(t, a[i].TokenAmount.Equal(b[i].TokenAmount))
	}
}

func TestFallback_AddressesAreWalletKeys(t *testing.T) {
	holders := NewFallbackGenerator(rand.New(rand.NewSource(11))).Generate(100, 1)

	seen := make(map[string]struct{}, len(holders))
	for _, h := range holders {
		_, err := solana.ParseAddress(h.Address)
		require.NoError(t, err)
		assert.True(t, solana.IsOnCurve(h.Address), "address %s off curve", h.Address)
		seen[h.Address] = struct{}{}
	}
	assert.Len(t, seen, len(holders))
}

func TestFallback_ZeroLimit(t *testing.T) {
	assert.Empty(t, NewFallbackGenerator(nil).Generate(0, 1))
}

func TestCurveBase_ContinuesGeometrically(t *testing.T) {
	assert.Equal(t, int64(5000000), curveBase(0))
	assert.Equal(t, int64(10000), curveBase(59))
	assert.Equal(t, int64(9000), curveBase(60))
	assert.Equal(t, int64(8100), curveBase(61))
	assert.GreaterOrEqual(t, curveBase(10000), int64(1))
}

func TestValidate_DetectsViolations(t *testing.T) {
	h := func(addr string, rank int, amount int64) *domain.Holder {
		return &domain.Holder{Address: addr, Rank: rank, TokenAmount: decimal.NewFromInt(amount)}
	}

	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]*domain.Holder{h("A", 1, 5), h("B", 2, 5)}))
	assert.Error(t, Validate([]*domain.Holder{h("A", 2, 5)}))
	assert.Error(t, Validate([]*domain.Holder{h("A", 1, 5), h("A", 2, 4)}))
	assert.Error(t, Validate([]*domain.Holder{h("A", 1, 5), h("B", 2, 6)}))
	assert.Error(t, Validate([]*domain.Holder{h("", 1, 5)}))
}
