package snapshot

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/solana"
)

// fallbackCurve is the base token amount by position for the first 60 holders.
var fallbackCurve = [...]int64{
	5000000, 4500000, 4000000, 3500000, 3200000,
	3000000, 2800000, 2600000, 2400000, 2200000,
	2000000, 1800000, 1600000, 1500000, 1400000,
	1300000, 1200000, 1100000, 1000000, 950000,
	900000, 850000, 800000, 750000, 700000,
	650000, 600000, 550000, 500000, 480000,
	460000, 440000, 420000, 400000, 380000,
	360000, 340000, 320000, 300000, 280000,
	260000, 240000, 220000, 200000, 180000,
	160000, 140000, 120000, 100000, 90000,
	80000, 70000, 60000, 50000, 40000,
	30000, 25000, 20000, 15000, 10000,
}

// curveDecay continues the curve past its last point.
const curveDecay = 0.9

// Fallback generation parameters.
const (
	jitterFraction = 0.2   // total jitter span: ±10%
	nativeRatio    = 0.001 // native balance ≈ 0.1% of the token amount
	nativeSpread   = 0.4   // native multiplier in [0.8, 1.2)
)

// FallbackGenerator produces synthetic, correctly ranked holder snapshots.
type FallbackGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallbackGenerator creates a generator. A nil rng is seeded from the clock.
func NewFallbackGenerator(rng *rand.Rand) *FallbackGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &FallbackGenerator{rng: rng}
}

// curveBase returns the unjittered amount for position i (0-based).
func curveBase(i int) int64 {
	if i < len(fallbackCurve) {
		return fallbackCurve[i]
	}
	last := float64(fallbackCurve[len(fallbackCurve)-1])
	v := int64(last * math.Pow(curveDecay, float64(i-len(fallbackCurve)+1)))
	if v < 1 {
		v = 1
	}
	return v
}

// Generate returns limit synthetic holders ranked 1..limit.
func (g *FallbackGenerator) Generate(limit int, now int64) []*domain.Holder {
	if limit <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	holders := make([]*domain.Holder, 0, limit)
	for i := 0; i < limit; i++ {
		variance := (g.rng.Float64() - 0.5) * jitterFraction
		amount := math.Floor(float64(curveBase(i)) * (1 + variance))
		if amount < 1 {
			amount = 1
		}
		native := math.Floor(amount * nativeRatio * (1 - nativeSpread/2 + g.rng.Float64()*nativeSpread))

		holders = append(holders, &domain.Holder{
			Address:       g.address(),
			TokenAmount:   decimal.NewFromFloat(amount),
			NativeBalance: decimal.NewFromFloat(native),
		})
	}

	return Rank(holders, limit, now)
}

// address returns a wallet address derived from a random seed.
func (g *FallbackGenerator) address() string {
	seed := make([]byte, solana.PublicKeySize)
	g.rng.Read(seed)
	addr, err := solana.WalletAddressFromSeed(seed)
	if err != nil {
		// Unreachable: the seed length is fixed.
		return solana.EncodeAddress(seed)
	}
	return addr
}
