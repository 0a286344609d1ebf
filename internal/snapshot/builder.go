// Package snapshot builds ranked holder snapshots from the ledger, falling
// back to synthetic data when the ledger is unusable.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/observability"
)

// ErrNoUsableData is returned when the ledger answered but no holder was usable.
var ErrNoUsableData = errors.New("no usable holder data")

// DefaultConcurrency bounds concurrent native balance lookups.
const DefaultConcurrency = 8

// Snapshot is a ranked holder set and where it came from.
type Snapshot struct {
	Holders []*domain.Holder
	Source  domain.SnapshotSource
	// Cause is the ledger failure that triggered a fallback snapshot.
	Cause error
}

// Builder builds holder snapshots.
type Builder struct {
	gateway     ledger.Gateway
	fallback    *FallbackGenerator
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// BuilderOption configures Builder.
type BuilderOption func(*Builder)

// WithFallback sets the fallback generator. Nil disables fallback.
func WithFallback(g *FallbackGenerator) BuilderOption {
	return func(b *Builder) {
		b.fallback = g
	}
}

// WithConcurrency bounds concurrent balance lookups.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a builder reading from gateway.
func NewBuilder(gateway ledger.Gateway, opts ...BuilderOption) *Builder {
	b := &Builder{
		gateway:     gateway,
		fallback:    NewFallbackGenerator(nil),
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("snapshot")
	return b
}

// Build returns the top limit holders of mint ranked by token amount.
// When the ledger is unavailable or returns no usable holders, a synthetic
// snapshot of limit holders with Source fallback is returned instead.
func (b *Builder) Build(ctx context.Context, mint string, limit int) (*Snapshot, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("snapshot limit must be positive, got %d", limit)
	}

	holders, err := b.fromLedger(ctx, mint, limit)
	if err == nil {
		return &Snapshot{Holders: holders, Source: domain.SourceLedger}, nil
	}

	if !errors.Is(err, ledger.ErrUnavailable) && !errors.Is(err, ErrNoUsableData) {
		return nil, err
	}
	if b.fallback == nil {
		return nil, err
	}

	b.logger.Warn("ledger unusable, building fallback snapshot",
		zap.String("mint", mint),
		zap.Int("limit", limit),
		zap.Error(err))
	observability.RecordFallbackSnapshot()

	return &Snapshot{
		Holders: b.fallback.Generate(limit, b.now().UnixMilli()),
		Source:  domain.SourceFallback,
		Cause:   err,
	}, nil
}

func (b *Builder) fromLedger(ctx context.Context, mint string, limit int) ([]*domain.Holder, error) {
	raw, err := b.gateway.FetchTopHolders(ctx, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch top holders: %w", err)
	}

	holders := usable(raw)
	if len(holders) == 0 {
		return nil, ErrNoUsableData
	}

	b.resolveBalances(ctx, holders)

	return Rank(holders, limit, b.now().UnixMilli()), nil
}

// usable drops empty, non-positive and repeated entries, keeping gateway order.
func usable(raw []ledger.RawHolder) []*domain.Holder {
	seen := make(map[string]struct{}, len(raw))
	holders := make([]*domain.Holder, 0, len(raw))
	for _, r := range raw {
		if r.Address == "" || !r.TokenAmount.IsPositive() {
			continue
		}
		if _, dup := seen[r.Address]; dup {
			continue
		}
		seen[r.Address] = struct{}{}
		holders = append(holders, &domain.Holder{
			Address:       r.Address,
			TokenAmount:   r.TokenAmount,
			NativeBalance: r.NativeBalance,
		})
	}
	return holders
}

// resolveBalances fills native balances concurrently. A failed lookup is
// logged and leaves the balance at zero.
func (b *Builder) resolveBalances(ctx context.Context, holders []*domain.Holder) {
	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for _, h := range holders {
		if h.NativeBalance.IsPositive() {
			continue
		}
		h := h
		g.Go(func() error {
			bal, err := b.gateway.FetchNativeBalance(ctx, h.Address)
			if err != nil {
				observability.RecordBalanceLookupError()
				b.logger.Warn("native balance lookup failed",
					zap.String("address", h.Address),
					zap.Error(err))
				return nil
			}
			h.NativeBalance = bal
			return nil
		})
	}
	_ = g.Wait()
}
