// Package orchestrator runs the holder refresh and transaction monitor cycles.
// It coordinates: snapshot build → holder store, and
// top holders → recent transactions → classifier → transaction store.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-holder-tracker/internal/ingestion"
	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/snapshot"
	"solana-holder-tracker/internal/storage"
)

// ErrRefreshInProgress is returned when a refresh is requested while one runs.
var ErrRefreshInProgress = errors.New("holder refresh already in progress")

// Defaults
const (
	DefaultHolderLimit        = 60
	DefaultRefreshInterval    = 30 * time.Minute
	DefaultRefreshTimeout     = 5 * time.Minute
	DefaultMonitorInterval    = 5 * time.Minute
	DefaultMonitorWallets     = 10
	DefaultMonitorSignatures  = 5
	DefaultMonitorConcurrency = 4
	DefaultAddressTimeout     = 30 * time.Second
)

// SnapshotBuilder builds ranked holder snapshots.
type SnapshotBuilder interface {
	Build(ctx context.Context, mint string, limit int) (*snapshot.Snapshot, error)
}

// Orchestrator coordinates holder refreshes and transaction monitoring.
type Orchestrator struct {
	builder  SnapshotBuilder
	gateway  ledger.Gateway
	recorder *ingestion.Recorder

	holders      storage.HolderStore
	transactions storage.TransactionStore
	updates      storage.UpdateStatusStore

	mint               string
	holderLimit        int
	refreshInterval    time.Duration
	refreshTimeout     time.Duration
	monitorInterval    time.Duration
	monitorWallets     int
	monitorSignatures  int
	monitorConcurrency int
	addressTimeout     time.Duration

	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	refreshing atomic.Bool
	background sync.WaitGroup
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Builder      SnapshotBuilder
	Gateway      ledger.Gateway
	Recorder     *ingestion.Recorder
	Holders      storage.HolderStore
	Transactions storage.TransactionStore
	Updates      storage.UpdateStatusStore
	Mint         string

	// Refresh
	HolderLimit     int           // Default: 60
	RefreshInterval time.Duration // Default: 30m
	RefreshTimeout  time.Duration // Default: 5m, bounds one snapshot build

	// Monitor
	MonitorInterval    time.Duration // Default: 5m
	MonitorWallets     int           // Default: 10 top holders
	MonitorSignatures  int           // Default: 5 signatures per holder
	MonitorConcurrency int           // Default: 4 addresses at once
	AddressTimeout     time.Duration // Default: 30s per address

	Logger *zap.Logger
	Clock  func() time.Time
	NewID  func() string // Default: uuid v4
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		builder:            opts.Builder,
		gateway:            opts.Gateway,
		recorder:           opts.Recorder,
		holders:            opts.Holders,
		transactions:       opts.Transactions,
		updates:            opts.Updates,
		mint:               opts.Mint,
		holderLimit:        orDefault(opts.HolderLimit, DefaultHolderLimit),
		refreshInterval:    orDefault(opts.RefreshInterval, DefaultRefreshInterval),
		refreshTimeout:     orDefault(opts.RefreshTimeout, DefaultRefreshTimeout),
		monitorInterval:    orDefault(opts.MonitorInterval, DefaultMonitorInterval),
		monitorWallets:     orDefault(opts.MonitorWallets, DefaultMonitorWallets),
		monitorSignatures:  orDefault(opts.MonitorSignatures, DefaultMonitorSignatures),
		monitorConcurrency: orDefault(opts.MonitorConcurrency, DefaultMonitorConcurrency),
		addressTimeout:     orDefault(opts.AddressTimeout, DefaultAddressTimeout),
		logger:             opts.Logger,
		now:                opts.Clock,
		newID:              opts.NewID,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named("orchestrator")
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Run starts the refresh and monitor loops, each with its own ticker, and
// blocks until ctx is done. Each loop runs its cycle once immediately. Cycle
// failures are logged and never stop the loops. Records left in progress by
// an earlier process are marked failed first.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("scheduler started",
		zap.String("mint", o.mint),
		zap.Duration("refresh_interval", o.refreshInterval),
		zap.Duration("monitor_interval", o.monitorInterval))

	o.failOrphanedUpdates(ctx)

	var g errgroup.Group
	g.Go(func() error {
		o.loop(ctx, o.refreshInterval, o.scheduledRefresh)
		return nil
	})
	g.Go(func() error {
		o.loop(ctx, o.monitorInterval, o.scheduledMonitor)
		return nil
	})
	_ = g.Wait()

	o.logger.Info("scheduler stopping")
	o.Wait()
	return ctx.Err()
}

// loop runs cycle now and then on every tick until ctx is done.
func (o *Orchestrator) loop(ctx context.Context, interval time.Duration, cycle func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	cycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle(ctx)
		}
	}
}

func (o *Orchestrator) scheduledRefresh(ctx context.Context) {
	if _, err := o.RunRefresh(ctx); err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			o.logger.Info("scheduled refresh skipped, previous cycle still running")
			return
		}
		o.logger.Error("scheduled refresh failed", zap.Error(err))
	}
}

func (o *Orchestrator) scheduledMonitor(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("monitor pass panicked", zap.Any("panic", r))
		}
	}()
	o.RunMonitor(ctx)
}

// Wait blocks until refreshes started by TriggerRefresh have finished.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// Mint returns the tracked mint address.
func (o *Orchestrator) Mint() string {
	return o.mint
}

// RefreshInterval returns the configured refresh interval.
func (o *Orchestrator) RefreshInterval() time.Duration {
	return o.refreshInterval
}
