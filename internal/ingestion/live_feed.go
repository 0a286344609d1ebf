package ingestion

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/observability"
	"solana-holder-tracker/internal/solana"
)

// ErrFeedClosed is returned by Run when the subscription channel closes.
var ErrFeedClosed = errors.New("live feed subscription closed")

const (
	defaultFetchAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
	defaultFeedWorkers   = 4
)

// LiveFeed subscribes to logs mentioning the tracked mint and records every
// notified transaction.
type LiveFeed struct {
	ws            solana.LogSubscriber
	gateway       ledger.Gateway
	recorder      *Recorder
	mint          string
	workers       int
	fetchAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// LiveFeedOptions contains configuration for creating a LiveFeed.
type LiveFeedOptions struct {
	WS       solana.LogSubscriber
	Gateway  ledger.Gateway
	Recorder *Recorder
	Mint     string
	Workers  int // Default: 4

	// Not-found and unavailable lookups are retried with exponential backoff.
	FetchAttempts int           // Default: 3
	RetryDelay    time.Duration // Default: 500ms, doubled per attempt
	Logger        *zap.Logger
}

// NewLiveFeed creates a new LiveFeed.
func NewLiveFeed(opts LiveFeedOptions) *LiveFeed {
	f := &LiveFeed{
		ws:            opts.WS,
		gateway:       opts.Gateway,
		recorder:      opts.Recorder,
		mint:          opts.Mint,
		workers:       opts.Workers,
		fetchAttempts: opts.FetchAttempts,
		retryDelay:    opts.RetryDelay,
		logger:        opts.Logger,
	}
	if f.workers <= 0 {
		f.workers = defaultFeedWorkers
	}
	if f.fetchAttempts <= 0 {
		f.fetchAttempts = defaultFetchAttempts
	}
	if f.retryDelay <= 0 {
		f.retryDelay = defaultRetryDelay
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.logger = f.logger.Named("livefeed")
	return f
}

// Run subscribes and processes notifications until ctx is done or the
// subscription closes. Per-transaction failures are logged and skipped.
func (f *LiveFeed) Run(ctx context.Context) error {
	logsCh, err := f.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{f.mint}})
	if err != nil {
		return err
	}
	f.logger.Info("subscribed to mint logs",
		zap.String("mint", f.mint),
		zap.Int("workers", f.workers))

	// Workers exit when the channel closes or ctx is done.
	var g errgroup.Group
	for i := 0; i < f.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case notif, ok := <-logsCh:
					if !ok {
						return nil
					}
					f.handle(ctx, notif)
				}
			}
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		f.logger.Info("live feed stopping")
		return ctx.Err()
	}
	return ErrFeedClosed
}

// handle fetches, classifies and stores one notified transaction.
func (f *LiveFeed) handle(ctx context.Context, notif solana.LogNotification) {
	observability.RecordLiveNotification()
	if notif.Signature == "" {
		return
	}
	if notif.Failed() {
		f.logger.Debug("skipping failed transaction",
			zap.String("signature", notif.Signature),
			zap.Any("err", notif.Err))
		return
	}

	raw, err := f.fetch(ctx, notif.Signature)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Warn("fetch notified transaction failed",
				zap.String("signature", notif.Signature),
				zap.Int64("slot", notif.Slot),
				zap.Error(err))
		}
		return
	}

	if _, ok, err := f.recorder.Record(ctx, *raw, ""); err != nil {
		f.logger.Warn("record notified transaction failed",
			zap.String("signature", notif.Signature),
			zap.Error(err))
	} else if !ok {
		f.logger.Debug("notified transaction does not move tracked mint",
			zap.String("signature", notif.Signature))
	}
}

// fetch loads a transaction, retrying not-found and unavailable responses.
func (f *LiveFeed) fetch(ctx context.Context, signature string) (*ledger.RawTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < f.fetchAttempts; attempt++ {
		raw, err := f.gateway.FetchTransaction(ctx, signature)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ledger.ErrTransactionNotFound) && !errors.Is(err, ledger.ErrUnavailable) {
			return nil, err
		}
		if attempt == f.fetchAttempts-1 {
			break
		}

		delay := f.retryDelay * time.Duration(1<<attempt)
		f.logger.Debug("retrying transaction fetch",
			zap.String("signature", signature),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
