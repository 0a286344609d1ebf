// Package ingestion turns raw ledger transactions into stored, classified
// records, either on demand (Recorder) or from a live log subscription (LiveFeed).
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-holder-tracker/internal/classifier"
	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/observability"
	"solana-holder-tracker/internal/storage"
)

// Recorder classifies raw transactions and upserts the accepted ones.
type Recorder struct {
	classifier   *classifier.Classifier
	holders      storage.HolderStore
	transactions storage.TransactionStore
	logger       *zap.Logger
	now          func() time.Time
}

// RecorderOptions contains configuration for creating a Recorder.
type RecorderOptions struct {
	Classifier   *classifier.Classifier
	Holders      storage.HolderStore // used for wallet attribution
	Transactions storage.TransactionStore
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewRecorder creates a new Recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		classifier:   opts.Classifier,
		holders:      opts.Holders,
		transactions: opts.Transactions,
		logger:       logger.Named("recorder"),
		now:          now,
	}
}

// Record classifies raw relative to wallet and upserts the result.
// It returns false without error when the transaction does not move the
// tracked mint. WalletAddress is kept only if the owner is a current holder.
// An empty wallet is resolved to the first current holder among the
// tracked-mint owners, so a transaction reached without a wallet is recorded
// from the same side as one reached through the holder.
func (r *Recorder) Record(ctx context.Context, raw ledger.RawTransaction, wallet string) (*domain.Transaction, bool, error) {
	if wallet == "" {
		var err error
		if wallet, err = r.perspective(ctx, raw); err != nil {
			return nil, false, err
		}
	}

	tx, ok := r.classifier.Classify(raw, wallet)
	observability.RecordClassification(ok)
	if !ok {
		return nil, false, nil
	}

	owner, err := r.attribute(ctx, tx.WalletAddress)
	if err != nil {
		return nil, false, err
	}
	tx.WalletAddress = owner
	tx.UpdatedAt = r.now().UnixMilli()

	if err := r.transactions.Upsert(ctx, &tx); err != nil {
		return nil, false, fmt.Errorf("upsert transaction %s: %w", tx.Signature, err)
	}
	observability.RecordTransactionUpserted(string(tx.Direction))

	r.logger.Debug("transaction recorded",
		zap.String("signature", tx.Signature),
		zap.String("direction", string(tx.Direction)),
		zap.String("protocol", tx.Protocol),
		zap.String("amount", tx.Amount.String()),
		zap.String("wallet", tx.WalletAddress))

	return &tx, true, nil
}

// perspective returns the first tracked-mint owner in raw that is a current
// holder, or "" when none is.
func (r *Recorder) perspective(ctx context.Context, raw ledger.RawTransaction) (string, error) {
	for _, owner := range r.classifier.Owners(raw) {
		held, err := r.attribute(ctx, owner)
		if err != nil {
			return "", err
		}
		if held != "" {
			return held, nil
		}
	}
	return "", nil
}

// attribute returns owner when it is a tracked holder and "" otherwise.
func (r *Recorder) attribute(ctx context.Context, owner string) (string, error) {
	if owner == "" || r.holders == nil {
		return "", nil
	}
	_, err := r.holders.Get(ctx, owner)
	switch {
	case err == nil:
		return owner, nil
	case errors.Is(err, storage.ErrNotFound):
		return "", nil
	default:
		return "", fmt.Errorf("lookup holder %s: %w", owner, err)
	}
}
