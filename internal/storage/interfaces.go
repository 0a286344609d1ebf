package storage

import (
	"context"

	"solana-holder-tracker/internal/domain"
)

// HolderStore provides access to the current holder snapshot.
type HolderStore interface {
	// ReplaceAll swaps the whole snapshot atomically. Readers see either the
	// previous or the new snapshot, never a mix.
	ReplaceAll(ctx context.Context, holders []*domain.Holder) error

	// List returns holders ordered by rank ASC. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.Holder, error)

	// Get returns one holder by address. Returns ErrNotFound if absent.
	Get(ctx context.Context, address string) (*domain.Holder, error)

	// Count returns the number of holders in the snapshot.
	Count(ctx context.Context) (int, error)
}

// TransactionStore provides access to classified transactions.
type TransactionStore interface {
	// Upsert inserts tx or replaces the record with the same signature.
	Upsert(ctx context.Context, tx *domain.Transaction) error

	// Get returns one transaction by signature. Returns ErrNotFound if absent.
	Get(ctx context.Context, signature string) (*domain.Transaction, error)

	// Query returns transactions matching filter, ordered by timestamp DESC
	// then signature ASC.
	Query(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// UpdateStatusStore provides access to the holder refresh history.
type UpdateStatusStore interface {
	// Create adds a new status record. Returns ErrDuplicateKey if id exists.
	Create(ctx context.Context, s *domain.UpdateStatus) error

	// Update overwrites a record that is still in progress. Returns ErrNotFound
	// if id is unknown and ErrInvalidInput if the record is already terminal.
	Update(ctx context.Context, s *domain.UpdateStatus) error

	// Latest returns the most recently started record. Returns ErrNotFound if none.
	Latest(ctx context.Context) (*domain.UpdateStatus, error)

	// List returns records newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.UpdateStatus, error)

	// FailInProgress marks every in-progress record failed with reason at
	// time at (ms) and returns how many were changed.
	FailInProgress(ctx context.Context, reason string, at int64) (int, error)
}
