package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

var holderColumns = []string{"address", "token_amount", "native_balance", "rank", "last_updated"}

// ReplaceAll deletes the current snapshot and copies in the new one inside a
// single transaction, so concurrent readers see either snapshot in full.
func (s *HolderStore) ReplaceAll(ctx context.Context, holders []*domain.Holder) (err error) {
	start := time.Now()
	defer func() { observe("holders_replace", start, err) }()

	rows := make([][]any, 0, len(holders))
	for _, h := range holders {
		if h == nil || h.Address == "" {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{
			h.Address,
			numeric(h.TokenAmount),
			numeric(h.NativeBalance),
			int32(h.Rank),
			h.LastUpdated,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return writeError("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM holders`); err != nil {
		return writeError("delete holders", err)
	}

	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"holders"}, holderColumns, pgx.CopyFromRows(rows)); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return writeError("copy holders", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return writeError("commit tx", err)
	}
	return nil
}

// List returns holders ordered by rank ASC. limit <= 0 returns all.
func (s *HolderStore) List(ctx context.Context, limit int) (_ []*domain.Holder, err error) {
	start := time.Now()
	defer func() { observe("holders_list", start, err) }()

	query := `
		SELECT address, token_amount, native_balance, rank, last_updated
		FROM holders
		ORDER BY rank ASC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return result, nil
}

// Get returns a holder by address. Returns ErrNotFound if absent.
func (s *HolderStore) Get(ctx context.Context, address string) (*domain.Holder, error) {
	query := `
		SELECT address, token_amount, native_balance, rank, last_updated
		FROM holders
		WHERE address = $1
	`

	h, err := scanHolder(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder: %w", err)
	}
	return h, nil
}

// Count returns the snapshot size.
func (s *HolderStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM holders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count holders: %w", err)
	}
	return n, nil
}

// scanHolder scans a single row into a Holder.
func scanHolder(row pgx.Row) (*domain.Holder, error) {
	var (
		h              domain.Holder
		amount, native pgtype.Numeric
	)
	if err := row.Scan(&h.Address, &amount, &native, &h.Rank, &h.LastUpdated); err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan holder row: %w", err)
	}

	var err error
	if h.TokenAmount, err = fromNumeric(amount); err != nil {
		return nil, fmt.Errorf("holder %s token_amount: %w", h.Address, err)
	}
	if h.NativeBalance, err = fromNumeric(native); err != nil {
		return nil, fmt.Errorf("holder %s native_balance: %w", h.Address, err)
	}
	return &h, nil
}
