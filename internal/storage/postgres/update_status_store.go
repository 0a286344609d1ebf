package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// UpdateStatusStore implements storage.UpdateStatusStore using PostgreSQL.
type UpdateStatusStore struct {
	pool *Pool
}

// NewUpdateStatusStore creates a new UpdateStatusStore.
func NewUpdateStatusStore(pool *Pool) *UpdateStatusStore {
	return &UpdateStatusStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UpdateStatusStore = (*UpdateStatusStore)(nil)

const updateStatusColumns = `id::text, total_holders, status, source, error, started_at, last_updated`

// Create adds a new status record. Returns ErrDuplicateKey if the id exists.
func (s *UpdateStatusStore) Create(ctx context.Context, st *domain.UpdateStatus) (err error) {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observe("holder_updates_create", start, err) }()

	query := `
		INSERT INTO holder_updates (id, total_holders, status, source, error, started_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		st.ID,
		st.TotalHolders,
		string(st.Status),
		string(st.Source),
		st.Error,
		st.StartedAt,
		st.LastUpdated,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return writeError("insert holder update", err)
	}
	return nil
}

// Update overwrites a record still in progress. Returns ErrNotFound for an
// unknown id and ErrInvalidInput when the record is already terminal.
func (s *UpdateStatusStore) Update(ctx context.Context, st *domain.UpdateStatus) (err error) {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observe("holder_updates_update", start, err) }()

	query := `
		UPDATE holder_updates
		SET total_holders = $2, status = $3, source = $4, error = $5, last_updated = $6
		WHERE id = $1 AND status = 'in_progress'
	`

	tag, err := s.pool.Exec(ctx, query,
		st.ID,
		st.TotalHolders,
		string(st.Status),
		string(st.Source),
		st.Error,
		st.LastUpdated,
	)
	if err != nil {
		return writeError("update holder update", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM holder_updates WHERE id = $1`, st.ID).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check holder update: %w", err)
	}
	return fmt.Errorf("%w: update %s already %s", storage.ErrInvalidInput, st.ID, current)
}

// Latest returns the most recently started record.
func (s *UpdateStatusStore) Latest(ctx context.Context) (*domain.UpdateStatus, error) {
	list, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

// List returns records ordered by started_at DESC. limit <= 0 returns all.
func (s *UpdateStatusStore) List(ctx context.Context, limit int) ([]*domain.UpdateStatus, error) {
	query := `SELECT ` + updateStatusColumns + ` FROM holder_updates ORDER BY started_at DESC, last_updated DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list holder updates: %w", err)
	}
	defer rows.Close()

	var result []*domain.UpdateStatus
	for rows.Next() {
		st, err := scanUpdateStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder update rows: %w", err)
	}
	return result, nil
}

// FailInProgress marks every in-progress record failed.
func (s *UpdateStatusStore) FailInProgress(ctx context.Context, reason string, at int64) (n int, err error) {
	start := time.Now()
	defer func() { observe("holder_updates_fail_in_progress", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		UPDATE holder_updates
		SET status = 'failed', error = $1, last_updated = $2
		WHERE status = 'in_progress'
	`, reason, at)
	if err != nil {
		return 0, writeError("fail in-progress holder updates", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanUpdateStatus scans a single row into an UpdateStatus.
func scanUpdateStatus(row pgx.Row) (*domain.UpdateStatus, error) {
	var (
		st             domain.UpdateStatus
		status, source string
	)
	err := row.Scan(&st.ID, &st.TotalHolders, &status, &source, &st.Error, &st.StartedAt, &st.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("scan holder update row: %w", err)
	}
	st.Status = domain.UpdateState(status)
	st.Source = domain.SnapshotSource(source)
	return &st, nil
}
