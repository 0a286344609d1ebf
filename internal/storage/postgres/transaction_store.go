package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Upsert inserts tx or overwrites the row with the same signature.
func (s *TransactionStore) Upsert(ctx context.Context, tx *domain.Transaction) (err error) {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observe("transactions_upsert", start, err) }()

	query := `
		INSERT INTO transactions (
			signature, wallet_address, amount, direction, protocol, timestamp, success, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			amount = EXCLUDED.amount,
			direction = EXCLUDED.direction,
			protocol = EXCLUDED.protocol,
			timestamp = EXCLUDED.timestamp,
			success = EXCLUDED.success,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		tx.Signature,
		nullableText(tx.WalletAddress),
		numeric(tx.Amount),
		string(tx.Direction),
		tx.Protocol,
		tx.Timestamp,
		tx.Success,
		tx.UpdatedAt,
	)
	if err != nil {
		return writeError("upsert transaction", err)
	}
	return nil
}

// Get returns a transaction by signature. Returns ErrNotFound if absent.
func (s *TransactionStore) Get(ctx context.Context, signature string) (*domain.Transaction, error) {
	query := `
		SELECT signature, wallet_address, amount, direction, protocol, timestamp, success, updated_at
		FROM transactions
		WHERE signature = $1
	`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// Query returns transactions matching filter, ordered by timestamp DESC then signature ASC.
func (s *TransactionStore) Query(ctx context.Context, filter domain.TransactionFilter) (_ []*domain.Transaction, err error) {
	start := time.Now()
	defer func() { observe("transactions_query", start, err) }()

	query, args := buildTransactionQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return result, nil
}

// buildTransactionQuery renders filter as a parameterized SELECT.
func buildTransactionQuery(filter domain.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.From > 0 {
		add("timestamp >= $%d", filter.From)
	}
	if filter.To > 0 {
		add("timestamp <= $%d", filter.To)
	}
	if filter.Direction != "" {
		add("direction = $%d", string(filter.Direction))
	}
	if filter.Protocol != "" {
		add("protocol = $%d", filter.Protocol)
	}
	if filter.WalletAddress != "" {
		add("wallet_address = $%d", filter.WalletAddress)
	}

	var b strings.Builder
	b.WriteString(`SELECT signature, wallet_address, amount, direction, protocol, timestamp, success, updated_at FROM transactions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY timestamp DESC, signature ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

// scanTransaction scans a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		wallet    pgtype.Text
		amount    pgtype.Numeric
		direction string
	)
	err := row.Scan(
		&tx.Signature,
		&wallet,
		&amount,
		&direction,
		&tx.Protocol,
		&tx.Timestamp,
		&tx.Success,
		&tx.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}

	tx.WalletAddress = wallet.String
	tx.Direction = domain.Direction(direction)
	if tx.Amount, err = fromNumeric(amount); err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", tx.Signature, err)
	}
	return &tx, nil
}

// nullableText maps "" to SQL NULL.
func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
