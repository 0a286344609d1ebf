package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// TransactionStore implements storage.TransactionStore using ClickHouse.
// Rows live in a ReplacingMergeTree keyed by signature; reads use FINAL so
// only the newest version of each signature is visible.
type TransactionStore struct {
	conn *Conn
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(conn *Conn) *TransactionStore {
	return &TransactionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `signature, wallet_address, amount, direction, protocol, timestamp_ms, success, updated_at`

// Upsert appends a new version of tx. Replacement happens on merge and is
// resolved at read time by FINAL.
func (s *TransactionStore) Upsert(ctx context.Context, tx *domain.Transaction) (err error) {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observe("transactions_upsert", start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO transactions (`+transactionColumns+`)`)
	if err != nil {
		return fmt.Errorf("%w: prepare batch: %w", storage.ErrStoreWrite, err)
	}

	var success uint8
	if tx.Success {
		success = 1
	}
	err = batch.Append(
		tx.Signature,
		tx.WalletAddress,
		tx.Amount,
		string(tx.Direction),
		tx.Protocol,
		tx.Timestamp,
		success,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append to batch: %w", storage.ErrStoreWrite, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send batch: %w", storage.ErrStoreWrite, err)
	}
	return nil
}

// Get returns a transaction by signature. Returns ErrNotFound if absent.
func (s *TransactionStore) Get(ctx context.Context, signature string) (*domain.Transaction, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions FINAL WHERE signature = ?`, signature)

	tx, err := scanTransaction(row)
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

	query, args := buildQuery(filter)

	rows, err := s.conn.Query(ctx, query, args...)
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

func buildQuery(filter domain.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.From > 0 {
		where = append(where, "timestamp_ms >= ?")
		args = append(args, filter.From)
	}
	if filter.To > 0 {
		where = append(where, "timestamp_ms <= ?")
		args = append(args, filter.To)
	}
	if filter.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if filter.Protocol != "" {
		where = append(where, "protocol = ?")
		args = append(args, filter.Protocol)
	}
	if filter.WalletAddress != "" {
		where = append(where, "wallet_address = ?")
		args = append(args, filter.WalletAddress)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions FINAL`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp_ms DESC, signature ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return query, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		amount    decimal.Decimal
		direction string
		success   uint8
	)
	err := row.Scan(
		&tx.Signature,
		&tx.WalletAddress,
		&amount,
		&direction,
		&tx.Protocol,
		&tx.Timestamp,
		&success,
		&tx.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}

	tx.Amount = amount
	tx.Direction = domain.Direction(direction)
	tx.Success = success == 1
	return &tx, nil
}
