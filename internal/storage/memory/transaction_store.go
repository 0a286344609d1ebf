package memory

import (
	"context"
	"sort"
	"sync"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transaction // keyed by signature
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
	}
}

// Upsert inserts tx or replaces the record with the same signature.
func (s *TransactionStore) Upsert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	copy := *tx

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tx.Signature] = &copy
	return nil
}

// Get returns a transaction by signature.
func (s *TransactionStore) Get(_ context.Context, signature string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *tx
	return &copy, nil
}

// Query returns matching transactions ordered by timestamp DESC, signature ASC.
func (s *TransactionStore) Query(_ context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	var result []*domain.Transaction
	for _, tx := range s.data {
		if !filter.Matches(tx) {
			continue
		}
		copy := *tx
		result = append(result, &copy)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Signature < result[j].Signature
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
