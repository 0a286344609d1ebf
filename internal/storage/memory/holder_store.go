package memory

import (
	"context"
	"sort"
	"sync"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu        sync.RWMutex
	holders   []*domain.Holder // ordered by rank ASC
	byAddress map[string]*domain.Holder
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		byAddress: make(map[string]*domain.Holder),
	}
}

// ReplaceAll swaps the snapshot. The batch is validated before anything changes.
func (s *HolderStore) ReplaceAll(_ context.Context, holders []*domain.Holder) error {
	next := make([]*domain.Holder, 0, len(holders))
	byAddress := make(map[string]*domain.Holder, len(holders))

	for _, h := range holders {
		if h == nil || h.Address == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := byAddress[h.Address]; exists {
			return storage.ErrDuplicateKey
		}
		copy := h.Clone()
		next = append(next, copy)
		byAddress[h.Address] = copy
	}

	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Rank < next[j].Rank
	})

	s.mu.Lock()
	s.holders = next
	s.byAddress = byAddress
	s.mu.Unlock()
	return nil
}

// List returns holders ordered by rank ASC.
func (s *HolderStore) List(_ context.Context, limit int) ([]*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.holders)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*domain.Holder, 0, n)
	for _, h := range s.holders[:n] {
		result = append(result, h.Clone())
	}
	return result, nil
}

// Get returns a holder by address.
func (s *HolderStore) Get(_ context.Context, address string) (*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.byAddress[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return h.Clone(), nil
}

// Count returns the snapshot size.
func (s *HolderStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.holders), nil
}

var _ storage.HolderStore = (*HolderStore)(nil)
