package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

// UpdateStatusStore is an in-memory implementation of storage.UpdateStatusStore.
type UpdateStatusStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.UpdateStatus
	order []string // insertion order, breaks StartedAt ties
}

// NewUpdateStatusStore creates a new in-memory update status store.
func NewUpdateStatusStore() *UpdateStatusStore {
	return &UpdateStatusStore{
		data: make(map[string]*domain.UpdateStatus),
	}
}

// Create adds a new status record. Returns ErrDuplicateKey if the id exists.
func (s *UpdateStatusStore) Create(_ context.Context, st *domain.UpdateStatus) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[st.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *st
	s.data[st.ID] = &copy
	s.order = append(s.order, st.ID)
	return nil
}

// Update overwrites a record that has not reached a terminal state.
func (s *UpdateStatusStore) Update(_ context.Context, st *domain.UpdateStatus) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[st.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if existing.Status.IsTerminal() {
		return fmt.Errorf("%w: update %s already %s", storage.ErrInvalidInput, st.ID, existing.Status)
	}

	copy := *st
	s.data[st.ID] = &copy
	return nil
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

// List returns records ordered by StartedAt DESC.
func (s *UpdateStatusStore) List(_ context.Context, limit int) ([]*domain.UpdateStatus, error) {
	s.mu.RLock()
	result := make([]*domain.UpdateStatus, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		copy := *s.data[s.order[i]]
		result = append(result, &copy)
	}
	s.mu.RUnlock()

	// Newest insert first among equal start times.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt > result[j].StartedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// FailInProgress marks every in-progress record failed.
func (s *UpdateStatusStore) FailInProgress(_ context.Context, reason string, at int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, st := range s.data {
		if st.Status != domain.UpdateInProgress {
			continue
		}
		st.Status = domain.UpdateFailed
		st.Error = reason
		st.LastUpdated = at
		n++
	}
	return n, nil
}

var _ storage.UpdateStatusStore = (*UpdateStatusStore)(nil)
