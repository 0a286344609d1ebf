package memory

import (
	"context"
	"errors"
	"testing"

	"solana-holder-tracker/internal/domain"
	"solana-holder-tracker/internal/storage"
)

func TestUpdateStatusStore_Lifecycle(t *testing.T) {
	store := NewUpdateStatusStore()
	ctx := context.Background()

	st := &domain.UpdateStatus{ID: "u1", Status: domain.UpdateInProgress, StartedAt: 1000, LastUpdated: 1000}
	if err := store.Create(ctx, st); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, st); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	done := *st
	done.Status = domain.UpdateCompleted
	done.TotalHolders = 60
	done.Source = domain.SourceLedger
	done.LastUpdated = 2000
	if err := store.Update(ctx, &done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Status != domain.UpdateCompleted || latest.TotalHolders != 60 {
		t.Errorf("Unexpected latest: %+v", latest)
	}

	again := done
	again.Status = domain.UpdateFailed
	if err := store.Update(ctx, &again); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for terminal record, got %v", err)
	}
}

func TestUpdateStatusStore_UpdateUnknown(t *testing.T) {
	store := NewUpdateStatusStore()
	err := store.Update(context.Background(), &domain.UpdateStatus{ID: "nope", Status: domain.UpdateFailed})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusStore_LatestEmpty(t *testing.T) {
	store := NewUpdateStatusStore()
	if _, err := store.Latest(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusStore_ListNewestFirst(t *testing.T) {
	store := NewUpdateStatusStore()
	ctx := context.Background()

	_ = store.Create(ctx, &domain.UpdateStatus{ID: "a", Status: domain.UpdateCompleted, StartedAt: 1000})
	_ = store.Create(ctx, &domain.UpdateStatus{ID: "b", Status: domain.UpdateCompleted, StartedAt: 3000})
	_ = store.Create(ctx, &domain.UpdateStatus{ID: "c", Status: domain.UpdateFailed, StartedAt: 2000})
	_ = store.Create(ctx, &domain.UpdateStatus{ID: "d", Status: domain.UpdateInProgress, StartedAt: 3000})

	list, _ := store.List(ctx, 0)
	want := []string{"d", "b", "c", "a"}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, list[i].ID, id)
		}
	}

	limited, _ := store.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("Expected 2, got %d", len(limited))
	}
}

func TestUpdateStatusStore_FailInProgress(t *testing.T) {
	store := NewUpdateStatusStore()
	ctx := context.Background()

	for _, st := range []*domain.UpdateStatus{
		{ID: "a", Status: domain.UpdateInProgress, StartedAt: 1000, LastUpdated: 1000},
		{ID: "b", Status: domain.UpdateInProgress, StartedAt: 2000, LastUpdated: 2000},
		{ID: "c", Status: domain.UpdateCompleted, StartedAt: 3000, LastUpdated: 3000},
	} {
		if err := store.Create(ctx, st); err != nil {
			t.Fatalf("Create %s failed: %v", st.ID, err)
		}
	}

	n, err := store.FailInProgress(ctx, "restarted", 9000)
	if err != nil {
		t.Fatalf("FailInProgress failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 records changed, got %d", n)
	}

	list, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, st := range list {
		switch st.ID {
		case "a", "b":
			if st.Status != domain.UpdateFailed || st.Error != "restarted" || st.LastUpdated != 9000 {
				t.Errorf("Expected %s failed at 9000, got %+v", st.ID, st)
			}
		case "c":
			if st.Status != domain.UpdateCompleted || st.LastUpdated != 3000 {
				t.Errorf("Completed record changed: %+v", st)
			}
		}
	}

	n, err = store.FailInProgress(ctx, "restarted", 9500)
	if err != nil || n != 0 {
		t.Errorf("Expected no changes on second sweep, got %d, %v", n, err)
	}
}
