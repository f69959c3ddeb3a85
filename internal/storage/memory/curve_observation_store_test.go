package memory

import (
	"context"
	"errors"
	"testing"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

func TestCurveObservationStore_InsertAndGet(t *testing.T) {
	store := NewCurveObservationStore()
	ctx := context.Background()

	obs := []*domain.CurveObservation{
		{SessionID: "s1", ObservedAt: 2000, Slot: 11, MarketCapUSD: 5000},
		{SessionID: "s1", ObservedAt: 1000, Slot: 10, MarketCapUSD: 4000},
		{SessionID: "s2", ObservedAt: 1500, Slot: 10, MarketCapUSD: 100},
	}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetBySessionID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(result))
	}
	if result[0].ObservedAt != 1000 {
		t.Errorf("Results not sorted by observed_at ASC")
	}

	ranged, _ := store.GetByTimeRange(ctx, 1200, 2000)
	if len(ranged) != 2 {
		t.Errorf("Expected 2 observations in range, got %d", len(ranged))
	}
}

func TestCurveObservationStore_DuplicateKey(t *testing.T) {
	store := NewCurveObservationStore()
	ctx := context.Background()

	obs := []*domain.CurveObservation{{SessionID: "s1", ObservedAt: 1000, Slot: 10}}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, obs); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestCurveObservationStore_IntraBatchDuplicate(t *testing.T) {
	store := NewCurveObservationStore()
	ctx := context.Background()

	obs := []*domain.CurveObservation{
		{SessionID: "s1", ObservedAt: 1000, Slot: 10},
		{SessionID: "s1", ObservedAt: 1000, Slot: 10},
	}
	if err := store.InsertBulk(ctx, obs); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify nothing was inserted
	result, _ := store.GetBySessionID(ctx, "s1")
	if len(result) != 0 {
		t.Errorf("Expected 0 observations (rollback), got %d", len(result))
	}
}
