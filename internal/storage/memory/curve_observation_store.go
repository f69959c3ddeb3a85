package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// CurveObservationStore is an in-memory implementation of storage.CurveObservationStore.
type CurveObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CurveObservation // keyed by (session_id, observed_at, slot)
}

// NewCurveObservationStore creates a new in-memory curve observation store.
func NewCurveObservationStore() *CurveObservationStore {
	return &CurveObservationStore{
		data: make(map[string]*domain.CurveObservation),
	}
}

func observationKey(o *domain.CurveObservation) string {
	return fmt.Sprintf("%s|%d|%d", o.SessionID, o.ObservedAt, o.Slot)
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *CurveObservationStore) InsertBulk(_ context.Context, obs []*domain.CurveObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))

	// First pass: check for duplicates (existing + intra-batch)
	for _, o := range obs {
		if o == nil || o.SessionID == "" {
			return storage.ErrInvalidInput
		}
		key := observationKey(o)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, o := range obs {
		obsCopy := *o
		s.data[observationKey(o)] = &obsCopy
	}

	return nil
}

// GetBySessionID retrieves all observations of a session, ordered by observed_at ASC.
func (s *CurveObservationStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.CurveObservation, error) {
	return s.filter(func(o *domain.CurveObservation) bool {
		return o.SessionID == sessionID
	}), nil
}

// GetByTimeRange retrieves observations within [start, end] (inclusive).
func (s *CurveObservationStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.CurveObservation, error) {
	return s.filter(func(o *domain.CurveObservation) bool {
		return o.ObservedAt >= start && o.ObservedAt <= end
	}), nil
}

func (s *CurveObservationStore) filter(match func(*domain.CurveObservation) bool) []*domain.CurveObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CurveObservation
	for _, o := range s.data {
		if match(o) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ObservedAt != b.ObservedAt {
			return a.ObservedAt < b.ObservedAt
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.Slot < b.Slot
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.CurveObservationStore = (*CurveObservationStore)(nil)
