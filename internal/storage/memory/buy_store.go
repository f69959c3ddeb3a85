package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// BuyStore is an in-memory implementation of storage.BuyStore.
type BuyStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.BuyAttempt // keyed by attempt_id
	bySession map[string]string             // session_id -> attempt_id
}

// NewBuyStore creates a new in-memory buy attempt store.
func NewBuyStore() *BuyStore {
	return &BuyStore{
		data:      make(map[string]*domain.BuyAttempt),
		bySession: make(map[string]string),
	}
}

// Insert adds a build attempt. Returns ErrDuplicateKey if attempt_id or session_id exists.
func (s *BuyStore) Insert(_ context.Context, a *domain.BuyAttempt) error {
	if a == nil || a.AttemptID == "" || a.SessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AttemptID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.bySession[a.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.AttemptID] = copyAttempt(a)
	s.bySession[a.SessionID] = a.AttemptID
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *BuyStore) GetByID(_ context.Context, attemptID string) (*domain.BuyAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[attemptID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAttempt(a), nil
}

// GetBySessionID retrieves the attempt of a session. Returns ErrNotFound if not exists.
func (s *BuyStore) GetBySessionID(_ context.Context, sessionID string) (*domain.BuyAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySession[sessionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAttempt(s.data[id]), nil
}

// GetByTimeRange retrieves attempts built within [start, end] (inclusive).
func (s *BuyStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.BuyAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BuyAttempt
	for _, a := range s.data {
		if a.BuiltAt >= start && a.BuiltAt <= end {
			result = append(result, copyAttempt(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BuiltAt != result[j].BuiltAt {
			return result[i].BuiltAt < result[j].BuiltAt
		}
		return result[i].AttemptID < result[j].AttemptID
	})

	return result, nil
}

// copyAttempt deep-copies the pointer fields.
func copyAttempt(a *domain.BuyAttempt) *domain.BuyAttempt {
	c := *a
	c.TxSignature = copyString(a.TxSignature)
	c.SimulationError = copyString(a.SimulationError)
	c.Error = copyString(a.Error)
	return &c
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Verify interface compliance at compile time.
var _ storage.BuyStore = (*BuyStore)(nil)
