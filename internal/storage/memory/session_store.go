package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SessionOutcome // keyed by session_id
}

// NewSessionStore creates a new in-memory session outcome store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.SessionOutcome),
	}
}

// Insert adds a terminal session. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(_ context.Context, o *domain.SessionOutcome) error {
	if o == nil || o.SessionID == "" || !o.Status.Terminal() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	outcomeCopy := *o
	s.data[o.SessionID] = &outcomeCopy
	return nil
}

// GetByID retrieves an outcome by session ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(_ context.Context, sessionID string) (*domain.SessionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[sessionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	outcomeCopy := *o
	return &outcomeCopy, nil
}

// GetByBatchID retrieves all outcomes of a batch, ordered by decided_at ASC.
func (s *SessionStore) GetByBatchID(_ context.Context, batchID string) ([]*domain.SessionOutcome, error) {
	return s.filter(func(o *domain.SessionOutcome) bool {
		return o.BatchID == batchID
	}), nil
}

// GetByTimeRange retrieves outcomes decided within [start, end] (inclusive).
func (s *SessionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SessionOutcome, error) {
	return s.filter(func(o *domain.SessionOutcome) bool {
		return o.DecidedAt >= start && o.DecidedAt <= end
	}), nil
}

func (s *SessionStore) filter(match func(*domain.SessionOutcome) bool) []*domain.SessionOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SessionOutcome
	for _, o := range s.data {
		if match(o) {
			outcomeCopy := *o
			result = append(result, &outcomeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DecidedAt != result[j].DecidedAt {
			return result[i].DecidedAt < result[j].DecidedAt
		}
		return result[i].SessionID < result[j].SessionID
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.SessionStore = (*SessionStore)(nil)
