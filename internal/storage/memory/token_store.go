package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenInfo // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenInfo),
	}
}

// Insert adds a decoded token. Returns ErrDuplicateKey if the mint exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TokenInfo) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tokenCopy := *t
	s.data[t.Mint] = &tokenCopy
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByTimeRange retrieves tokens created within [start, end] (inclusive).
func (s *TokenStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenInfo
	for _, t := range s.data {
		ms := t.CreatedAt.UnixMilli()
		if ms >= start && ms <= end {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	// Sort by created_at ASC, mint ASC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
