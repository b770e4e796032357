package memory

import (
	"context"
	"sort"
	"sync"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

// HoldingStore is an in-memory implementation of storage.HoldingStore.
type HoldingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Holding // keyed by token_address
}

// NewHoldingStore creates a new in-memory holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		data: make(map[string]*domain.Holding),
	}
}

var _ storage.HoldingStore = (*HoldingStore)(nil)

// GetAll retrieves all holdings, ordered by token_address ASC.
func (s *HoldingStore) GetAll(_ context.Context) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holding, 0, len(s.data))
	for _, h := range s.data {
		copied := *h
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TokenAddress < result[j].TokenAddress
	})

	return result, nil
}

// GetByToken retrieves one holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) GetByToken(_ context.Context, tokenAddress string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[tokenAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copied := *h
	return &copied, nil
}

// Upsert inserts or replaces a holding keyed by token_address.
func (s *HoldingStore) Upsert(_ context.Context, h *domain.Holding) error {
	if h == nil || h.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *h
	s.data[h.TokenAddress] = &copied
	return nil
}

// Delete removes a holding. Absence is not an error.
func (s *HoldingStore) Delete(_ context.Context, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, tokenAddress)
	return nil
}
