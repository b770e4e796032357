package memory

import (
	"context"
	"sync"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
type PortfolioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Portfolio // keyed by wallet_address
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		data: make(map[string]*domain.Portfolio),
	}
}

var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// Get retrieves the portfolio for a wallet. Returns ErrNotFound if the
// wallet has never been initialized.
func (s *PortfolioStore) Get(_ context.Context, walletAddress string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[walletAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copied := *p
	return &copied, nil
}

// Put inserts or replaces the portfolio row.
func (s *PortfolioStore) Put(_ context.Context, p *domain.Portfolio) error {
	if p == nil || p.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.data[p.WalletAddress] = &copied
	return nil
}
