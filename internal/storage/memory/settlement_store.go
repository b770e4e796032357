package memory

import (
	"context"
	"sync"

	"solana-signals/internal/storage"
)

// SettlementStore applies settlements across the in-memory stores. A single
// mutex spanning all three stores is the in-memory stand-in for the
// transactional settlement postgres provides.
type SettlementStore struct {
	mu        sync.Mutex
	trades    *TradeStore
	portfolio *PortfolioStore
	holdings  *HoldingStore
}

// NewSettlementStore creates a settlement store over the given backends.
func NewSettlementStore(trades *TradeStore, portfolio *PortfolioStore, holdings *HoldingStore) *SettlementStore {
	return &SettlementStore{
		trades:    trades,
		portfolio: portfolio,
		holdings:  holdings,
	}
}

var _ storage.SettlementStore = (*SettlementStore)(nil)

// ApplySettlement advances the trade status and writes the portfolio and
// holding changes under one lock. The status check runs first so a conflict
// leaves the other stores untouched.
func (s *SettlementStore) ApplySettlement(ctx context.Context, st *storage.Settlement) error {
	if st == nil || st.TradeID == "" || st.Portfolio == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades.mu.Lock()
	trade, exists := s.trades.data[st.TradeID]
	if !exists {
		s.trades.mu.Unlock()
		return storage.ErrNotFound
	}
	if trade.Status != st.FromStatus {
		s.trades.mu.Unlock()
		return storage.ErrConflict
	}
	trade.Status = st.ToStatus
	if st.TxReference != "" {
		trade.TxReference = st.TxReference
	}
	trade.PnL = st.PnL
	trade.UpdatedAt = st.UpdatedAt
	s.trades.mu.Unlock()

	if err := s.portfolio.Put(ctx, st.Portfolio); err != nil {
		return err
	}

	if st.Holding != nil {
		return s.holdings.Upsert(ctx, st.Holding)
	}
	if st.RemoveHolding != "" {
		return s.holdings.Delete(ctx, st.RemoveHolding)
	}
	return nil
}
