package postgres

import (
	"context"
	"fmt"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// Get retrieves the portfolio for a wallet. Returns ErrNotFound if the
// wallet has never been initialized.
func (s *PortfolioStore) Get(ctx context.Context, walletAddress string) (*domain.Portfolio, error) {
	query := `
		SELECT wallet_address, sol_balance, usd_balance, daily_target,
		       current_pnl, win_rate, total_trades, successful_trades,
		       failed_trades, updated_at
		FROM portfolios
		WHERE wallet_address = $1
	`

	var p domain.Portfolio
	err := s.pool.QueryRow(ctx, query, walletAddress).Scan(
		&p.WalletAddress, &p.SolBalance, &p.USDBalance, &p.DailyTarget,
		&p.CurrentPnL, &p.WinRate, &p.TotalTrades, &p.SuccessfulTrades,
		&p.FailedTrades, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return &p, nil
}

// Put inserts or replaces the portfolio row.
func (s *PortfolioStore) Put(ctx context.Context, p *domain.Portfolio) error {
	query := `
		INSERT INTO portfolios (
			wallet_address, sol_balance, usd_balance, daily_target,
			current_pnl, win_rate, total_trades, successful_trades,
			failed_trades, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (wallet_address) DO UPDATE SET
			sol_balance = EXCLUDED.sol_balance,
			usd_balance = EXCLUDED.usd_balance,
			daily_target = EXCLUDED.daily_target,
			current_pnl = EXCLUDED.current_pnl,
			win_rate = EXCLUDED.win_rate,
			total_trades = EXCLUDED.total_trades,
			successful_trades = EXCLUDED.successful_trades,
			failed_trades = EXCLUDED.failed_trades,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		p.WalletAddress, p.SolBalance, p.USDBalance, p.DailyTarget,
		p.CurrentPnL, p.WinRate, p.TotalTrades, p.SuccessfulTrades,
		p.FailedTrades, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put portfolio: %w", err)
	}
	return nil
}
