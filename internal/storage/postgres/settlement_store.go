package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-signals/internal/observability"
	"solana-signals/internal/storage"
)

// SettlementStore implements storage.SettlementStore using PostgreSQL. The
// whole settlement runs in one transaction so the trade row, the portfolio
// row and the holding row move together or not at all.
type SettlementStore struct {
	pool *Pool
}

// NewSettlementStore creates a new SettlementStore.
func NewSettlementStore(pool *Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettlementStore = (*SettlementStore)(nil)

// ApplySettlement advances the trade status and writes the portfolio and
// holding changes in one atomic step.
func (s *SettlementStore) ApplySettlement(ctx context.Context, st *storage.Settlement) (err error) {
	if st == nil || st.TradeID == "" || st.Portfolio == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "apply_settlement", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Compare-and-swap on the expected status; FOR UPDATE is implicit in
	// the guarded UPDATE.
	tag, err := tx.Exec(ctx, `
		UPDATE trades
		SET status = $1,
		    tx_reference = CASE WHEN $2 <> '' THEN $2 ELSE tx_reference END,
		    pnl = $3,
		    updated_at = $4
		WHERE trade_id = $5 AND status = $6
	`, string(st.ToStatus), st.TxReference, st.PnL, st.UpdatedAt, st.TradeID, string(st.FromStatus))
	if err != nil {
		return fmt.Errorf("settle trade status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trades WHERE trade_id = $1)`, st.TradeID).Scan(&exists); err != nil {
			return fmt.Errorf("check trade exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}

	p := st.Portfolio
	_, err = tx.Exec(ctx, `
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
	`, p.WalletAddress, p.SolBalance, p.USDBalance, p.DailyTarget,
		p.CurrentPnL, p.WinRate, p.TotalTrades, p.SuccessfulTrades,
		p.FailedTrades, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("settle portfolio: %w", err)
	}

	if st.Holding != nil {
		h := st.Holding
		_, err = tx.Exec(ctx, `
			INSERT INTO holdings (
				token_address, symbol, name, amount,
				entry_price, current_price, pnl_pct, pnl_sol
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (token_address) DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				amount = EXCLUDED.amount,
				entry_price = EXCLUDED.entry_price,
				current_price = EXCLUDED.current_price,
				pnl_pct = EXCLUDED.pnl_pct,
				pnl_sol = EXCLUDED.pnl_sol
		`, h.TokenAddress, h.Symbol, h.Name, h.Amount,
			h.EntryPrice, h.CurrentPrice, h.PnLPct, h.PnLSol)
		if err != nil {
			return fmt.Errorf("settle holding: %w", err)
		}
	} else if st.RemoveHolding != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM holdings WHERE token_address = $1`, st.RemoveHolding); err != nil {
			return fmt.Errorf("settle holding removal: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}
