package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

// HoldingStore implements storage.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *Pool
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(pool *Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

const holdingColumns = `
	token_address, symbol, name, amount,
	entry_price, current_price, pnl_pct, pnl_sol
`

// GetAll retrieves all holdings, ordered by token_address ASC.
func (s *HoldingStore) GetAll(ctx context.Context) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings ORDER BY token_address ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all holdings: %w", err)
	}
	defer rows.Close()

	return scanHoldings(rows)
}

// GetByToken retrieves one holding. Returns ErrNotFound if not exists.
func (s *HoldingStore) GetByToken(ctx context.Context, tokenAddress string) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE token_address = $1`

	row := s.pool.QueryRow(ctx, query, tokenAddress)
	h, err := scanHolding(row)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holding by token: %w", err)
	}
	return h, nil
}

// Upsert inserts or replaces a holding keyed by token_address.
func (s *HoldingStore) Upsert(ctx context.Context, h *domain.Holding) error {
	query := `
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
	`

	_, err := s.pool.Exec(ctx, query,
		h.TokenAddress, h.Symbol, h.Name, h.Amount,
		h.EntryPrice, h.CurrentPrice, h.PnLPct, h.PnLSol,
	)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

// Delete removes a holding. Absence is not an error.
func (s *HoldingStore) Delete(ctx context.Context, tokenAddress string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM holdings WHERE token_address = $1`, tokenAddress)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return nil
}

// scanHolding scans a single row into a Holding.
func scanHolding(row pgx.Row) (*domain.Holding, error) {
	var h domain.Holding

	err := row.Scan(
		&h.TokenAddress, &h.Symbol, &h.Name, &h.Amount,
		&h.EntryPrice, &h.CurrentPrice, &h.PnLPct, &h.PnLSol,
	)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// scanHoldings scans multiple rows into a slice of Holding.
func scanHoldings(rows pgx.Rows) ([]*domain.Holding, error) {
	var holdings []*domain.Holding

	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}

	return holdings, nil
}
