package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-signals/internal/domain"
	"solana-signals/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, token_address, symbol, name, side, amount, status,
	tx_reference, pnl, created_at, updated_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	query := `
		INSERT INTO trades (
			trade_id, token_address, symbol, name, side, amount, status,
			tx_reference, pnl, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.TokenAddress, t.Symbol, t.Name, string(t.Side), t.Amount, string(t.Status),
		t.TxReference, t.PnL, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByToken retrieves all trades for a token, ordered by created_at ASC.
func (s *TradeStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_address = $1
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetRecent retrieves the most recent trades, newest first.
func (s *TradeStore) GetRecent(ctx context.Context, limit int) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY created_at DESC, trade_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// UpdateStatus advances a trade through the status ladder. The WHERE clause
// on the current status makes the transition a compare-and-swap.
func (s *TradeStore) UpdateStatus(ctx context.Context, tradeID string, from, to domain.TradeStatus, txReference string, updatedAt int64) error {
	query := `
		UPDATE trades
		SET status = $1,
		    tx_reference = CASE WHEN $2 <> '' THEN $2 ELSE tx_reference END,
		    updated_at = $3
		WHERE trade_id = $4 AND status = $5
	`

	tag, err := s.pool.Exec(ctx, query, string(to), txReference, updatedAt, tradeID, string(from))
	if err != nil {
		return fmt.Errorf("update trade status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing trade from a status mismatch.
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trades WHERE trade_id = $1)`, tradeID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check trade exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var side, status string

	err := row.Scan(
		&t.ID, &t.TokenAddress, &t.Symbol, &t.Name, &side, &t.Amount, &status,
		&t.TxReference, &t.PnL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.TradeSide(side)
	t.Status = domain.TradeStatus(status)
	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
