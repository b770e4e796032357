package storage

import (
	"context"

	"solana-signals/internal/domain"
)

// TradeStore provides access to trades storage. Trade rows are append-only
// except for the status ladder: status and tx_reference advance, nothing is
// deleted.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByToken retrieves all trades for a token, ordered by created_at ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Trade, error)

	// GetRecent retrieves the most recent trades, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.Trade, error)

	// UpdateStatus advances a trade from one status to another. Returns
	// ErrNotFound if the trade does not exist and ErrConflict if its current
	// status is not from. txReference replaces the stored reference when
	// non-empty.
	UpdateStatus(ctx context.Context, tradeID string, from, to domain.TradeStatus, txReference string, updatedAt int64) error
}

// PortfolioStore provides access to the session portfolio row.
type PortfolioStore interface {
	// Get retrieves the portfolio for a wallet. Returns ErrNotFound if the
	// wallet has never been initialized.
	Get(ctx context.Context, walletAddress string) (*domain.Portfolio, error)

	// Put inserts or replaces the portfolio row.
	Put(ctx context.Context, p *domain.Portfolio) error
}

// HoldingStore provides access to open positions.
type HoldingStore interface {
	// GetAll retrieves all holdings, ordered by token_address ASC.
	GetAll(ctx context.Context) ([]*domain.Holding, error)

	// GetByToken retrieves one holding. Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, tokenAddress string) (*domain.Holding, error)

	// Upsert inserts or replaces a holding keyed by token_address.
	Upsert(ctx context.Context, h *domain.Holding) error

	// Delete removes a holding. Absence is not an error.
	Delete(ctx context.Context, tokenAddress string) error
}

// Settlement is everything one terminal trade transition changes. The
// settlement store applies all of it atomically so a crash can never leave a
// confirmed trade without its balance update.
type Settlement struct {
	TradeID     string
	FromStatus  domain.TradeStatus
	ToStatus    domain.TradeStatus
	TxReference string
	PnL         float64
	UpdatedAt   int64

	// Portfolio is the full post-trade portfolio state.
	Portfolio *domain.Portfolio

	// Holding replaces the position row when non-nil. RemoveHolding names a
	// token whose position closed entirely. At most one of the two is set.
	Holding       *domain.Holding
	RemoveHolding string
}

// SettlementStore applies trade settlements.
type SettlementStore interface {
	// ApplySettlement advances the trade status and writes the portfolio and
	// holding changes in one atomic step. Returns ErrNotFound if the trade
	// does not exist and ErrConflict if its status is not FromStatus.
	ApplySettlement(ctx context.Context, s *Settlement) error
}

// SignalArchiveStore keeps every computed signal for offline analysis.
// Append-only; the query path never reads from it.
type SignalArchiveStore interface {
	// InsertBulk archives a batch of computed signals.
	InsertBulk(ctx context.Context, signals []*domain.TokenSignal) error

	// GetByToken retrieves the most recent archived signals for a token,
	// newest first.
	GetByToken(ctx context.Context, tokenAddress string, limit int) ([]*domain.TokenSignal, error)
}
