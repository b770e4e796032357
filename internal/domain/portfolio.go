package domain

// Portfolio tracks a session's balances and daily target progress.
// Mutated only by confirmed trades; CurrentPnL resets at the daily boundary.
type Portfolio struct {
	WalletAddress    string  `json:"-"`
	SolBalance       float64 `json:"sol_balance"`
	USDBalance       float64 `json:"usd_balance"`
	DailyTarget      float64 `json:"daily_target"`
	CurrentPnL       float64 `json:"current_pnl"`
	WinRate          float64 `json:"win_rate"`
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	FailedTrades     int     `json:"failed_trades"`
	UpdatedAt        int64   `json:"-"`
}

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeStatus is one state of the trade state machine. Transitions are
// one-directional: requested -> submitted -> confirmed | failed.
type TradeStatus string

const (
	TradeRequested TradeStatus = "requested"
	TradeSubmitted TradeStatus = "submitted"
	TradeConfirmed TradeStatus = "confirmed"
	TradeFailed    TradeStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TradeStatus) Terminal() bool {
	return s == TradeConfirmed || s == TradeFailed
}

// CanTransitionTo reports whether the status ladder allows moving from s
// to next.
func (s TradeStatus) CanTransitionTo(next TradeStatus) bool {
	switch s {
	case TradeRequested:
		return next == TradeSubmitted || next == TradeFailed
	case TradeSubmitted:
		return next == TradeConfirmed || next == TradeFailed
	default:
		return false
	}
}

// Trade is one trade attempt. Records are append-only: status and
// tx_reference advance, nothing is ever deleted.
type Trade struct {
	ID           string      `json:"trade_id"`
	TokenAddress string      `json:"token_address"`
	Symbol       string      `json:"symbol,omitempty"`
	Name         string      `json:"name,omitempty"`
	Side         TradeSide   `json:"side"`
	Amount       float64     `json:"amount"` // SOL
	Status       TradeStatus `json:"status"`
	TxReference  string      `json:"tx_reference,omitempty"`
	PnL          float64     `json:"pnl,omitempty"` // realized on confirm, SOL
	CreatedAt    int64       `json:"created_at"`    // Unix timestamp in milliseconds
	UpdatedAt    int64       `json:"updated_at"`
}

// Holding is one open position valued at the latest observed price.
type Holding struct {
	TokenAddress string  `json:"token_address"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	PnLPct       float64 `json:"pnl_pct"`
	PnLSol       float64 `json:"pnl_sol"`
}
