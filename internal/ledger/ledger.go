// Package ledger owns the trade state machine and the portfolio it settles
// into. Trades move requested -> submitted -> confirmed | failed, strictly
// forward; confirmed trades update balances, counters and holdings in one
// atomic settlement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
	"solana-signals/internal/idhash"
	"solana-signals/internal/observability"
	"solana-signals/internal/storage"
)

// Ledger errors.
var (
	// ErrInsufficientBalance rejects a trade the portfolio cannot cover:
	// a buy above the SOL balance or a sell above the open position.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition is returned when a trade is asked to move
	// against the status ladder.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTradeNotFound is returned when the referenced trade does not exist.
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRequest is an incoming trade intent. ClientKey is the caller's
// idempotency key: replaying the same request returns the original trade.
type TradeRequest struct {
	TokenAddress string
	Symbol       string
	Name         string
	Side         domain.TradeSide
	Amount       float64 // SOL
	ClientKey    string
}

// Ledger coordinates trades, the portfolio and holdings.
type Ledger struct {
	trades      storage.TradeStore
	portfolio   storage.PortfolioStore
	holdings    storage.HoldingStore
	settlements storage.SettlementStore

	wallet string
	log    zerolog.Logger
	now    func() time.Time

	// newTxRef generates the submission reference; replaced in tests.
	newTxRef func() string
}

// New creates a Ledger over the given stores for one session wallet.
func New(trades storage.TradeStore, portfolio storage.PortfolioStore, holdings storage.HoldingStore, settlements storage.SettlementStore, wallet string, log zerolog.Logger) *Ledger {
	return &Ledger{
		trades:      trades,
		portfolio:   portfolio,
		holdings:    holdings,
		settlements: settlements,
		wallet:      wallet,
		log:         log.With().Str("component", "ledger").Logger(),
		now:         time.Now,
		newTxRef:    func() string { return uuid.NewString() },
	}
}

// InitPortfolio creates the portfolio row if it does not exist yet.
func (l *Ledger) InitPortfolio(ctx context.Context, startSOL, startUSD, dailyTarget float64) error {
	_, err := l.portfolio.Get(ctx, l.wallet)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load portfolio: %w", err)
	}

	p := &domain.Portfolio{
		WalletAddress: l.wallet,
		SolBalance:    startSOL,
		USDBalance:    startUSD,
		DailyTarget:   dailyTarget,
		UpdatedAt:     l.now().UnixMilli(),
	}
	if err := l.portfolio.Put(ctx, p); err != nil {
		return fmt.Errorf("init portfolio: %w", err)
	}
	l.log.Info().Float64("sol_balance", startSOL).Float64("daily_target", dailyTarget).Msg("portfolio initialized")
	return nil
}

// Portfolio returns the current portfolio state.
func (l *Ledger) Portfolio(ctx context.Context) (*domain.Portfolio, error) {
	p, err := l.portfolio.Get(ctx, l.wallet)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return p, nil
}

// Holdings returns all open positions.
func (l *Ledger) Holdings(ctx context.Context) ([]*domain.Holding, error) {
	return l.holdings.GetAll(ctx)
}

// RecentTrades returns the most recent trades, newest first.
func (l *Ledger) RecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	return l.trades.GetRecent(ctx, limit)
}

// RequestTrade validates and records a trade intent. The trade ID is a hash
// of the request, so replaying the same request returns the already-recorded
// trade instead of opening a second one.
func (l *Ledger) RequestTrade(ctx context.Context, req *TradeRequest) (*domain.Trade, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", storage.ErrInvalidInput)
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return nil, fmt.Errorf("unknown side %q: %w", req.Side, storage.ErrInvalidInput)
	}

	if err := l.checkBalance(ctx, req); err != nil {
		return nil, err
	}

	now := l.now().UnixMilli()
	trade := &domain.Trade{
		ID:           idhash.ComputeTradeID(l.wallet, req.TokenAddress, string(req.Side), req.Amount, req.ClientKey),
		TokenAddress: req.TokenAddress,
		Symbol:       req.Symbol,
		Name:         req.Name,
		Side:         req.Side,
		Amount:       req.Amount,
		Status:       domain.TradeRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := l.trades.Insert(ctx, trade)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Idempotent replay: hand back the original record as it stands.
		existing, getErr := l.trades.GetByID(ctx, trade.ID)
		if getErr != nil {
			return nil, fmt.Errorf("load replayed trade: %w", getErr)
		}
		l.log.Debug().Str("trade_id", trade.ID).Msg("trade request replayed")
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record trade: %w", err)
	}

	observability.RecordTradeRequested(string(req.Side))
	l.log.Info().
		Str("trade_id", trade.ID).
		Str("token", req.TokenAddress).
		Str("side", string(req.Side)).
		Float64("amount_sol", req.Amount).
		Msg("trade requested")
	return trade, nil
}

// checkBalance rejects trades the portfolio cannot cover.
func (l *Ledger) checkBalance(ctx context.Context, req *TradeRequest) error {
	p, err := l.portfolio.Get(ctx, l.wallet)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	switch req.Side {
	case domain.SideBuy:
		if p.SolBalance < req.Amount {
			return fmt.Errorf("buy of %.4f SOL exceeds balance %.4f: %w",
				req.Amount, p.SolBalance, ErrInsufficientBalance)
		}
	case domain.SideSell:
		h, err := l.holdings.GetByToken(ctx, req.TokenAddress)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no open position in %s: %w", req.TokenAddress, ErrInsufficientBalance)
		}
		if err != nil {
			return fmt.Errorf("load holding: %w", err)
		}
		if h.CurrentPrice > 0 && h.Amount*h.CurrentPrice < req.Amount {
			return fmt.Errorf("sell of %.4f SOL exceeds position value %.4f: %w",
				req.Amount, h.Amount*h.CurrentPrice, ErrInsufficientBalance)
		}
	}
	return nil
}

// SubmitTrade moves a requested trade to submitted and stamps it with a
// transaction reference.
func (l *Ledger) SubmitTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	txRef := l.newTxRef()
	err := l.trades.UpdateStatus(ctx, tradeID, domain.TradeRequested, domain.TradeSubmitted, txRef, l.now().UnixMilli())
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			observability.RecordTradeConflict()
		}
		return nil, l.mapTransitionErr(ctx, tradeID, domain.TradeSubmitted, err)
	}
	observability.RecordTradeTransition(string(domain.TradeRequested), string(domain.TradeSubmitted))

	trade, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load submitted trade: %w", err)
	}
	l.log.Info().Str("trade_id", tradeID).Str("tx_reference", txRef).Msg("trade submitted")
	return trade, nil
}

// ConfirmTrade settles a submitted trade at the given execution price. The
// status change, balance update and holding change land atomically.
func (l *Ledger) ConfirmTrade(ctx context.Context, tradeID string, price float64) (*domain.Trade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive: %w", storage.ErrInvalidInput)
	}

	trade, err := l.trades.GetByID(ctx, tradeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load trade: %w", err)
	}
	if !trade.Status.CanTransitionTo(domain.TradeConfirmed) {
		return nil, fmt.Errorf("confirm from %s: %w", trade.Status, ErrInvalidTransition)
	}

	p, err := l.portfolio.Get(ctx, l.wallet)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	settlement, err := l.buildSettlement(ctx, trade, p, price)
	if err != nil {
		return nil, err
	}

	if err := l.settlements.ApplySettlement(ctx, settlement); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			observability.RecordTradeConflict()
			return nil, fmt.Errorf("trade advanced concurrently: %w", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("apply settlement: %w", err)
	}
	observability.RecordTradeTransition(string(trade.Status), string(domain.TradeConfirmed))
	observability.UpdatePortfolio(settlement.Portfolio.SolBalance, settlement.Portfolio.CurrentPnL)

	confirmed, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed trade: %w", err)
	}
	l.log.Info().
		Str("trade_id", tradeID).
		Float64("price", price).
		Float64("pnl_sol", confirmed.PnL).
		Msg("trade confirmed")
	return confirmed, nil
}

// buildSettlement computes the post-trade portfolio and holding state.
func (l *Ledger) buildSettlement(ctx context.Context, trade *domain.Trade, p *domain.Portfolio, price float64) (*storage.Settlement, error) {
	now := l.now().UnixMilli()

	settled := *p
	settled.TotalTrades++
	settled.SuccessfulTrades++
	settled.UpdatedAt = now

	settlement := &storage.Settlement{
		TradeID:    trade.ID,
		FromStatus: trade.Status,
		ToStatus:   domain.TradeConfirmed,
		UpdatedAt:  now,
		Portfolio:  &settled,
	}

	tokenAmount := trade.Amount / price

	switch trade.Side {
	case domain.SideBuy:
		settled.SolBalance -= trade.Amount
		// The request-time check ran against an older balance; another
		// trade may have settled since, so coverage is re-checked here.
		if settled.SolBalance < 0 {
			return nil, fmt.Errorf("confirm of %.4f SOL overdraws balance %.4f: %w",
				trade.Amount, p.SolBalance, ErrInsufficientBalance)
		}

		holding := &domain.Holding{
			TokenAddress: trade.TokenAddress,
			Symbol:       trade.Symbol,
			Name:         trade.Name,
			Amount:       tokenAmount,
			EntryPrice:   price,
			CurrentPrice: price,
		}
		existing, err := l.holdings.GetByToken(ctx, trade.TokenAddress)
		if err == nil {
			// Average into the open position.
			total := existing.Amount + tokenAmount
			holding.Symbol = existing.Symbol
			holding.Name = existing.Name
			holding.Amount = total
			holding.EntryPrice = (existing.EntryPrice*existing.Amount + price*tokenAmount) / total
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load holding: %w", err)
		}
		holding.PnLPct = (price - holding.EntryPrice) / holding.EntryPrice * 100
		holding.PnLSol = (price - holding.EntryPrice) * holding.Amount
		settlement.Holding = holding

	case domain.SideSell:
		existing, err := l.holdings.GetByToken(ctx, trade.TokenAddress)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no open position in %s: %w", trade.TokenAddress, ErrInsufficientBalance)
		}
		if err != nil {
			return nil, fmt.Errorf("load holding: %w", err)
		}
		if tokenAmount > existing.Amount {
			tokenAmount = existing.Amount
		}

		pnl := (price - existing.EntryPrice) * tokenAmount
		settlement.PnL = pnl
		settled.SolBalance += tokenAmount * price
		settled.CurrentPnL += pnl

		remaining := existing.Amount - tokenAmount
		if remaining > 1e-9 {
			h := *existing
			h.Amount = remaining
			h.CurrentPrice = price
			h.PnLPct = (price - h.EntryPrice) / h.EntryPrice * 100
			h.PnLSol = (price - h.EntryPrice) * remaining
			settlement.Holding = &h
		} else {
			settlement.RemoveHolding = trade.TokenAddress
		}
	}

	settled.WinRate = winRate(settled.SuccessfulTrades, settled.TotalTrades)
	return settlement, nil
}

// FailTrade moves a requested or submitted trade to failed and counts the
// failure against the portfolio.
func (l *Ledger) FailTrade(ctx context.Context, tradeID, reason string) (*domain.Trade, error) {
	trade, err := l.trades.GetByID(ctx, tradeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load trade: %w", err)
	}
	if !trade.Status.CanTransitionTo(domain.TradeFailed) {
		return nil, fmt.Errorf("fail from %s: %w", trade.Status, ErrInvalidTransition)
	}

	p, err := l.portfolio.Get(ctx, l.wallet)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	now := l.now().UnixMilli()
	settled := *p
	settled.TotalTrades++
	settled.FailedTrades++
	settled.WinRate = winRate(settled.SuccessfulTrades, settled.TotalTrades)
	settled.UpdatedAt = now

	err = l.settlements.ApplySettlement(ctx, &storage.Settlement{
		TradeID:    trade.ID,
		FromStatus: trade.Status,
		ToStatus:   domain.TradeFailed,
		UpdatedAt:  now,
		Portfolio:  &settled,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			observability.RecordTradeConflict()
			return nil, fmt.Errorf("trade advanced concurrently: %w", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("apply failure: %w", err)
	}
	observability.RecordTradeTransition(string(trade.Status), string(domain.TradeFailed))

	failed, err := l.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load failed trade: %w", err)
	}
	l.log.Warn().Str("trade_id", tradeID).Str("reason", reason).Msg("trade failed")
	return failed, nil
}

// RevalueHoldings refreshes current prices and unrealized PnL. Tokens absent
// from prices keep their previous valuation.
func (l *Ledger) RevalueHoldings(ctx context.Context, prices map[string]float64) error {
	all, err := l.holdings.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	for _, h := range all {
		price, ok := prices[h.TokenAddress]
		if !ok || price <= 0 {
			continue
		}
		h.CurrentPrice = price
		if h.EntryPrice > 0 {
			h.PnLPct = (price - h.EntryPrice) / h.EntryPrice * 100
			h.PnLSol = (price - h.EntryPrice) * h.Amount
		}
		if err := l.holdings.Upsert(ctx, h); err != nil {
			return fmt.Errorf("revalue holding %s: %w", h.TokenAddress, err)
		}
	}
	return nil
}

// ResetDaily zeroes the daily PnL counter at the session boundary. Trade
// counters and balances carry over.
func (l *Ledger) ResetDaily(ctx context.Context) error {
	p, err := l.portfolio.Get(ctx, l.wallet)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	p.CurrentPnL = 0
	p.UpdatedAt = l.now().UnixMilli()
	if err := l.portfolio.Put(ctx, p); err != nil {
		return fmt.Errorf("reset daily pnl: %w", err)
	}
	l.log.Info().Msg("daily pnl reset")
	return nil
}

// mapTransitionErr translates store errors into the ledger taxonomy.
func (l *Ledger) mapTransitionErr(ctx context.Context, tradeID string, to domain.TradeStatus, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrTradeNotFound
	case errors.Is(err, storage.ErrConflict):
		trade, getErr := l.trades.GetByID(ctx, tradeID)
		if getErr == nil {
			return fmt.Errorf("cannot move %s -> %s: %w", trade.Status, to, ErrInvalidTransition)
		}
		return ErrInvalidTransition
	default:
		return fmt.Errorf("update trade status: %w", err)
	}
}

func winRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}
