// Package httpapi exposes the signal, portfolio and trade surface over HTTP.
// Every response carries the success envelope; failures add an error string.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
	"solana-signals/internal/ledger"
	"solana-signals/internal/query"
	"solana-signals/internal/storage"
)

// SignalReader is the slice of the query service the handlers need.
type SignalReader interface {
	AnalyzeToken(ctx context.Context, tokenAddress string) (*domain.TokenSignal, bool, error)
	ListSignals(ctx context.Context, minScore, limit int) (*query.SignalList, bool, error)
}

// TradeDesk is the slice of the ledger the handlers need.
type TradeDesk interface {
	Portfolio(ctx context.Context) (*domain.Portfolio, error)
	Holdings(ctx context.Context) ([]*domain.Holding, error)
	RecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error)
	RequestTrade(ctx context.Context, req *ledger.TradeRequest) (*domain.Trade, error)
	SubmitTrade(ctx context.Context, tradeID string) (*domain.Trade, error)
	ConfirmTrade(ctx context.Context, tradeID string, price float64) (*domain.Trade, error)
	FailTrade(ctx context.Context, tradeID, reason string) (*domain.Trade, error)
}

// Handlers serves all API endpoints.
type Handlers struct {
	signals SignalReader
	desk    TradeDesk
	log     zerolog.Logger
	now     func() time.Time
}

// NewHandlers wires the API handlers.
func NewHandlers(signals SignalReader, desk TradeDesk, log zerolog.Logger) *Handlers {
	return &Handlers{
		signals: signals,
		desk:    desk,
		log:     log.With().Str("component", "httpapi").Logger(),
		now:     time.Now,
	}
}

// Health answers GET /api.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "ok",
		"timestamp": h.now().UnixMilli(),
	})
}

// Signals answers GET /api/signals?min_score&limit.
func (h *Handlers) Signals(w http.ResponseWriter, r *http.Request) {
	minScore := intQuery(r, "min_score", 0)
	limit := intQuery(r, "limit", query.DefaultListLimit)

	list, usingReal, err := h.signals.ListSignals(r.Context(), minScore, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"signals":         list.Signals,
		"count":           list.Count,
		"using_real_data": usingReal,
		"generated_at":    list.GeneratedAt,
	})
}

// Analyze answers GET /api/analyze/{tokenAddress}.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["tokenAddress"]

	sig, usingReal, err := h.signals.AnalyzeToken(r.Context(), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"signal":          sig,
		"using_real_data": usingReal,
	})
}

// Portfolio answers GET /api/portfolio.
func (h *Handlers) Portfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.desk.Portfolio(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"portfolio": p,
	})
}

// Holdings answers GET /api/holdings.
func (h *Handlers) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.desk.Holdings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	totalValue := 0.0
	for _, hold := range holdings {
		totalValue += hold.Amount * hold.CurrentPrice
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"holdings":        holdings,
		"count":           len(holdings),
		"total_value_sol": totalValue,
	})
}

// Trades answers GET /api/trades?limit.
func (h *Handlers) Trades(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 20)

	trades, err := h.desk.RecentTrades(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"trades":  trades,
		"count":   len(trades),
	})
}

// tradeBody is the POST /api/trade request payload.
type tradeBody struct {
	TokenAddress string  `json:"token_address"`
	Side         string  `json:"side"`
	Amount       float64 `json:"amount"`
	ClientKey    string  `json:"client_key"`
}

// Trade answers POST /api/trade. The trade runs the full paper ladder in one
// request: requested, submitted, then confirmed at the token's current price.
// A trade that cannot be priced or settled lands in failed.
func (h *Handlers) Trade(w http.ResponseWriter, r *http.Request) {
	var body tradeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Pricing rides the signal cache, so a hot token costs no extra fetch.
	sig, _, err := h.signals.AnalyzeToken(r.Context(), body.TokenAddress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	trade, err := h.desk.RequestTrade(r.Context(), &ledger.TradeRequest{
		TokenAddress: body.TokenAddress,
		Symbol:       sig.Symbol,
		Name:         sig.Name,
		Side:         domain.TradeSide(body.Side),
		Amount:       body.Amount,
		ClientKey:    body.ClientKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if trade.Status != domain.TradeRequested {
		// Idempotent replay of a trade that already advanced.
		writeTrade(w, trade)
		return
	}

	if trade, err = h.desk.SubmitTrade(r.Context(), trade.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	confirmed, err := h.desk.ConfirmTrade(r.Context(), trade.ID, sig.CurrentPrice)
	if err != nil {
		h.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("trade confirmation failed")
		failed, failErr := h.desk.FailTrade(r.Context(), trade.ID, err.Error())
		if failErr != nil {
			h.writeError(w, r, failErr)
			return
		}
		writeTrade(w, failed)
		return
	}

	writeTrade(w, confirmed)
}

// NotFound answers unmatched routes inside the API prefix.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "route not found")
}

func writeTrade(w http.ResponseWriter, trade *domain.Trade) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"trade_id":     trade.ID,
		"status":       trade.Status,
		"tx_reference": trade.TxReference,
		"pnl":          trade.PnL,
	})
}

// writeError maps a service error onto its HTTP status and envelope.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

// statusFor maps the service error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrTokenNotFound),
		errors.Is(err, ledger.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, query.ErrScoringUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
