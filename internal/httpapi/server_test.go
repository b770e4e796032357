package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
	"solana-signals/internal/ledger"
	"solana-signals/internal/query"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

type fakeSignals struct {
	sig        *domain.TokenSignal
	list       *query.SignalList
	usingReal  bool
	analyzeErr error
	listErr    error
}

func (f *fakeSignals) AnalyzeToken(_ context.Context, address string) (*domain.TokenSignal, bool, error) {
	if f.analyzeErr != nil {
		return nil, false, f.analyzeErr
	}
	return f.sig, f.usingReal, nil
}

func (f *fakeSignals) ListSignals(context.Context, int, int) (*query.SignalList, bool, error) {
	if f.listErr != nil {
		return nil, false, f.listErr
	}
	return f.list, f.usingReal, nil
}

// fakeDesk walks one trade through the ladder in memory.
type fakeDesk struct {
	portfolio  *domain.Portfolio
	holdings   []*domain.Holding
	trade      *domain.Trade
	requestErr error
	confirmErr error
}

func (f *fakeDesk) Portfolio(context.Context) (*domain.Portfolio, error) {
	return f.portfolio, nil
}

func (f *fakeDesk) Holdings(context.Context) ([]*domain.Holding, error) {
	return f.holdings, nil
}

func (f *fakeDesk) RecentTrades(context.Context, int) ([]*domain.Trade, error) {
	if f.trade == nil {
		return nil, nil
	}
	return []*domain.Trade{f.trade}, nil
}

func (f *fakeDesk) RequestTrade(_ context.Context, req *ledger.TradeRequest) (*domain.Trade, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	if f.trade == nil {
		f.trade = &domain.Trade{
			ID:           "trade-1",
			TokenAddress: req.TokenAddress,
			Side:         req.Side,
			Amount:       req.Amount,
			Status:       domain.TradeRequested,
		}
	}
	return f.trade, nil
}

func (f *fakeDesk) SubmitTrade(_ context.Context, tradeID string) (*domain.Trade, error) {
	f.trade.Status = domain.TradeSubmitted
	f.trade.TxReference = "tx-ref-1"
	return f.trade, nil
}

func (f *fakeDesk) ConfirmTrade(_ context.Context, tradeID string, price float64) (*domain.Trade, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	f.trade.Status = domain.TradeConfirmed
	return f.trade, nil
}

func (f *fakeDesk) FailTrade(_ context.Context, tradeID, reason string) (*domain.Trade, error) {
	f.trade.Status = domain.TradeFailed
	return f.trade, nil
}

func newTestServer(signals *fakeSignals, desk *fakeDesk) *Server {
	handlers := NewHandlers(signals, desk, zerolog.Nop())
	return NewServer(DefaultServerConfig(), handlers, zerolog.Nop())
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeSignals{}, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["success"] != true || resp["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestSignals(t *testing.T) {
	signals := &fakeSignals{
		list: &query.SignalList{
			Signals: []*domain.TokenSignal{{TokenAddress: testMint, CombinedScore: 81}},
			Count:   1,
		},
		usingReal: true,
	}
	srv := newTestServer(signals, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/signals?min_score=70&limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["count"] != float64(1) || resp["using_real_data"] != true {
		t.Errorf("unexpected list payload: %v", resp)
	}
}

func TestSignals_Unavailable(t *testing.T) {
	srv := newTestServer(&fakeSignals{listErr: query.ErrScoringUnavailable}, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/signals", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp["success"] != false || resp["error"] == "" {
		t.Errorf("expected error envelope, got %v", resp)
	}
}

func TestAnalyze(t *testing.T) {
	signals := &fakeSignals{
		sig:       &domain.TokenSignal{TokenAddress: testMint, CombinedScore: 81, SignalType: domain.SignalStrongBuy},
		usingReal: true,
	}
	srv := newTestServer(signals, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/analyze/"+testMint, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	sig, ok := resp["signal"].(map[string]any)
	if !ok || sig["token_address"] != testMint {
		t.Errorf("unexpected analyze payload: %v", resp)
	}
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid address", query.ErrInvalidAddress, http.StatusBadRequest},
		{"not found", query.ErrTokenNotFound, http.StatusNotFound},
		{"unavailable", query.ErrScoringUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeSignals{analyzeErr: tc.err}, &fakeDesk{})
			rec, resp := doRequest(t, srv, http.MethodGet, "/api/analyze/"+testMint, nil)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if resp["success"] != false {
				t.Errorf("expected failure envelope, got %v", resp)
			}
		})
	}
}

func TestPortfolio(t *testing.T) {
	desk := &fakeDesk{portfolio: &domain.Portfolio{SolBalance: 10, WinRate: 66.7}}
	srv := newTestServer(&fakeSignals{}, desk)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/portfolio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	p, ok := resp["portfolio"].(map[string]any)
	if !ok || p["sol_balance"] != float64(10) {
		t.Errorf("unexpected portfolio payload: %v", resp)
	}
}

func TestHoldings_TotalValue(t *testing.T) {
	desk := &fakeDesk{holdings: []*domain.Holding{
		{TokenAddress: "a", Amount: 1000, CurrentPrice: 0.001},
		{TokenAddress: "b", Amount: 500, CurrentPrice: 0.002},
	}}
	srv := newTestServer(&fakeSignals{}, desk)

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/holdings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["count"] != float64(2) || resp["total_value_sol"] != float64(2) {
		t.Errorf("unexpected holdings payload: %v", resp)
	}
}

func TestTrade_FullLadder(t *testing.T) {
	signals := &fakeSignals{sig: &domain.TokenSignal{TokenAddress: testMint, CurrentPrice: 0.0002}}
	desk := &fakeDesk{}
	srv := newTestServer(signals, desk)

	body, _ := json.Marshal(map[string]any{
		"token_address": testMint,
		"side":          "buy",
		"amount":        1.0,
	})
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/trade", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp["status"] != "confirmed" || resp["trade_id"] != "trade-1" {
		t.Errorf("unexpected trade payload: %v", resp)
	}
	if resp["tx_reference"] != "tx-ref-1" {
		t.Errorf("missing tx reference: %v", resp)
	}
}

func TestTrade_InsufficientBalance(t *testing.T) {
	signals := &fakeSignals{sig: &domain.TokenSignal{TokenAddress: testMint, CurrentPrice: 0.0002}}
	desk := &fakeDesk{requestErr: ledger.ErrInsufficientBalance}
	srv := newTestServer(signals, desk)

	body, _ := json.Marshal(map[string]any{
		"token_address": testMint,
		"side":          "buy",
		"amount":        9999.0,
	})
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/trade", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected failure envelope, got %v", resp)
	}
}

func TestTrade_ConfirmFailureLandsInFailed(t *testing.T) {
	signals := &fakeSignals{sig: &domain.TokenSignal{TokenAddress: testMint, CurrentPrice: 0.0002}}
	desk := &fakeDesk{confirmErr: ledger.ErrInsufficientBalance}
	srv := newTestServer(signals, desk)

	body, _ := json.Marshal(map[string]any{
		"token_address": testMint,
		"side":          "sell",
		"amount":        1.0,
	})
	rec, resp := doRequest(t, srv, http.MethodPost, "/api/trade", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp["status"] != "failed" {
		t.Errorf("status = %v, want failed", resp["status"])
	}
}

func TestTrade_BadBody(t *testing.T) {
	srv := newTestServer(&fakeSignals{}, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodPost, "/api/trade", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected failure envelope, got %v", resp)
	}
}

func TestNotFoundRoute(t *testing.T) {
	srv := newTestServer(&fakeSignals{}, &fakeDesk{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected failure envelope, got %v", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&fakeSignals{}, &fakeDesk{})

	req := httptest.NewRequest(http.MethodOptions, "/api/signals", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers")
	}
}
