package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"solana-signals/internal/domain"
)

func TestClient_Signals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/signals" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("min_score") != "70" {
			t.Errorf("min_score = %s", r.URL.Query().Get("min_score"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":         true,
			"signals":         []*domain.TokenSignal{{TokenAddress: "mint1", CombinedScore: 81}},
			"count":           1,
			"using_real_data": true,
		})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Signals(context.Background(), 70, 10)
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	if res.Count != 1 || !res.UsingRealData || res.Signals[0].TokenAddress != "mint1" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "scoring unavailable",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Signals(context.Background(), 0, 10)
	if err == nil || !strings.Contains(err.Error(), "scoring unavailable") {
		t.Errorf("expected envelope error, got %v", err)
	}
}

func TestClient_Trade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/trade" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["side"] != "buy" || body["amount"] != float64(1) {
			t.Errorf("unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"trade_id":     "trade-1",
			"status":       "confirmed",
			"tx_reference": "tx-1",
		})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Trade(context.Background(), "mint1", domain.SideBuy, 1)
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	if res.Status != domain.TradeConfirmed || res.TxReference != "tx-1" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestClient_Trade_FreshClientKeyPerCall(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		key, _ := body["client_key"].(string)
		keys = append(keys, key)
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"trade_id": "trade-" + key,
			"status":   "confirmed",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	first, err := client.Trade(context.Background(), "mint1", domain.SideBuy, 1)
	if err != nil {
		t.Fatalf("first Trade: %v", err)
	}
	second, err := client.Trade(context.Background(), "mint1", domain.SideBuy, 1)
	if err != nil {
		t.Fatalf("second Trade: %v", err)
	}

	if len(keys) != 2 || keys[0] == "" || keys[1] == "" {
		t.Fatalf("missing client_key in trade bodies: %v", keys)
	}
	// Identical token/side/amount on purpose: distinct keys keep repeated
	// intentional trades from collapsing into one idempotent replay.
	if keys[0] == keys[1] {
		t.Errorf("client_key reused across trades: %s", keys[0])
	}
	if first.TradeID == second.TradeID {
		t.Errorf("repeated trade returned the same trade id: %s", first.TradeID)
	}
}

func TestClient_Unreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Portfolio(context.Background())
	if err == nil || !strings.Contains(err.Error(), "api unreachable") {
		t.Errorf("expected unreachable error, got %v", err)
	}
}
