// Package dashboard is the terminal front end: a polling signal board with
// on-demand token analysis and one-key paper trading.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"solana-signals/internal/domain"
)

// Client talks to the signals API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// envelope is the common response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SignalsResult is the decoded list response.
type SignalsResult struct {
	envelope
	Signals       []*domain.TokenSignal `json:"signals"`
	Count         int                   `json:"count"`
	UsingRealData bool                  `json:"using_real_data"`
}

// AnalyzeResult is the decoded single-token response.
type AnalyzeResult struct {
	envelope
	Signal        *domain.TokenSignal `json:"signal"`
	UsingRealData bool                `json:"using_real_data"`
}

// PortfolioResult is the decoded portfolio response.
type PortfolioResult struct {
	envelope
	Portfolio *domain.Portfolio `json:"portfolio"`
}

// HoldingsResult is the decoded holdings response.
type HoldingsResult struct {
	envelope
	Holdings      []*domain.Holding `json:"holdings"`
	Count         int               `json:"count"`
	TotalValueSol float64           `json:"total_value_sol"`
}

// TradeResult is the decoded trade response.
type TradeResult struct {
	envelope
	TradeID     string             `json:"trade_id"`
	Status      domain.TradeStatus `json:"status"`
	TxReference string             `json:"tx_reference"`
	PnL         float64            `json:"pnl"`
}

// Signals fetches the ranked signal list.
func (c *Client) Signals(ctx context.Context, minScore, limit int) (*SignalsResult, error) {
	var out SignalsResult
	path := fmt.Sprintf("/api/signals?min_score=%d&limit=%d", minScore, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze fetches one token's signal.
func (c *Client) Analyze(ctx context.Context, tokenAddress string) (*AnalyzeResult, error) {
	var out AnalyzeResult
	if err := c.get(ctx, "/api/analyze/"+tokenAddress, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolio fetches the portfolio snapshot.
func (c *Client) Portfolio(ctx context.Context) (*PortfolioResult, error) {
	var out PortfolioResult
	if err := c.get(ctx, "/api/portfolio", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Holdings fetches the open positions.
func (c *Client) Holdings(ctx context.Context) (*HoldingsResult, error) {
	var out HoldingsResult
	if err := c.get(ctx, "/api/holdings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trade places a paper trade. Every call carries a fresh idempotency key:
// each invocation is a distinct user action, and without the key the server
// would fold a repeated buy of the same token and amount into the earlier
// trade's idempotent replay.
func (c *Client) Trade(ctx context.Context, tokenAddress string, side domain.TradeSide, amount float64) (*TradeResult, error) {
	body, err := json.Marshal(map[string]any{
		"token_address": tokenAddress,
		"side":          side,
		"amount":        amount,
		"client_key":    uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/trade", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out TradeResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do runs the request and unwraps the envelope: an unsuccessful envelope
// becomes an error carrying the server's message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}

	env, ok := out.(interface{ failed() (bool, string) })
	if ok {
		if failed, msg := env.failed(); failed {
			if msg == "" {
				msg = resp.Status
			}
			return fmt.Errorf("api: %s", msg)
		}
	}
	return nil
}

func (e envelope) failed() (bool, string) {
	return !e.Success, e.Error
}
