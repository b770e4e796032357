package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"solana-signals/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	defaultTopHolders = 20

	whalePctThreshold = 1.0 // >=1% of supply
	smartPctThreshold = 0.5 // >=0.5% of supply among the top accounts
)

// HeliusHolderSource implements HolderSource against a Helius-style Solana
// JSON-RPC endpoint (getTokenSupply + getTokenLargestAccounts).
//
// NetDelta is derived by diffing balances against the previous observation
// for the same token, so the first fetch for a token reports zero deltas.
type HeliusHolderSource struct {
	endpoint  string
	client    *http.Client
	top       int
	requestID atomic.Uint64

	mu       sync.Mutex
	lastSeen map[string]map[string]float64 // token -> wallet -> balance
}

// HolderSourceOption configures HeliusHolderSource.
type HolderSourceOption func(*HeliusHolderSource)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HolderSourceOption {
	return func(s *HeliusHolderSource) {
		s.client = client
	}
}

// WithTopHolders sets how many of the largest accounts are returned.
func WithTopHolders(n int) HolderSourceOption {
	return func(s *HeliusHolderSource) {
		s.top = n
	}
}

// NewHeliusHolderSource creates a holder source for the given RPC endpoint.
// The API credential is expected to be embedded in the endpoint URL.
func NewHeliusHolderSource(endpoint string, opts ...HolderSourceOption) *HeliusHolderSource {
	s := &HeliusHolderSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		top:      defaultTopHolders,
		lastSeen: make(map[string]map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ HolderSource = (*HeliusHolderSource)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

type tokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

type tokenSupplyResult struct {
	Value tokenAmount `json:"value"`
}

type largestAccount struct {
	Address  string `json:"address"`
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

type largestAccountsResult struct {
	Value []largestAccount `json:"value"`
}

// FetchHolders returns the labeled top holders of a token.
func (s *HeliusHolderSource) FetchHolders(ctx context.Context, tokenAddress string) ([]domain.Holder, error) {
	var supply tokenSupplyResult
	if err := s.call(ctx, "getTokenSupply", []interface{}{tokenAddress}, &supply); err != nil {
		return nil, err
	}

	totalSupply, err := strconv.ParseFloat(supply.Value.Amount, 64)
	if err != nil {
		return nil, fmt.Errorf("parse token supply %q: %w", supply.Value.Amount, ErrUpstreamUnavailable)
	}
	if totalSupply == 0 {
		return nil, ErrUpstreamEmpty
	}
	scale := pow10(supply.Value.Decimals)
	totalSupply /= scale

	var largest largestAccountsResult
	if err := s.call(ctx, "getTokenLargestAccounts", []interface{}{tokenAddress}, &largest); err != nil {
		return nil, err
	}

	accounts := largest.Value
	if len(accounts) > s.top {
		accounts = accounts[:s.top]
	}

	prev := s.swapLastSeen(tokenAddress, accounts, scale)

	holders := make([]domain.Holder, 0, len(accounts))
	for _, acct := range accounts {
		raw, err := strconv.ParseFloat(acct.Amount, 64)
		if err != nil {
			continue // skip malformed rows, the rest of the list is still usable
		}
		balance := raw / scale
		pct := balance / totalSupply * 100

		h := domain.Holder{
			WalletAddress: acct.Address,
			Balance:       balance,
			PctHeld:       pct,
			Label:         labelFor(pct),
		}
		if prevBalance, ok := prev[acct.Address]; ok {
			h.NetDelta = balance - prevBalance
		}
		holders = append(holders, h)
	}

	return holders, nil
}

// swapLastSeen stores the current balances for delta computation and returns
// the previous observation for the token.
func (s *HeliusHolderSource) swapLastSeen(token string, accounts []largestAccount, scale float64) map[string]float64 {
	current := make(map[string]float64, len(accounts))
	for _, acct := range accounts {
		if raw, err := strconv.ParseFloat(acct.Amount, 64); err == nil {
			current[acct.Address] = raw / scale
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.lastSeen[token]
	s.lastSeen[token] = current
	return prev
}

func labelFor(pctHeld float64) domain.HolderLabel {
	switch {
	case pctHeld >= whalePctThreshold:
		return domain.LabelWhale
	case pctHeld >= smartPctThreshold:
		return domain.LabelSmart
	default:
		return domain.LabelUnlabeled
	}
}

// call performs a single JSON-RPC call. Transport, HTTP status, RPC-level
// and decode failures all map to ErrUpstreamUnavailable.
func (s *HeliusHolderSource) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", method, err, ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %w", method, resp.StatusCode, ErrUpstreamUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %v: %w", method, err, ErrUpstreamUnavailable)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", method, err, ErrUpstreamUnavailable)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %v: %w", method, rpcResp.Error, ErrUpstreamUnavailable)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return ErrUpstreamEmpty
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %v: %w", method, err, ErrUpstreamUnavailable)
	}
	return nil
}

func pow10(n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}
