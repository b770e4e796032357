package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-signals/internal/domain"
)

const (
	defaultDexScreenerBase = "https://api.dexscreener.com"
	maxPairsAggregated     = 5
)

// DexScreenerMarketSource implements MarketSource against the DexScreener
// token-pairs API, aggregating the top pairs for a token.
type DexScreenerMarketSource struct {
	baseURL string
	client  *http.Client
}

// MarketSourceOption configures DexScreenerMarketSource.
type MarketSourceOption func(*DexScreenerMarketSource)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) MarketSourceOption {
	return func(s *DexScreenerMarketSource) {
		s.baseURL = u
	}
}

// WithMarketHTTPClient sets a custom http.Client.
func WithMarketHTTPClient(client *http.Client) MarketSourceOption {
	return func(s *DexScreenerMarketSource) {
		s.client = client
	}
}

// NewDexScreenerMarketSource creates a market source.
func NewDexScreenerMarketSource(opts ...MarketSourceOption) *DexScreenerMarketSource {
	s := &DexScreenerMarketSource{
		baseURL: defaultDexScreenerBase,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ MarketSource = (*DexScreenerMarketSource)(nil)

// pairInfo mirrors the subset of the DexScreener pair payload we consume.
type pairInfo struct {
	BaseToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"baseToken"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H6  float64 `json:"h6"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H6  float64 `json:"h6"`
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// FetchMarketSnapshot aggregates the token's top pairs into one snapshot.
func (s *DexScreenerMarketSource) FetchMarketSnapshot(ctx context.Context, tokenAddress string) (*domain.MarketSnapshot, error) {
	url := fmt.Sprintf("%s/token-pairs/v1/solana/%s", s.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create market request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pairs: %v: %w", err, ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUpstreamEmpty
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pairs: status %d: %w", resp.StatusCode, ErrUpstreamUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pairs body: %v: %w", err, ErrUpstreamUnavailable)
	}

	var pairs []pairInfo
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("decode pairs: %v: %w", err, ErrUpstreamUnavailable)
	}
	if len(pairs) == 0 {
		return nil, ErrUpstreamEmpty
	}

	return aggregatePairs(pairs), nil
}

// aggregatePairs folds the top pairs into a single snapshot. The 24h volume
// baseline is estimated from the shorter windows: each pair contributes its
// h24 volume and its h6 volume extrapolated to 24h.
func aggregatePairs(pairs []pairInfo) *domain.MarketSnapshot {
	if len(pairs) > maxPairsAggregated {
		pairs = pairs[:maxPairsAggregated]
	}

	main := pairs[0]
	snap := &domain.MarketSnapshot{
		Symbol:         main.BaseToken.Symbol,
		Name:           main.BaseToken.Name,
		Price:          parsePrice(main.PriceUSD),
		PriceChange24h: main.PriceChange.H24,
	}

	var baselineSamples []float64
	var buyVolume, sellVolume float64
	for _, p := range pairs {
		snap.VolumeNow += p.Volume.H24
		snap.LiquidityUSD += p.Liquidity.USD

		baselineSamples = append(baselineSamples, p.Volume.H24)
		if p.Volume.H6 > 0 {
			baselineSamples = append(baselineSamples, p.Volume.H6*4)
		}

		// Buy/sell split estimated from price direction: up days skew 60/40.
		if p.PriceChange.H24 > 0 {
			buyVolume += p.Volume.H24 * 0.6
			sellVolume += p.Volume.H24 * 0.4
		} else {
			buyVolume += p.Volume.H24 * 0.4
			sellVolume += p.Volume.H24 * 0.6
		}
	}

	var sum float64
	for _, v := range baselineSamples {
		sum += v
	}
	if len(baselineSamples) > 0 {
		snap.VolumeBaseline = sum / float64(len(baselineSamples))
	}

	if total := buyVolume + sellVolume; total > 0 {
		snap.BuyPressure = buyVolume / total * 100
	} else {
		snap.BuyPressure = 50
	}

	snap.RSI = approximateRSI(snap.PriceChange24h)
	return snap
}

// approximateRSI estimates RSI from the 24h price change. Real RSI needs
// OHLC history the pairs endpoint does not provide.
func approximateRSI(priceChange24h float64) float64 {
	var rsi float64
	switch {
	case priceChange24h > 10:
		rsi = 70 + min(priceChange24h/2, 25)
	case priceChange24h < -10:
		rsi = 30 - min(-priceChange24h/2, 25)
	default:
		rsi = 50 + priceChange24h
	}
	return clampFloat(rsi, 0, 100)
}

func parsePrice(s string) float64 {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	if err != nil {
		return 0
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
