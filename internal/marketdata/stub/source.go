// Package stub provides deterministic in-process data sources for offline
// runs and tests. Values are seeded per token address so repeated fetches
// are stable within a process.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"solana-signals/internal/domain"
	"solana-signals/internal/marketdata"
)

// Source serves synthetic holder and market data. It implements both
// marketdata.HolderSource and marketdata.MarketSource.
type Source struct {
	mu      sync.Mutex
	fixed   map[string]fixture
	unknown map[string]bool
}

type fixture struct {
	holders []domain.Holder
	snap    domain.MarketSnapshot
}

// NewSource creates an empty stub source; unknown tokens get derived data.
func NewSource() *Source {
	return &Source{
		fixed:   make(map[string]fixture),
		unknown: make(map[string]bool),
	}
}

var (
	_ marketdata.HolderSource = (*Source)(nil)
	_ marketdata.MarketSource = (*Source)(nil)
)

// SetFixture pins exact holder and market data for a token.
func (s *Source) SetFixture(token string, holders []domain.Holder, snap domain.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixed[token] = fixture{holders: holders, snap: snap}
}

// MarkUnknown makes the source report ErrUpstreamEmpty for a token.
func (s *Source) MarkUnknown(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unknown[token] = true
}

// FetchHolders returns pinned or derived holders.
func (s *Source) FetchHolders(_ context.Context, tokenAddress string) ([]domain.Holder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unknown[tokenAddress] {
		return nil, marketdata.ErrUpstreamEmpty
	}
	if f, ok := s.fixed[tokenAddress]; ok {
		out := make([]domain.Holder, len(f.holders))
		copy(out, f.holders)
		return out, nil
	}
	return deriveHolders(tokenAddress), nil
}

// FetchMarketSnapshot returns a pinned or derived snapshot.
func (s *Source) FetchMarketSnapshot(_ context.Context, tokenAddress string) (*domain.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unknown[tokenAddress] {
		return nil, marketdata.ErrUpstreamEmpty
	}
	if f, ok := s.fixed[tokenAddress]; ok {
		snap := f.snap
		return &snap, nil
	}
	snap := deriveSnapshot(tokenAddress)
	return &snap, nil
}

// seed derives a stable uint64 from a token address.
func seed(token string) uint64 {
	h := sha256.Sum256([]byte(token))
	return binary.BigEndian.Uint64(h[:8])
}

func shortAddr(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

func deriveHolders(token string) []domain.Holder {
	n := seed(token)
	smartCount := int(n % 6)   // 0..5
	whaleCount := int(n%3) + 1 // 1..3

	var holders []domain.Holder
	for i := 0; i < whaleCount; i++ {
		holders = append(holders, domain.Holder{
			WalletAddress: fmt.Sprintf("%s-whale-%d", shortAddr(token), i),
			Balance:       1_000_000,
			PctHeld:       2.5,
			NetDelta:      500,
			Label:         domain.LabelWhale,
		})
	}
	for i := 0; i < smartCount; i++ {
		holders = append(holders, domain.Holder{
			WalletAddress: fmt.Sprintf("%s-smart-%d", shortAddr(token), i),
			Balance:       400_000,
			PctHeld:       0.8,
			NetDelta:      1200,
			Label:         domain.LabelSmart,
		})
	}
	return holders
}

func deriveSnapshot(token string) domain.MarketSnapshot {
	n := seed(token)
	ratio := 0.8 + float64(n%30)/10 // 0.8 .. 3.7
	change := float64(int64(n%400))/10 - 20
	// 24h change in -20 .. +19.9

	baseline := 100_000.0
	return domain.MarketSnapshot{
		Symbol:         fmt.Sprintf("TKN%d", n%1000),
		Name:           "Stub Token",
		Price:          0.0001 * float64(n%900+100),
		VolumeNow:      baseline * ratio,
		VolumeBaseline: baseline,
		PriceChange24h: change,
		RSI:            30 + float64(n%40),
		LiquidityUSD:   50_000 + float64(n%200_000),
		BuyPressure:    40 + float64(n%30),
	}
}
