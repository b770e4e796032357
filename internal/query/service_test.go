package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-signals/internal/domain"
	"solana-signals/internal/marketdata"
	"solana-signals/internal/marketdata/stub"
	"solana-signals/internal/scoring"
	"solana-signals/internal/signalcache"
)

const (
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	wifMint  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
)

func strongFixture(source *stub.Source, token, symbol string) {
	source.SetFixture(token,
		[]domain.Holder{
			{WalletAddress: "s1", NetDelta: 1000, Label: domain.LabelSmart},
			{WalletAddress: "s2", NetDelta: 800, Label: domain.LabelSmart},
			{WalletAddress: "s3", NetDelta: 500, Label: domain.LabelSmart},
			{WalletAddress: "w1", NetDelta: 200, Label: domain.LabelWhale},
		},
		domain.MarketSnapshot{
			Symbol:         symbol,
			Price:          0.0001,
			VolumeNow:      320000,
			VolumeBaseline: 100000,
			PriceChange24h: 15.4,
			RSI:            62,
			BuyPressure:    50,
		})
}

func weakFixture(source *stub.Source, token, symbol string) {
	source.SetFixture(token,
		[]domain.Holder{
			{WalletAddress: "s1", NetDelta: -500, Label: domain.LabelSmart},
		},
		domain.MarketSnapshot{
			Symbol:         symbol,
			Price:          0.5,
			VolumeNow:      40000,
			VolumeBaseline: 100000,
			PriceChange24h: -25,
			RSI:            78,
			BuyPressure:    20,
		})
}

func newTestService(source *stub.Source, seed []string) *Service {
	store := signalcache.NewMemoryStore(signalcache.DefaultRetention)
	cache := signalcache.NewCache(store, 30*time.Second, zerolog.Nop())
	return NewService(source, source, scoring.NewEngine(), cache, NewUniverse(seed), nil, zerolog.Nop())
}

func TestAnalyzeToken_InvalidAddress(t *testing.T) {
	svc := newTestService(stub.NewSource(), nil)

	_, _, err := svc.AnalyzeToken(context.Background(), "not-base58!")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestAnalyzeToken_UnknownToken(t *testing.T) {
	source := stub.NewSource()
	source.MarkUnknown(bonkMint)
	svc := newTestService(source, nil)

	_, _, err := svc.AnalyzeToken(context.Background(), bonkMint)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestAnalyzeToken_ScoresAndRegisters(t *testing.T) {
	source := stub.NewSource()
	strongFixture(source, bonkMint, "BONK")
	svc := newTestService(source, nil)

	sig, fresh, err := svc.AnalyzeToken(context.Background(), bonkMint)
	if err != nil {
		t.Fatalf("AnalyzeToken: %v", err)
	}
	if !fresh {
		t.Error("first analysis should be fresh")
	}
	if sig.SignalType != domain.SignalStrongBuy {
		t.Errorf("signal type = %s, want strong_buy", sig.SignalType)
	}
	if sig.SmartMoneyCount != 3 || sig.WhaleCount != 1 {
		t.Errorf("holder counts = %d/%d", sig.SmartMoneyCount, sig.WhaleCount)
	}
	if !svc.universe.Contains(bonkMint) {
		t.Error("analyzed token not registered in universe")
	}
}

func TestListSignals_FiltersAndSorts(t *testing.T) {
	source := stub.NewSource()
	strongFixture(source, bonkMint, "BONK")
	weakFixture(source, wifMint, "WIF")
	svc := newTestService(source, []string{bonkMint, wifMint})

	list, _, err := svc.ListSignals(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("ListSignals: %v", err)
	}
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}
	if list.Signals[0].TokenAddress != bonkMint {
		t.Errorf("strongest signal should sort first, got %s", list.Signals[0].TokenAddress)
	}
	if list.Signals[0].CombinedScore < list.Signals[1].CombinedScore {
		t.Error("descending score order violated")
	}

	// High threshold filters the weak token out.
	filtered, _, err := svc.ListSignals(context.Background(), 70, 10)
	if err != nil {
		t.Fatalf("filtered ListSignals: %v", err)
	}
	if filtered.Count != 1 || filtered.Signals[0].TokenAddress != bonkMint {
		t.Errorf("filtered = %+v", filtered)
	}
}

func TestListSignals_SkipsUnknownTokens(t *testing.T) {
	source := stub.NewSource()
	strongFixture(source, bonkMint, "BONK")
	source.MarkUnknown(wifMint)
	svc := newTestService(source, []string{bonkMint, wifMint})

	list, _, err := svc.ListSignals(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("ListSignals: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("count = %d, want 1 (unknown token skipped)", list.Count)
	}
}

func TestListSignals_LimitApplied(t *testing.T) {
	source := stub.NewSource()
	strongFixture(source, bonkMint, "BONK")
	weakFixture(source, wifMint, "WIF")
	svc := newTestService(source, []string{bonkMint, wifMint})

	list, _, err := svc.ListSignals(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("ListSignals: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}
}

// downSource fails every fetch with a transient error.
type downSource struct{}

func (downSource) FetchHolders(context.Context, string) ([]domain.Holder, error) {
	return nil, marketdata.ErrUpstreamUnavailable
}

func (downSource) FetchMarketSnapshot(context.Context, string) (*domain.MarketSnapshot, error) {
	return nil, marketdata.ErrUpstreamUnavailable
}

func TestAnalyzeToken_UpstreamDownNoCache(t *testing.T) {
	store := signalcache.NewMemoryStore(signalcache.DefaultRetention)
	cache := signalcache.NewCache(store, 30*time.Second, zerolog.Nop())
	svc := NewService(downSource{}, downSource{}, scoring.NewEngine(), cache, NewUniverse(nil), nil, zerolog.Nop())

	_, _, err := svc.AnalyzeToken(context.Background(), bonkMint)
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("expected ErrScoringUnavailable, got %v", err)
	}
}

func TestListSignals_UpstreamDownNoCache(t *testing.T) {
	store := signalcache.NewMemoryStore(signalcache.DefaultRetention)
	cache := signalcache.NewCache(store, 30*time.Second, zerolog.Nop())
	svc := NewService(downSource{}, downSource{}, scoring.NewEngine(), cache, NewUniverse([]string{bonkMint}), nil, zerolog.Nop())

	_, _, err := svc.ListSignals(context.Background(), 0, 10)
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("expected ErrScoringUnavailable, got %v", err)
	}
}

func TestUniverse_AddListContains(t *testing.T) {
	u := NewUniverse([]string{"b", "a"})

	if got := u.List(); len(got) != 2 || got[0] != "a" {
		t.Errorf("List = %v", got)
	}
	u.Add("c")
	u.Add("c") // no-op
	if u.Len() != 3 {
		t.Errorf("Len = %d, want 3", u.Len())
	}
	if !u.Contains("c") || u.Contains("d") {
		t.Error("Contains misreports membership")
	}
}
