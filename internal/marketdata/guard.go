package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"solana-signals/internal/domain"
	"solana-signals/internal/observability"
)

// GuardConfig bounds how hard we lean on a rate-limited upstream.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	BreakerName       string
	OpenTimeout       time.Duration
	FailureThreshold  uint32
}

// DefaultGuardConfig returns conservative limits suitable for free-tier
// provider plans.
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		BreakerName:       name,
		OpenTimeout:       30 * time.Second,
		FailureThreshold:  5,
	}
}

func newBreaker(cfg GuardConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.BreakerName,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Empty results are a valid upstream answer, not a fault.
			return err == nil || errors.Is(err, ErrUpstreamEmpty)
		},
	})
}

// mapBreakerErr converts breaker rejections into the adapter taxonomy.
func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit open: %w", ErrUpstreamUnavailable)
	}
	return err
}

// GuardedHolderSource wraps a HolderSource with a rate limiter and a
// circuit breaker.
type GuardedHolderSource struct {
	inner   HolderSource
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedHolderSource wraps inner with the given guard config.
func NewGuardedHolderSource(inner HolderSource, cfg GuardConfig) *GuardedHolderSource {
	return &GuardedHolderSource{
		inner:   inner,
		name:    cfg.BreakerName,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: newBreaker(cfg),
	}
}

var _ HolderSource = (*GuardedHolderSource)(nil)

// FetchHolders waits for rate-limit headroom, then calls through the breaker.
func (g *GuardedHolderSource) FetchHolders(ctx context.Context, tokenAddress string) ([]domain.Holder, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %v: %w", err, ErrUpstreamUnavailable)
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.FetchHolders(ctx, tokenAddress)
	})
	observability.RecordUpstreamCall(g.name, "holders", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return result.([]domain.Holder), nil
}

// GuardedMarketSource wraps a MarketSource with a rate limiter and a
// circuit breaker.
type GuardedMarketSource struct {
	inner   MarketSource
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedMarketSource wraps inner with the given guard config.
func NewGuardedMarketSource(inner MarketSource, cfg GuardConfig) *GuardedMarketSource {
	return &GuardedMarketSource{
		inner:   inner,
		name:    cfg.BreakerName,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: newBreaker(cfg),
	}
}

var _ MarketSource = (*GuardedMarketSource)(nil)

// FetchMarketSnapshot waits for rate-limit headroom, then calls through the
// breaker.
func (g *GuardedMarketSource) FetchMarketSnapshot(ctx context.Context, tokenAddress string) (*domain.MarketSnapshot, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %v: %w", err, ErrUpstreamUnavailable)
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.FetchMarketSnapshot(ctx, tokenAddress)
	})
	observability.RecordUpstreamCall(g.name, "market", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return result.(*domain.MarketSnapshot), nil
}
