// Package marketdata wraps the upstream holder and market data providers
// behind uniform fetch contracts. The adapter performs no retries and no
// caching: retry and refresh policy belong to the signal cache layer.
package marketdata

import (
	"context"
	"errors"

	"solana-signals/internal/domain"
)

// Upstream failure taxonomy. Callers branch on these with errors.Is.
var (
	// ErrUpstreamUnavailable indicates a transient provider failure:
	// timeout, rate limit, server error, or malformed response.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamEmpty indicates the provider has no data for the token
	// (unknown or delisted). Terminal for the request.
	ErrUpstreamEmpty = errors.New("upstream has no data for token")
)

// HolderSource fetches the holder list for a token.
// An empty slice is a valid result, not an error.
type HolderSource interface {
	FetchHolders(ctx context.Context, tokenAddress string) ([]domain.Holder, error)
}

// MarketSource fetches a point-in-time market snapshot for a token.
type MarketSource interface {
	FetchMarketSnapshot(ctx context.Context, tokenAddress string) (*domain.MarketSnapshot, error)
}
