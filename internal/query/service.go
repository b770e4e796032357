// Package query serves signal reads: single-token analysis and the filtered
// signal list. All reads go through the signal cache; upstream fetches happen
// only on cache misses and background refreshes.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-signals/internal/domain"
	"solana-signals/internal/marketdata"
	"solana-signals/internal/observability"
	"solana-signals/internal/scoring"
	"solana-signals/internal/signalcache"
	"solana-signals/internal/solutil"
)

// Query errors. Handlers map these onto HTTP statuses.
var (
	// ErrInvalidAddress rejects requests whose token address is not a
	// plausible Solana mint.
	ErrInvalidAddress = errors.New("invalid token address")

	// ErrTokenNotFound means the upstream answered and knows nothing about
	// the token.
	ErrTokenNotFound = errors.New("token not found")

	// ErrScoringUnavailable means no fresh data could be fetched and no
	// cached signal exists to fall back on.
	ErrScoringUnavailable = errors.New("scoring unavailable")
)

// List query bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SignalList is the payload of a list query.
type SignalList struct {
	Signals     []*domain.TokenSignal `json:"signals"`
	Count       int                   `json:"count"`
	GeneratedAt int64                 `json:"generated_at"`
}

// Service answers signal queries.
type Service struct {
	holders  marketdata.HolderSource
	market   marketdata.MarketSource
	engine   *scoring.Engine
	cache    *signalcache.Cache
	universe *Universe
	archiver *Archiver
	log      zerolog.Logger
	now      func() time.Time
}

// NewService wires the query path. archiver may be nil when archiving is
// disabled.
func NewService(holders marketdata.HolderSource, market marketdata.MarketSource, engine *scoring.Engine, cache *signalcache.Cache, universe *Universe, archiver *Archiver, log zerolog.Logger) *Service {
	return &Service{
		holders:  holders,
		market:   market,
		engine:   engine,
		cache:    cache,
		universe: universe,
		archiver: archiver,
		log:      log.With().Str("component", "query").Logger(),
		now:      time.Now,
	}
}

// AnalyzeToken evaluates one token, cached. The bool reports whether the
// payload is fresh (true) or served stale from a degraded path (false).
func (s *Service) AnalyzeToken(ctx context.Context, tokenAddress string) (*domain.TokenSignal, bool, error) {
	if !solutil.ValidAddress(tokenAddress) {
		return nil, false, fmt.Errorf("%q: %w", tokenAddress, ErrInvalidAddress)
	}

	res, err := s.cache.GetOrCompute(ctx, signalcache.TokenFingerprint(tokenAddress), func(ctx context.Context) ([]byte, error) {
		return s.computeToken(ctx, tokenAddress)
	})
	if err != nil {
		return nil, false, s.mapComputeErr(tokenAddress, err)
	}

	var sig domain.TokenSignal
	if err := json.Unmarshal(res.Payload, &sig); err != nil {
		return nil, false, fmt.Errorf("decode cached signal: %w", err)
	}

	// Every analyzable token joins the scan universe.
	s.universe.Add(tokenAddress)
	observability.UpdateUniverseSize(s.universe.Len())
	return &sig, res.UsingRealData, nil
}

// ListSignals returns signals for the whole universe at or above minScore,
// sorted by combined score. The bool is false when any component signal was
// served stale.
func (s *Service) ListSignals(ctx context.Context, minScore, limit int) (*SignalList, bool, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if minScore < 0 {
		minScore = 0
	}

	res, err := s.cache.GetOrCompute(ctx, signalcache.ListFingerprint(minScore, limit), func(ctx context.Context) ([]byte, error) {
		return s.computeList(ctx, minScore, limit)
	})
	if err != nil {
		if errors.Is(err, marketdata.ErrUpstreamUnavailable) {
			return nil, false, fmt.Errorf("no signals cached: %w", ErrScoringUnavailable)
		}
		return nil, false, err
	}

	var list SignalList
	if err := json.Unmarshal(res.Payload, &list); err != nil {
		return nil, false, fmt.Errorf("decode cached list: %w", err)
	}
	return &list, res.UsingRealData, nil
}

// computeToken fetches holder and market data concurrently, scores them and
// returns the marshaled signal.
func (s *Service) computeToken(ctx context.Context, tokenAddress string) ([]byte, error) {
	var (
		holders []domain.Holder
		snap    *domain.MarketSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.holders.FetchHolders(gctx, tokenAddress)
		if errors.Is(err, marketdata.ErrUpstreamEmpty) {
			// No holder data is a scoring fact, not a failure.
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch holders: %w", err)
		}
		holders = h
		return nil
	})
	g.Go(func() error {
		m, err := s.market.FetchMarketSnapshot(gctx, tokenAddress)
		if err != nil {
			return fmt.Errorf("fetch market: %w", err)
		}
		snap = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sig := s.engine.Evaluate(tokenAddress, holders, snap)
	observability.RecordSignalComputed(string(sig.SignalType), string(sig.Pattern))
	observability.DefaultMetrics.LastSuccessfulCompute.Set(float64(s.now().Unix()))
	if s.archiver != nil {
		s.archiver.Record(sig)
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("encode signal: %w", err)
	}
	return payload, nil
}

// computeList evaluates every universe token through the per-token cache,
// then filters and sorts. Tokens with neither fresh data nor a cached signal
// drop out of the list.
func (s *Service) computeList(ctx context.Context, minScore, limit int) ([]byte, error) {
	tokens := s.universe.List()

	var (
		signals  []*domain.TokenSignal
		failures int
		lastErr  error
	)
	for _, addr := range tokens {
		res, err := s.cache.GetOrCompute(ctx, signalcache.TokenFingerprint(addr), func(ctx context.Context) ([]byte, error) {
			return s.computeToken(ctx, addr)
		})
		if err != nil {
			if !errors.Is(err, marketdata.ErrUpstreamEmpty) {
				failures++
				lastErr = err
			}
			s.log.Debug().Err(err).Str("token", addr).Msg("token skipped in list")
			continue
		}

		var sig domain.TokenSignal
		if err := json.Unmarshal(res.Payload, &sig); err != nil {
			return nil, fmt.Errorf("decode cached signal for %s: %w", addr, err)
		}
		if sig.CombinedScore >= minScore {
			signals = append(signals, &sig)
		}
	}

	if len(signals) == 0 && failures > 0 && failures == len(tokens) {
		// The whole universe is dark; surface the transient error so the
		// cache layer can fall back to a stale list if one exists.
		return nil, lastErr
	}

	sortSignals(signals)
	if len(signals) > limit {
		signals = signals[:limit]
	}

	list := &SignalList{
		Signals:     signals,
		Count:       len(signals),
		GeneratedAt: s.now().UnixMilli(),
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return payload, nil
}

// sortSignals orders by combined score desc, momentum desc, then address asc
// for a stable tie-break.
func sortSignals(signals []*domain.TokenSignal) {
	sort.Slice(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.MomentumScore != b.MomentumScore {
			return a.MomentumScore > b.MomentumScore
		}
		return a.TokenAddress < b.TokenAddress
	})
}

// mapComputeErr translates fetch errors into the query taxonomy.
func (s *Service) mapComputeErr(tokenAddress string, err error) error {
	switch {
	case errors.Is(err, marketdata.ErrUpstreamEmpty):
		return fmt.Errorf("%s: %w", tokenAddress, ErrTokenNotFound)
	case errors.Is(err, marketdata.ErrUpstreamUnavailable):
		return fmt.Errorf("%s: %w", tokenAddress, ErrScoringUnavailable)
	default:
		return err
	}
}
