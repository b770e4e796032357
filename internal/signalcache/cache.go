package signalcache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"solana-signals/internal/marketdata"
	"solana-signals/internal/observability"
)

// Default cache tuning. Retention must exceed TTL so expired entries remain
// servable while degraded.
const (
	DefaultTTL       = 30 * time.Second
	DefaultRetention = 10 * time.Minute
)

// ComputeFunc produces a fresh payload for a fingerprint.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Result is what the cache hands back to callers. UsingRealData is false
// whenever the payload is past its logical TTL, regardless of why it is
// being served.
type Result struct {
	Payload       []byte
	ComputedAt    time.Time
	UsingRealData bool
	Stale         bool
}

// Cache fronts a Store with a logical TTL, per-fingerprint single-flight and
// stale-while-revalidate. Safe for concurrent use.
type Cache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time

	// refreshTimeout bounds the detached background refresh.
	refreshTimeout time.Duration
}

// NewCache wraps store with the given logical TTL.
func NewCache(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:          store,
		ttl:            ttl,
		log:            log.With().Str("component", "signalcache").Logger(),
		now:            time.Now,
		refreshTimeout: 15 * time.Second,
	}
}

// GetOrCompute returns the cached payload for fingerprint, computing it when
// absent. Expired entries are served stale while one background refresh runs;
// on a total miss exactly one caller computes and the rest share its result.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) (*Result, error) {
	now := c.now()

	entry, err := c.store.Get(ctx, fingerprint)
	if err != nil && !errors.Is(err, ErrMiss) {
		// A broken cache backend must not take reads down. Treat as miss.
		c.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache backend read failed")
		entry = nil
	}

	if entry != nil && now.Before(entry.ExpiresAt) {
		observability.RecordCacheHit(fingerprintKind(fingerprint))
		return &Result{
			Payload:       entry.Payload,
			ComputedAt:    entry.ComputedAt,
			UsingRealData: entry.UsingRealData,
		}, nil
	}

	if entry != nil {
		// Expired but retained: serve stale, refresh once in the background.
		observability.RecordCacheStale(fingerprintKind(fingerprint))
		c.refreshAsync(fingerprint, compute)
		return &Result{
			Payload:       entry.Payload,
			ComputedAt:    entry.ComputedAt,
			UsingRealData: false,
			Stale:         true,
		}, nil
	}

	observability.RecordCacheMiss(fingerprintKind(fingerprint))
	return c.computeShared(ctx, fingerprint, compute)
}

// Invalidate drops the entry so the next read recomputes. Used after trades
// change portfolio-derived payloads.
func (c *Cache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.store.Delete(ctx, fingerprint)
}

// computeShared runs compute under single-flight and stores the result.
func (c *Cache) computeShared(ctx context.Context, fingerprint string, compute ComputeFunc) (*Result, error) {
	v, err, shared := c.group.Do(fingerprint, func() (interface{}, error) {
		// Another caller may have populated the entry while we queued.
		if entry, err := c.store.Get(ctx, fingerprint); err == nil && c.now().Before(entry.ExpiresAt) {
			return entry, nil
		}
		return c.fill(ctx, fingerprint, compute)
	})
	if err != nil {
		return nil, err
	}

	entry := v.(*Entry)
	if shared {
		c.log.Debug().Str("fingerprint", fingerprint).Msg("shared in-flight compute")
	}
	return &Result{
		Payload:       entry.Payload,
		ComputedAt:    entry.ComputedAt,
		UsingRealData: entry.UsingRealData,
	}, nil
}

// fill computes a fresh payload and writes it through to the store.
func (c *Cache) fill(ctx context.Context, fingerprint string, compute ComputeFunc) (*Entry, error) {
	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	entry := &Entry{
		Fingerprint:   fingerprint,
		Payload:       payload,
		ComputedAt:    now,
		ExpiresAt:     now.Add(c.ttl),
		UsingRealData: true,
	}
	if err := c.store.Set(ctx, entry); err != nil {
		// Serve the computed value anyway; only future reads lose the hit.
		observability.RecordCacheWriteError()
		c.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache backend write failed")
	}
	return entry, nil
}

// fingerprintKind is the metric label for a fingerprint: the segment before
// the first colon ("token" or "signals").
func fingerprintKind(fingerprint string) string {
	if i := strings.IndexByte(fingerprint, ':'); i > 0 {
		return fingerprint[:i]
	}
	return fingerprint
}

// refreshAsync kicks off one refresh per fingerprint, detached from the
// caller's context so a fast poll cycle cannot cancel it.
func (c *Cache) refreshAsync(fingerprint string, compute ComputeFunc) {
	c.group.DoChan(fingerprint, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()

		entry, err := c.fill(ctx, fingerprint, compute)
		if err != nil {
			if !errors.Is(err, marketdata.ErrUpstreamUnavailable) {
				c.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("background refresh failed")
			}
			return nil, err
		}
		return entry, nil
	})
}
