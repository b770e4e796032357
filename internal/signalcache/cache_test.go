package signalcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-signals/internal/marketdata"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *MemoryStore, *testClock) {
	clock := newTestClock()
	store := NewMemoryStore(DefaultRetention)
	store.now = clock.Now

	cache := NewCache(store, ttl, zerolog.Nop())
	cache.now = clock.Now
	return cache, store, clock
}

func payloadFunc(payload string, calls *int64) ComputeFunc {
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt64(calls, 1)
		return []byte(payload), nil
	}
}

func TestCache_MissComputesAndCaches(t *testing.T) {
	cache, _, _ := newTestCache(30 * time.Second)
	ctx := context.Background()
	var calls int64

	fp := TokenFingerprint("mint1")
	res, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"a":1}`, &calls))
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if string(res.Payload) != `{"a":1}` {
		t.Errorf("payload = %s", res.Payload)
	}
	if !res.UsingRealData || res.Stale {
		t.Errorf("fresh compute: real=%v stale=%v, want true/false", res.UsingRealData, res.Stale)
	}

	// Second read inside the TTL must not recompute.
	if _, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"a":2}`, &calls)); err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("compute calls = %d, want 1", got)
	}
}

func TestCache_SingleFlightSharesOneCompute(t *testing.T) {
	cache, _, _ := newTestCache(30 * time.Second)
	ctx := context.Background()

	var calls int64
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return []byte(`{"shared":true}`), nil
	}

	fp := ListFingerprint(70, 10)
	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Result, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(ctx, fp, compute)
		}(i)
	}

	<-started
	// All workers are now queued behind the single flight.
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if string(results[i].Payload) != `{"shared":true}` {
			t.Errorf("worker %d payload = %s", i, results[i].Payload)
		}
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("compute calls = %d, want 1", got)
	}
}

func TestCache_ExpiredServesStaleAndRefreshes(t *testing.T) {
	cache, store, clock := newTestCache(30 * time.Second)
	ctx := context.Background()
	var calls int64

	fp := TokenFingerprint("mint1")
	if _, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"v":1}`, &calls)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	clock.Advance(45 * time.Second)

	refreshed := make(chan struct{})
	refreshCompute := func(ctx context.Context) ([]byte, error) {
		defer close(refreshed)
		atomic.AddInt64(&calls, 1)
		return []byte(`{"v":2}`), nil
	}

	res, err := cache.GetOrCompute(ctx, fp, refreshCompute)
	if err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if string(res.Payload) != `{"v":1}` {
		t.Errorf("stale payload = %s, want old value", res.Payload)
	}
	if !res.Stale || res.UsingRealData {
		t.Errorf("stale serve: stale=%v real=%v, want true/false", res.Stale, res.UsingRealData)
	}

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}

	// The refresh must have written the new payload through.
	deadline := time.After(2 * time.Second)
	for {
		entry, err := store.Get(ctx, fp)
		if err == nil && string(entry.Payload) == `{"v":2}` {
			return
		}
		select {
		case <-deadline:
			t.Fatal("refreshed entry never stored")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCache_UpstreamDownWithNoEntryFails(t *testing.T) {
	cache, _, _ := newTestCache(30 * time.Second)

	compute := func(ctx context.Context) ([]byte, error) {
		return nil, fmt.Errorf("helius: %w", marketdata.ErrUpstreamUnavailable)
	}

	_, err := cache.GetOrCompute(context.Background(), TokenFingerprint("mint1"), compute)
	if !errors.Is(err, marketdata.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestCache_UpstreamDownServesRetainedEntry(t *testing.T) {
	cache, _, clock := newTestCache(30 * time.Second)
	ctx := context.Background()
	var calls int64

	fp := TokenFingerprint("mint1")
	if _, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"v":1}`, &calls)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	clock.Advance(5 * time.Minute)

	failing := func(ctx context.Context) ([]byte, error) {
		return nil, marketdata.ErrUpstreamUnavailable
	}
	res, err := cache.GetOrCompute(ctx, fp, failing)
	if err != nil {
		t.Fatalf("degraded read: %v", err)
	}
	if res.UsingRealData {
		t.Error("degraded payload tagged as real data")
	}
	if string(res.Payload) != `{"v":1}` {
		t.Errorf("degraded payload = %s, want retained value", res.Payload)
	}
}

func TestCache_InvalidateForcesRecompute(t *testing.T) {
	cache, _, _ := newTestCache(30 * time.Second)
	ctx := context.Background()
	var calls int64

	fp := ListFingerprint(0, 20)
	if _, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"v":1}`, &calls)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := cache.Invalidate(ctx, fp); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	res, err := cache.GetOrCompute(ctx, fp, payloadFunc(`{"v":2}`, &calls))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if string(res.Payload) != `{"v":2}` {
		t.Errorf("payload = %s, want recomputed value", res.Payload)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("compute calls = %d, want 2", got)
	}
}

func TestMemoryStore_RetentionEvicts(t *testing.T) {
	clock := newTestClock()
	store := NewMemoryStore(10 * time.Minute)
	store.now = clock.Now
	ctx := context.Background()

	entry := &Entry{
		Fingerprint: "token:mint1",
		Payload:     []byte(`{}`),
		ComputedAt:  clock.Now(),
		ExpiresAt:   clock.Now().Add(30 * time.Second),
	}
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.Advance(5 * time.Minute)
	if _, err := store.Get(ctx, "token:mint1"); err != nil {
		t.Fatalf("expired entry should survive within retention: %v", err)
	}

	clock.Advance(6 * time.Minute)
	if _, err := store.Get(ctx, "token:mint1"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss past retention, got %v", err)
	}
}

func TestFingerprints(t *testing.T) {
	if got := TokenFingerprint("mint1"); got != "token:mint1" {
		t.Errorf("token fingerprint = %s", got)
	}
	if got := ListFingerprint(70, 10); got != "signals:70:10" {
		t.Errorf("list fingerprint = %s", got)
	}
}
