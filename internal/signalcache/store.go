// Package signalcache caches computed signal payloads behind a fingerprint
// key. A Store holds entries past their logical expiry so the Cache can serve
// stale data while a refresh is in flight or the upstream is down.
package signalcache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Store.Get when no entry exists for a fingerprint.
var ErrMiss = errors.New("cache miss")

// Entry is one cached payload. Payload is the marshaled response body;
// callers never mutate it after Set.
type Entry struct {
	Fingerprint   string    `json:"fingerprint"`
	Payload       []byte    `json:"payload"`
	ComputedAt    time.Time `json:"computed_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	UsingRealData bool      `json:"using_real_data"`
}

// Store is the cache backend. Implementations retain entries for their
// configured retention window, which must exceed the Cache's logical TTL.
type Store interface {
	// Get returns the entry for fingerprint, expired or not, or ErrMiss.
	Get(ctx context.Context, fingerprint string) (*Entry, error)

	// Set stores the entry, replacing any previous one.
	Set(ctx context.Context, entry *Entry) error

	// Delete removes the entry if present. Absence is not an error.
	Delete(ctx context.Context, fingerprint string) error
}

// TokenFingerprint is the cache key for a single token's signal.
func TokenFingerprint(tokenAddress string) string {
	return "token:" + tokenAddress
}

// ListFingerprint is the cache key for a filtered signal list.
func ListFingerprint(minScore, limit int) string {
	return fmt.Sprintf("signals:%d:%d", minScore, limit)
}
