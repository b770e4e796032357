package query

import (
	"sort"
	"sync"
)

// Universe is the set of token addresses the list endpoint scans. Seeded at
// startup and grown by every successfully analyzed token.
type Universe struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewUniverse creates a universe containing the given seed addresses.
func NewUniverse(seed []string) *Universe {
	u := &Universe{tokens: make(map[string]struct{}, len(seed))}
	for _, addr := range seed {
		u.tokens[addr] = struct{}{}
	}
	return u
}

// DefaultSeed is the well-known meme token set scanned out of the box.
var DefaultSeed = []string{
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", // BONK
	"EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", // WIF
	"7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", // POPCAT
	"ukHH6c7mMyiWCf1b9pnWe25TSpkDDt3H5pQZgZ74J82",  // BOME
	"MEW1gQWJ3nEXg2qgERiKu7FAFj79PHvQVREQUzScPP5",  // MEW
}

// Add registers a token address. Adding an existing address is a no-op.
func (u *Universe) Add(address string) {
	u.mu.Lock()
	u.tokens[address] = struct{}{}
	u.mu.Unlock()
}

// Contains reports whether the address is registered.
func (u *Universe) Contains(address string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.tokens[address]
	return ok
}

// List returns all registered addresses in stable order.
func (u *Universe) List() []string {
	u.mu.RLock()
	out := make([]string, 0, len(u.tokens))
	for addr := range u.tokens {
		out = append(out, addr)
	}
	u.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len returns the number of registered addresses.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.tokens)
}
