package risksync

import (
	"strings"
	"sync"
)

// LevelsCache is the volatile last-known TP/SL store. It lives for the
// process lifetime only: after a restart it starts empty and the
// exchange is the sole source of truth. The engine is the only writer;
// the cache is advisory and a successful fetch always supersedes it.
type LevelsCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewLevelsCache creates an empty cache.
func NewLevelsCache() *LevelsCache {
	return &LevelsCache{entries: make(map[string]CacheEntry)}
}

// Get returns a copy of the entry for the key, if present.
func (c *LevelsCache) Get(wallet, symbol string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(wallet, symbol)]
	return entry, ok
}

// Set stores an entry, normalizing the key fields. UpdatedAtMs is kept
// monotonically non-decreasing per key.
func (c *LevelsCache) Set(entry CacheEntry) {
	entry.WalletAddress = strings.ToLower(entry.WalletAddress)
	entry.Symbol = strings.ToUpper(entry.Symbol)
	key := entry.WalletAddress + "|" + entry.Symbol

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok && entry.UpdatedAtMs < prev.UpdatedAtMs {
		entry.UpdatedAtMs = prev.UpdatedAtMs
	}
	c.entries[key] = entry
}

// Len returns the number of cached keys.
func (c *LevelsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
