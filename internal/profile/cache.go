package profile

import (
	"sync"
	"time"
)

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// Cache is a mutex-guarded profile cache with a single fixed TTL per
// entry. Expired entries are kept so callers can choose to serve them
// stale when the remote is down.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given entry TTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached profile for uid. fresh reports whether the entry
// is within its TTL; ok reports whether any entry exists at all.
func (c *Cache) Get(uid string) (p Profile, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[uid]
	if !ok {
		return Profile{}, false, false
	}
	return entry.profile, time.Now().Before(entry.expiresAt), true
}

// Put stores the profile, stamping a fresh expiry.
func (c *Cache) Put(uid string, p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[uid] = cacheEntry{
		profile:   p,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops the entry for uid.
func (c *Cache) Invalidate(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, uid)
}
