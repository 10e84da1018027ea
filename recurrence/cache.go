package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"
)

// cacheEntry represents a cached expansion result
type cacheEntry struct {
	occurrences []time.Time
	expiresAt   time.Time
	accessedAt  time.Time
}

// ExpansionCache caches expansion results keyed by rule, anchor, window and limit
type ExpansionCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the expansion cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for expansion caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewExpansionCache creates a cache and starts its cleanup goroutine. Call
// Close to stop it.
func NewExpansionCache(config CacheConfig) *ExpansionCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &ExpansionCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes every rule field that can change an expansion. The RRULE
// text is not enough: it folds interval 0 into 1 and truncates Until to
// seconds.
func cacheKey(r Rule, anchor time.Time, w Window, maxCount int) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%d|%d|%d|%d|%d|", r.Frequency, r.Interval, r.End.Kind, r.End.Count, r.End.Until.UnixNano())
	days, hasWeekly := r.Weekly.Get()
	fmt.Fprintf(hasher, "%t:%d|", hasWeekly, uint8(days))
	p, hasMonthly := r.Monthly.Get()
	fmt.Fprintf(hasher, "%t:%d:%d:%d:%d|", hasMonthly, p.Kind, p.Day, int(p.Weekday), p.Occurrence)
	hasher.Write([]byte(anchor.Format(time.RFC3339Nano)))
	hasher.Write([]byte(anchor.Location().String()))
	hasher.Write([]byte(w.Start.Format(time.RFC3339Nano)))
	hasher.Write([]byte(w.End.Format(time.RFC3339Nano)))
	hasher.Write([]byte(strconv.Itoa(maxCount)))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get returns a copy of a cached expansion if present and not expired.
func (c *ExpansionCache) Get(r Rule, anchor time.Time, w Window, maxCount int) ([]time.Time, bool) {
	key := cacheKey(r, anchor, w, maxCount)

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.accessedAt = now
	c.mutex.Unlock()

	return slices.Clone(entry.occurrences), true
}

// Set stores a copy of occurrences.
func (c *ExpansionCache) Set(r Rule, anchor time.Time, w Window, maxCount int, occurrences []time.Time) {
	key := cacheKey(r, anchor, w, maxCount)
	now := time.Now()

	entry := &cacheEntry{
		occurrences: slices.Clone(occurrences),
		expiresAt:   now.Add(c.ttl),
		accessedAt:  now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// while over the limit. Callers hold the write lock.
func (c *ExpansionCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	byAccess := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		byAccess = append(byAccess, keyAccess{key: key, accessedAt: entry.accessedAt})
	}
	slices.SortFunc(byAccess, func(a, b keyAccess) int {
		return a.accessedAt.Compare(b.accessedAt)
	})

	excess := len(c.entries) - c.maxEntries
	for i := 0; i < excess; i++ {
		delete(c.entries, byAccess[i].key)
	}
}

func (c *ExpansionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to call
// more than once.
func (c *ExpansionCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *ExpansionCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	expired := 0
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
