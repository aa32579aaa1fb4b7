package llm

import (
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
)

// cacheEntry represents a cached classification.
type cacheEntry struct {
	expiry   time.Time
	category model.Category
}

// categoryCache provides thread-safe caching for resolved categories.
type categoryCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// newCategoryCache creates a new cache with the specified TTL.
func newCategoryCache(ttl time.Duration) *categoryCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &categoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// cacheKey normalizes an expense's text so trivially different spellings share an entry.
func cacheKey(title, description string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(description))
}

// get retrieves a category from the cache if it exists and hasn't expired.
func (c *categoryCache) get(key string) (model.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return "", false
	}

	return entry.category, true
}

// set stores a category in the cache.
func (c *categoryCache) set(key string, category model.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		category: category,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *categoryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *categoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *categoryCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
