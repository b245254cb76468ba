package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"bmrs-report/internal/model"
)

// CacheEntry represents a cached set of merged settlement records.
type CacheEntry struct {
	Records   []model.SettlementRecord
	ExpiresAt time.Time
}

// ResponseCache provides in-memory caching for Elexon API responses.
//
// ⚠️ WARNING: this cache is for LOCAL DEVELOPMENT ONLY. It saves repeated
// fetches of the same settlement date while iterating on analysis code.
// It is automatically disabled when API_ENV=production.
type ResponseCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
}

var globalCache *ResponseCache
var cacheOnce sync.Once

// GetCache returns the global cache instance if caching is enabled via
// ENABLE_ELEXON_CACHE=true, or nil when caching is disabled.
func GetCache() *ResponseCache {
	if os.Getenv("ENABLE_ELEXON_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}

	cacheOnce.Do(func() {
		ttl := 1 * time.Hour
		if ttlStr := os.Getenv("ELEXON_CACHE_TTL"); ttlStr != "" {
			if parsed, err := time.ParseDuration(ttlStr); err == nil {
				ttl = parsed
			}
		}

		globalCache = &ResponseCache{
			store: make(map[string]*CacheEntry),
			ttl:   ttl,
		}

		go globalCache.cleanup()
	})

	return globalCache
}

// Get retrieves cached records if available and not expired.
func (c *ResponseCache) Get(key string) ([]model.SettlementRecord, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Records, true
}

// Set stores records in the cache.
func (c *ResponseCache) Set(key string, records []model.SettlementRecord) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Records:   records,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Clear removes all entries from the cache.
func (c *ResponseCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry)
}

// cleanup periodically removes expired entries.
func (c *ResponseCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.store {
			if now.After(entry.ExpiresAt) {
				delete(c.store, key)
			}
		}
		c.mu.Unlock()
	}
}

// generateCacheKey creates a deterministic key for one fetch.
func generateCacheKey(settlementDate string, settlementPeriod int) string {
	keyStr := fmt.Sprintf("imbalance:%s:%d", settlementDate, settlementPeriod)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}
