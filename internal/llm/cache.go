package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// cacheEntry represents a cached completion.
type cacheEntry struct {
	expiry time.Time
	text   string
}

// responseCache provides thread-safe caching of completion text.
type responseCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newResponseCache creates a new cache with the specified TTL.
func newResponseCache(ttl time.Duration) *responseCache {
	if ttl == 0 {
		ttl = time.Hour
	}

	cache := &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a completion if it exists and hasn't expired.
func (c *responseCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}

	if time.Now().After(entry.expiry) {
		return "", false
	}

	return entry.text, true
}

// set stores a completion in the cache.
func (c *responseCache) set(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		text:   text,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *responseCache) cleanup() {
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
func (c *responseCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// close stops the cleanup goroutine.
func (c *responseCache) close() {
	close(c.stopCh)
}

// cacheKey identifies a request by everything that influences the completion.
func cacheKey(provider string, req Request) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%s\x00%s",
		provider, req.Model, req.MaxTokens, temperatureKey(req.Temperature), req.System, req.Prompt)
	return hex.EncodeToString(h.Sum(nil))
}

// temperatureKey keeps an unset temperature distinct from an explicit 0.
func temperatureKey(t *float64) string {
	if t == nil {
		return "default"
	}
	return strconv.FormatFloat(*t, 'g', -1, 64)
}

// cachingClient serves repeated identical requests from a responseCache.
type cachingClient struct {
	next     Client
	cache    *responseCache
	logger   *slog.Logger
	provider string
}

func newCachingClient(next Client, provider string, ttl time.Duration, logger *slog.Logger) *cachingClient {
	return &cachingClient{
		next:     next,
		cache:    newResponseCache(ttl),
		logger:   logger,
		provider: provider,
	}
}

// Complete returns a cached completion when available. Failures are not cached.
func (c *cachingClient) Complete(ctx context.Context, req Request) (string, error) {
	key := cacheKey(c.provider, req)
	if text, ok := c.cache.get(key); ok {
		c.logger.Debug("Completion served from cache", "provider", c.provider)
		return text, nil
	}

	text, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	c.cache.set(key, text)
	return text, nil
}

// Close stops the cache's cleanup goroutine.
func (c *cachingClient) Close() error {
	c.cache.close()
	return nil
}
