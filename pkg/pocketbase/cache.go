package pocketbase

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrCacheMiss    = errors.New("key not found")
	ErrCacheExpired = errors.New("entry expired")
)

// CacheEntry is a cached response body.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is stale at now. A zero ExpiresAt never
// expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Cache stores successful GET responses. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheKey derives the cache key for a request. The token is part of the key
// so two sessions never share a response.
func CacheKey(token, method, path, query string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{token, method, path, query}, "\n")))

	return hex.EncodeToString(sum[:])
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// MemoryCache is a size-bounded in-process LRU cache.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[string]*list.Element
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most maxSize entries. A
// non-positive size means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the entry for key, or ErrCacheMiss / ErrCacheExpired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	item, _ := elem.Value.(*memoryItem)
	if item.entry.Expired(c.now()) {
		c.removeElement(elem)

		return nil, ErrCacheExpired
	}

	c.order.MoveToFront(elem)

	return copyEntry(item.entry), nil
}

// Set stores entry under key, evicting the least recently used entry when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item, _ := elem.Value.(*memoryItem)
		item.entry = copyEntry(entry)
		c.order.MoveToFront(elem)

		return nil
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: copyEntry(entry)})

	for c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
	}

	return nil
}

// Delete removes key if present.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)

	return nil
}

// Has reports whether a fresh entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}

	item, _ := elem.Value.(*memoryItem)

	return !item.entry.Expired(c.now())
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()

		item, _ := elem.Value.(*memoryItem)
		if item.entry.Expired(now) {
			c.removeElement(elem)
		}

		elem = next
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	item, _ := elem.Value.(*memoryItem)
	delete(c.items, item.key)
	c.order.Remove(elem)
}

func copyEntry(entry *CacheEntry) *CacheEntry {
	if entry == nil {
		return &CacheEntry{}
	}

	data := make([]byte, len(entry.Data))
	copy(data, entry.Data)

	return &CacheEntry{Data: data, ExpiresAt: entry.ExpiresAt}
}
