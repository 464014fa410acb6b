package pocketbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"go.uber.org/multierr"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	Type CacheType

	// MemorySize bounds the memory backend; zero uses the default.
	MemorySize int

	NATS *NATSKVConfig
}

// NewCacheFromConfig creates a cache backend from configuration. A nil
// config yields a default memory cache.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = &CacheConfig{Type: CacheTypeMemory}
	}

	switch config.Type {
	case CacheTypeMemory, "":
		size := config.MemorySize
		if size == 0 {
			size = constants.DefaultCacheSize
		}

		return NewMemoryCache(size), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error { return nil }

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error { return nil }

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error { return nil }

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool { return false }

// CacheChain layers caches, fastest first. Reads fall through and backfill
// the earlier layers; writes go to every layer.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the first hit.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err != nil {
			continue
		}

		for j := range i {
			_ = c.caches[j].Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrCacheMiss
}

// Set stores an item in all caches, combining the failures.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var errs error

	for _, cache := range c.caches {
		errs = multierr.Append(errs, cache.Set(ctx, key, entry))
	}

	return errs
}

// Delete removes an item from all caches.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var errs error

	for _, cache := range c.caches {
		errs = multierr.Append(errs, cache.Delete(ctx, key))
	}

	return errs
}

// Clear removes all items from all caches.
func (c *CacheChain) Clear(ctx context.Context) error {
	var errs error

	for _, cache := range c.caches {
		errs = multierr.Append(errs, cache.Clear(ctx))
	}

	return errs
}

// Has checks if a key exists in any cache.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
