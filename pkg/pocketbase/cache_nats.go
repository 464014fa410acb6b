package pocketbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
)

// NATSKVConfig configures a JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server, e.g. nats://127.0.0.1:4222.
	URL string
	// Bucket defaults to "pocketbase-cache".
	Bucket string
	// TTL is the bucket-level max age; entries also carry their own expiry.
	TTL time.Duration
	// ConnectTimeout defaults to five seconds.
	ConnectTimeout time.Duration
	// Options are passed to nats.Connect after the defaults.
	Options []nats.Option
}

// NATSKVCache shares cached responses between processes through a NATS
// JetStream key-value bucket.
type NATSKVCache struct {
	conn *nats.Conn
	kv   nats.KeyValue
	now  func() time.Time
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNATSConfigRequired
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = constants.NATSConnectTimeout
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	opts := append([]nats.Option{nats.Name("pocketbase-go"), nats.Timeout(timeout)}, config.Options...)

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "pocketbase-go response cache",
			TTL:         config.TTL,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening key-value bucket %q: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, kv: kv, now: time.Now}, nil
}

// NewNATSKVCacheFromKeyValue wraps an already opened bucket. Close is a no-op
// for caches built this way.
func NewNATSKVCacheFromKeyValue(kv nats.KeyValue) *NATSKVCache {
	return &NATSKVCache{kv: kv, now: time.Now}
}

// Get retrieves an entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache key: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kve.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired(c.now()) {
		_ = c.kv.Delete(key)

		return nil, ErrCacheExpired
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(key, data)
	if err != nil {
		return fmt.Errorf("writing cache key: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(key)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting cache key: %w", err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing cache keys: %w", err)
	}

	var errs error

	for _, key := range keys {
		errs = multierr.Append(errs, c.kv.Purge(key))
	}

	return errs
}

// Has reports whether a fresh entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the connection opened by NewNATSKVCache.
func (c *NATSKVCache) Close() error {
	if c.conn == nil {
		return nil
	}

	return c.conn.Drain()
}
