package pocketbase_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshEntry(data string) *pocketbase.CacheEntry {
	return &pocketbase.CacheEntry{Data: []byte(data), ExpiresAt: time.Now().Add(time.Hour)}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(10)
	ctx := context.Background()

	entry := freshEntry("test data")

	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)

	// Mutating the caller's copy must not leak into the cache.
	entry.Data[0] = 'X'
	retrieved.Data[1] = 'Y'

	again, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "test data", string(again.Data))
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, pocketbase.ErrCacheMiss)
	assert.Contains(t, err.Error(), "key not found")
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(10)
	ctx := context.Background()

	err := cache.Set(ctx, "key1", &pocketbase.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, cache.Has(ctx, "key1"))

	_, err = cache.Get(ctx, "key1")
	require.ErrorIs(t, err, pocketbase.ErrCacheExpired)
	assert.Equal(t, 0, cache.Len(), "expired entries are dropped on read")
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(10)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, cache.Set(ctx, string(rune('a'+i)), freshEntry("test data")))
	}

	require.NoError(t, cache.Delete(ctx, "a"))
	require.NoError(t, cache.Delete(ctx, "missing"))
	assert.False(t, cache.Has(ctx, "a"))
	assert.True(t, cache.Has(ctx, "b"))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, "b"))
	assert.False(t, cache.Has(ctx, "c"))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", freshEntry("1")))
	require.NoError(t, cache.Set(ctx, "b", freshEntry("2")))

	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "c", freshEntry("3")))

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "stale", &pocketbase.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, cache.Set(ctx, "fresh", freshEntry("ok")))
	require.NoError(t, cache.Set(ctx, "forever", &pocketbase.CacheEntry{Data: []byte("x")}))

	cache.Cleanup()

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "forever"))
}

func TestMemoryCache_Concurrent(t *testing.T) {
	t.Parallel()

	cache := pocketbase.NewMemoryCache(50)
	ctx := context.Background()

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				key := fmt.Sprintf("k%d", (worker*100+i)%75)
				_ = cache.Set(ctx, key, freshEntry(key))
				_, _ = cache.Get(ctx, key)
			}
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 50)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	base := pocketbase.CacheKey("tok", "GET", "/api/collections/posts/records", "page=1")

	assert.Len(t, base, 64)
	assert.Equal(t, base, pocketbase.CacheKey("tok", "GET", "/api/collections/posts/records", "page=1"))
	assert.NotEqual(t, base, pocketbase.CacheKey("other", "GET", "/api/collections/posts/records", "page=1"))
	assert.NotEqual(t, base, pocketbase.CacheKey("", "GET", "/api/collections/posts/records", "page=1"))
	assert.NotEqual(t, base, pocketbase.CacheKey("tok", "GET", "/api/collections/posts/records", "page=2"))
}

// fakeKeyValue implements the part of nats.KeyValue the cache uses.
type fakeKeyValue struct {
	nats.KeyValue

	mu   sync.Mutex
	data map[string][]byte
}

type fakeKeyValueEntry struct {
	nats.KeyValueEntry

	value []byte
}

func (e *fakeKeyValueEntry) Value() []byte { return e.value }

func newFakeKeyValue() *fakeKeyValue {
	return &fakeKeyValue{data: map[string][]byte{}}
}

func (f *fakeKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}

	return &fakeKeyValueEntry{value: value}, nil
}

func (f *fakeKeyValue) Put(key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = value

	return uint64(len(f.data)), nil
}

func (f *fakeKeyValue) Delete(key string, _ ...nats.DeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.data, key)

	return nil
}

func (f *fakeKeyValue) Purge(key string, opts ...nats.DeleteOpt) error {
	return f.Delete(key, opts...)
}

func (f *fakeKeyValue) Keys(_ ...nats.WatchOpt) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.data) == 0 {
		return nil, nats.ErrNoKeysFound
	}

	keys := make([]string, 0, len(f.data))
	for key := range f.data {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys, nil
}

func TestNATSKVCache(t *testing.T) {
	t.Parallel()

	kv := newFakeKeyValue()
	cache := pocketbase.NewNATSKVCacheFromKeyValue(kv)
	ctx := context.Background()

	require.NoError(t, cache.Clear(ctx), "clearing an empty bucket succeeds")

	_, err := cache.Get(ctx, "missing")
	require.ErrorIs(t, err, pocketbase.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "a", freshEntry(`{"ok":true}`)))
	require.NoError(t, cache.Set(ctx, "b", freshEntry("b")))

	entry, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(entry.Data))
	assert.True(t, cache.Has(ctx, "b"))

	require.NoError(t, cache.Set(ctx, "old", &pocketbase.CacheEntry{ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err = cache.Get(ctx, "old")
	require.ErrorIs(t, err, pocketbase.ErrCacheExpired)

	_, err = kv.Get("old")
	require.ErrorIs(t, err, nats.ErrKeyNotFound, "expired entries are deleted from the bucket")

	require.NoError(t, cache.Delete(ctx, "a"))
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, "b"))
	assert.NoError(t, cache.Close())
}

func TestNATSKVCache_Corrupt(t *testing.T) {
	t.Parallel()

	kv := newFakeKeyValue()
	kv.data["bad"] = []byte("not json")

	_, err := pocketbase.NewNATSKVCacheFromKeyValue(kv).Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, pocketbase.ErrCacheMiss))
}

func TestNewNATSKVCache_Config(t *testing.T) {
	t.Parallel()

	_, err := pocketbase.NewNATSKVCache(nil)
	require.ErrorIs(t, err, pocketbase.ErrNATSConfigRequired)

	_, err = pocketbase.NewNATSKVCache(&pocketbase.NATSKVConfig{})
	require.ErrorIs(t, err, pocketbase.ErrNATSConfigRequired)

	_, err = pocketbase.NewNATSKVCache(&pocketbase.NATSKVConfig{
		URL:            "nats://127.0.0.1:1",
		ConnectTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to NATS")
}
