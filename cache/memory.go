package cache

import (
	"context"

	"github.com/goliatone/go-cache-intercept/internal/cacheinfra"
)

// MemoryCache is an in-process named cache backed by sturdyc. Keys are
// serialized with a KeySerializer before they reach the store.
type MemoryCache struct {
	name       string
	store      *cacheinfra.SturdycStore
	serializer KeySerializer
}

// NewMemoryCache builds a named cache from cfg. A nil serializer selects the
// default one.
func NewMemoryCache(name string, cfg Config, serializer KeySerializer) (*MemoryCache, error) {
	store, err := cacheinfra.NewSturdycStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}

	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}

	return &MemoryCache{
		name:       name,
		store:      store,
		serializer: serializer,
	}, nil
}

// Name returns the cache name.
func (c *MemoryCache) Name() string {
	return c.name
}

// Get returns the stored value. A stored NullValue is returned as-is with
// found=true.
func (c *MemoryCache) Get(_ context.Context, key any) (any, bool, error) {
	v, ok := c.store.Get(c.serializer.SerializeKey(key))
	return v, ok, nil
}

// Put stores value under key, replacing nil with NullValue.
func (c *MemoryCache) Put(_ context.Context, key any, value any) error {
	c.store.Set(c.serializer.SerializeKey(key), ToStoreValue(value))
	return nil
}

// Evict removes key. Evicting a missing key is a no-op.
func (c *MemoryCache) Evict(_ context.Context, key any) error {
	c.store.Delete(c.serializer.SerializeKey(key))
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.store.Clear()
	return nil
}

// Size returns the number of stored entries.
func (c *MemoryCache) Size() int {
	return c.store.Size()
}

// GetOrLoad returns the stored value or runs load once for all concurrent
// callers of the same key. A nil load result is stored as NullValue and
// returned as NullValue.
func (c *MemoryCache) GetOrLoad(ctx context.Context, key any, load LoadFn) (any, error) {
	return c.store.GetOrFetch(ctx, c.serializer.SerializeKey(key), func(ctx context.Context) (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return ToStoreValue(v), nil
	})
}

var (
	_ Cache  = (*MemoryCache)(nil)
	_ Loader = (*MemoryCache)(nil)
)
