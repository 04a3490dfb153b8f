package cache

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Factory creates the cache for name on first use.
type Factory func(name string) (Cache, error)

// ManagerOption configures a DefaultManager.
type ManagerOption func(*DefaultManager)

// WithStaticNames restricts the manager to the given names. Unknown names
// resolve to ErrCacheNotFound instead of being created.
func WithStaticNames(names ...string) ManagerOption {
	return func(m *DefaultManager) {
		m.static = make(map[string]struct{}, len(names))
		for _, name := range names {
			m.static[name] = struct{}{}
		}
	}
}

// WithCaches registers pre-built caches under their own names.
func WithCaches(caches ...Cache) ManagerOption {
	return func(m *DefaultManager) {
		for _, c := range caches {
			m.caches.Store(c.Name(), c)
		}
	}
}

// DefaultManager resolves caches by name and lazily creates missing ones
// through its Factory.
type DefaultManager struct {
	caches  *xsync.MapOf[string, Cache]
	factory Factory
	static  map[string]struct{}
	mu      sync.Mutex
}

// NewManager returns a manager that creates caches with factory. A nil
// factory only serves caches registered with WithCaches.
func NewManager(factory Factory, opts ...ManagerOption) *DefaultManager {
	m := &DefaultManager{
		caches:  xsync.NewMapOf[string, Cache](),
		factory: factory,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMemoryManager returns a manager of sturdyc backed caches sharing cfg.
// When names are given the manager is static and creates them eagerly.
func NewMemoryManager(cfg Config, names ...string) (*DefaultManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	serializer := NewDefaultKeySerializer()
	factory := func(name string) (Cache, error) {
		return NewMemoryCache(name, cfg, serializer)
	}

	var opts []ManagerOption
	if len(names) > 0 {
		opts = append(opts, WithStaticNames(names...))
	}
	m := NewManager(factory, opts...)

	for _, name := range names {
		if _, err := m.Cache(name); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewRedisManager returns a manager creating RedisCache instances on client.
func NewRedisManager(client redis.UniversalClient, cacheOpts []RedisOption, opts ...ManagerOption) *DefaultManager {
	factory := func(name string) (Cache, error) {
		return NewRedisCache(name, client, cacheOpts...)
	}
	return NewManager(factory, opts...)
}

// Cache returns the cache registered under name, creating it if allowed.
func (m *DefaultManager) Cache(name string) (Cache, error) {
	if c, ok := m.caches.Load(name); ok {
		return c, nil
	}

	if m.factory == nil {
		return nil, errors.Wrapf(ErrCacheNotFound, "cache %q", name)
	}
	if m.static != nil {
		if _, ok := m.static[name]; !ok {
			return nil, errors.Wrapf(ErrCacheNotFound, "cache %q", name)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches.Load(name); ok {
		return c, nil
	}

	c, err := m.factory(name)
	if err != nil {
		return nil, errors.Wrapf(err, "create cache %q", name)
	}
	m.caches.Store(name, c)
	return c, nil
}

// Names returns the names of the caches created so far, sorted.
func (m *DefaultManager) Names() []string {
	names := make([]string, 0, m.caches.Size())
	m.caches.Range(func(name string, _ Cache) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

var _ Manager = (*DefaultManager)(nil)
