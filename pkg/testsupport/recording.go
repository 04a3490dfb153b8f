package testsupport

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-cache-intercept/cache"
)

// Call is one operation observed by a RecordingCache.
type Call struct {
	Op  string
	Key any
}

// RecordingCache is an in-memory cache.Cache that records every call and
// can be told to fail specific operations.
type RecordingCache struct {
	name       string
	serializer cache.KeySerializer

	mu      sync.Mutex
	entries map[string]any
	calls   []Call
	fail    map[string]error
}

// NewRecordingCache returns an empty cache called name.
func NewRecordingCache(name string) *RecordingCache {
	return &RecordingCache{
		name:       name,
		serializer: cache.NewDefaultKeySerializer(),
		entries:    make(map[string]any),
		fail:       make(map[string]error),
	}
}

// Name returns the cache name.
func (c *RecordingCache) Name() string {
	return c.name
}

// Get records the call and returns the stored value, failing when FailOn
// registered an error for "get".
func (c *RecordingCache) Get(_ context.Context, key any) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Op: "get", Key: key})
	if err := c.fail["get"]; err != nil {
		return nil, false, err
	}
	v, ok := c.entries[c.serializer.SerializeKey(key)]
	return v, ok, nil
}

// Put records the call and stores value in its wrapped form.
func (c *RecordingCache) Put(_ context.Context, key any, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Op: "put", Key: key})
	if err := c.fail["put"]; err != nil {
		return err
	}
	c.entries[c.serializer.SerializeKey(key)] = cache.ToStoreValue(value)
	return nil
}

// Evict records the call and removes key.
func (c *RecordingCache) Evict(_ context.Context, key any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Op: "evict", Key: key})
	if err := c.fail["evict"]; err != nil {
		return err
	}
	delete(c.entries, c.serializer.SerializeKey(key))
	return nil
}

// Clear records the call and drops every entry.
func (c *RecordingCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Op: "clear"})
	if err := c.fail["clear"]; err != nil {
		return err
	}
	c.entries = make(map[string]any)
	return nil
}

// FailOn makes op ("get", "put", "evict" or "clear") return err. A nil err
// restores normal behavior.
func (c *RecordingCache) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

// Seed stores value under key without recording a call.
func (c *RecordingCache) Seed(key any, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.serializer.SerializeKey(key)] = cache.ToStoreValue(value)
}

// Peek returns the raw stored value without recording a call.
func (c *RecordingCache) Peek(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[c.serializer.SerializeKey(key)]
	return v, ok
}

// Len returns the number of stored entries.
func (c *RecordingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Calls returns a copy of the recorded calls.
func (c *RecordingCache) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Call(nil), c.calls...)
}

// Ops returns the recorded operation names in call order.
func (c *RecordingCache) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ops := make([]string, len(c.calls))
	for i, call := range c.calls {
		ops[i] = call.Op
	}
	return ops
}

// ResetCalls forgets the recorded calls and keeps the entries.
func (c *RecordingCache) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = nil
}

// RecordingManager is a cache.Manager of RecordingCaches created on demand.
type RecordingManager struct {
	mu     sync.Mutex
	caches map[string]*RecordingCache
	static bool
}

// NewRecordingManager returns a manager. When names are given only those
// caches exist; otherwise any name is created on first use.
func NewRecordingManager(names ...string) *RecordingManager {
	m := &RecordingManager{
		caches: make(map[string]*RecordingCache),
		static: len(names) > 0,
	}
	for _, name := range names {
		m.caches[name] = NewRecordingCache(name)
	}
	return m
}

// Cache returns the named cache. A manager built with names returns
// cache.ErrCacheNotFound for any other name.
func (m *RecordingManager) Cache(name string) (cache.Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[name]; ok {
		return c, nil
	}
	if m.static {
		return nil, cache.ErrCacheNotFound
	}
	c := NewRecordingCache(name)
	m.caches[name] = c
	return c, nil
}

// Names returns the known cache names in sorted order.
func (m *RecordingManager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Recording returns the RecordingCache called name, creating it if needed.
func (m *RecordingManager) Recording(name string) *RecordingCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.caches[name]
	if !ok {
		c = NewRecordingCache(name)
		m.caches[name] = c
	}
	return c
}

// Counter counts invocations of a guarded target.
type Counter struct {
	n atomic.Int64
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	return c.n.Load()
}

// Reset sets the counter back to zero.
func (c *Counter) Reset() {
	c.n.Store(0)
}

var (
	_ cache.Cache   = (*RecordingCache)(nil)
	_ cache.Manager = (*RecordingManager)(nil)
)
