package cache

import (
	"context"

	"github.com/pkg/errors"
)

// ErrCacheNotFound is returned by a Manager for an unknown cache name.
var ErrCacheNotFound = errors.New("cache not found")

// Cache is a named key/value store. Get reports found=true for a stored
// NullValue, so callers can tell a cached absence from a key never stored.
type Cache interface {
	Name() string
	Get(ctx context.Context, key any) (value any, found bool, err error)
	Put(ctx context.Context, key any, value any) error
	Evict(ctx context.Context, key any) error
	Clear(ctx context.Context) error
}

// LoadFn computes the value for a key on a miss.
type LoadFn func(ctx context.Context) (any, error)

// Loader is implemented by caches that can coalesce concurrent misses for the
// same key into a single load.
type Loader interface {
	GetOrLoad(ctx context.Context, key any, load LoadFn) (any, error)
}

// Manager resolves caches by name.
type Manager interface {
	Cache(name string) (Cache, error)
	Names() []string
}

// Null is the type of the stored absent marker.
type Null struct{}

// NullValue is stored in place of a nil result.
var NullValue = Null{}

// IsNull reports whether v is the absent marker.
func IsNull(v any) bool {
	_, ok := v.(Null)
	return ok
}

// ToStoreValue replaces a nil value with NullValue.
func ToStoreValue(v any) any {
	if v == nil {
		return NullValue
	}
	return v
}

// FromStoreValue turns NullValue back into nil.
func FromStoreValue(v any) any {
	if IsNull(v) {
		return nil
	}
	return v
}
