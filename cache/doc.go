// Package cache provides named caches, cache managers and key generation for
// the interception engine.
//
// # Overview
//
// A Cache is a named key/value store. A Manager resolves caches by name. Two
// backends ship with the package:
//
//   - MemoryCache: in-process, backed by sturdyc, one client per cache name
//   - RedisCache: remote, values encoded with msgpack under a per-cache prefix
//
// # Absent values
//
// A nil value is stored as NullValue so a cached absence can be told apart
// from a key that was never stored. Get returns NullValue with found=true;
// callers convert it back with FromStoreValue.
//
// # Keys
//
// Keys are arbitrary values. The SimpleKeyGenerator derives them from method
// arguments:
//
//	gen := cache.NewSimpleKeyGenerator()
//	gen.Generate(target, "find")          // cache.EmptyKey
//	gen.Generate(target, "find", 42)      // 42
//	gen.Generate(target, "find", 42, "a") // cache.SimpleKey{Params: []any{42, "a"}}
//
// Backends turn keys into strings with a KeySerializer. The default serializer
// tags every value with its type, so 1, int64(1) and "1" address different
// entries, while two SimpleKeys with deeply equal params address the same one.
//
// # Function values
//
// Function and channel arguments serialize by pointer. Such keys are stable
// only within one process and should not be used with RedisCache.
//
// # Managers
//
//	m, err := cache.NewMemoryManager(cache.DefaultConfig(), "books", "authors")
//	books, err := m.Cache("books")
//
// With names the manager is static and unknown names fail with
// ErrCacheNotFound. Without names caches are created on first use.
package cache
