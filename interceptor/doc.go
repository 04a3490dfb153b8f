// Package interceptor decides, for each intercepted call, whether to serve
// from cache, invoke the target, store the result or evict entries.
//
// # Declarations
//
// Operations are declared per call site, identified by "Owner.method":
//
//	registry := interceptor.NewRegistry()
//	registry.MustRegister("Books.find",
//		interceptor.Cacheable("books").WithKey("#isbn").WithUnless("#result == null"))
//	registry.MustRegister("Books.save", interceptor.Caching(
//		interceptor.Put("books").WithKey("#result.ISBN"),
//		interceptor.Evict("listings").WithAllEntries(),
//	))
//
// Expressions are parsed once at registration. Expressions that run before
// the target (cacheable key and condition, before-invocation evict key and
// condition) may not read #result.
//
// The same declarations can be loaded from YAML with LoadYAML.
//
// # Invocation
//
// Invoke applies, in order: before-invocation evictions, the cacheable scan
// (the first hit in declaration order short-circuits), at most one call to
// the target, cacheable stores filtered by unless, puts, and after-invocation
// evictions. A failed target returns its error unchanged and skips every
// write and every after-invocation eviction.
//
// A nil result is stored as cache.NullValue and served back as nil, so a
// cached absence is a hit.
//
// A hit returns the cached value directly: the target is not invoked and no
// put or after-invocation eviction runs, even when the site declares them.
//
// Call is the typed wrapper:
//
//	func (r *Books) Find(ctx context.Context, isbn string) (*Book, error) {
//		return interceptor.Call(ctx, r.icpt, findMethod, r, func(ctx context.Context) (*Book, error) {
//			return r.db.Find(ctx, isbn)
//		}, isbn)
//	}
//
// # Synchronized lookups
//
// WithSync coalesces concurrent misses for one key into a single invocation.
// Caches implementing cache.Loader deduplicate in the store; others go
// through a singleflight group owned by the Interceptor.
package interceptor
