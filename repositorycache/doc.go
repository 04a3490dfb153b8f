// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a repository.Repository[T] and routes its calls through
// an interceptor. Nothing in the decorator reads or writes a cache directly:
// New registers one declaration per method on the interceptor's registry, and
// every call becomes an invocation of the call site "<namespace>.<Method>".
//
// # Basic Usage
//
//	registry := interceptor.NewRegistry()
//	caches, _ := cache.NewMemoryManager(cache.DefaultConfig())
//	icpt := interceptor.New(registry, caches)
//
//	users, err := repositorycache.New[User](base, registry, icpt)
//	if err != nil {
//		return err
//	}
//
//	user, err := users.GetByID(ctx, "user-123")
//
// # Declarations
//
// The namespace is the snake_case name of T ("user" for User, "user_profile"
// for *UserProfile) unless WithNamespace overrides it.
//
//   - Get, GetByID, GetByIdentifier, List and Count are cacheable on the caches
//     "<namespace>.get", ".get_by_id", ".get_by_identifier", ".list" and
//     ".count". GetByID is keyed by the id, GetByIdentifier by the identifier,
//     the others by the generated key.
//   - Reads are only cached when called without criteria. Criteria are query
//     builder functions and cannot be compared.
//   - Create, CreateMany and GetOrCreate (and their Tx variants) clear the list
//     and count caches after the base repository succeeds.
//   - Update, Upsert, Delete, DeleteMany, DeleteWhere and ForceDelete (and their
//     Tx variants) clear every read cache after the base repository succeeds.
//   - Tx reads and Raw queries go straight to the base repository.
//
// Use CacheNames to pre-create the caches when the manager is static.
//
// # Errors
//
// Errors from the base repository are returned unchanged and suppress
// invalidation. A failing cache backend surfaces as an
// *interceptor.CacheStoreError.
//
// # Compatibility
//
// The CachedRepository[T] fully implements the repository.Repository[T] interface
// from go-repository-bun, making it a drop-in replacement for existing repository
// usage.
package repositorycache
