package repositorycache

import (
	"context"
	"reflect"

	"github.com/goliatone/go-cache-intercept/interceptor"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Read cache suffixes, appended to the entity namespace.
const (
	CacheGet             = "get"
	CacheGetByID         = "get_by_id"
	CacheGetByIdentifier = "get_by_identifier"
	CacheList            = "list"
	CacheCount           = "count"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `msgpack:"records"`
	Total   int `msgpack:"total"`
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	namespace string
	sync      bool
}

// WithNamespace overrides the namespace derived from the entity type name.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = snakeCase(ns)
	}
}

// WithSync coalesces concurrent misses for the same read into one query.
func WithSync() Option {
	return func(o *options) {
		o.sync = true
	}
}

// CachedRepository decorates a base repository with declarative caching.
// Reads without criteria are cached per method, writes evict the read caches
// once the base repository succeeds.
type CachedRepository[T any] struct {
	base      repository.Repository[T]
	icpt      *interceptor.Interceptor
	namespace string
}

// New registers the read and write declarations for T on registry and returns
// a repository that routes its calls through icpt. icpt must have been built
// on the same registry.
func New[T any](base repository.Repository[T], registry *interceptor.Registry, icpt *interceptor.Interceptor, opts ...Option) (*CachedRepository[T], error) {
	o := options{namespace: Namespace[T]()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := registry.RegisterAll(declarations(o.namespace, o.sync)); err != nil {
		return nil, err
	}

	return &CachedRepository[T]{
		base:      base,
		icpt:      icpt,
		namespace: o.namespace,
	}, nil
}

// Namespace returns the snake_case entity name used to prefix cache names and
// call sites for T.
func Namespace[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return snakeCase(name)
}

// CacheNames lists the read caches declared for namespace. Static managers
// must be able to resolve all of them.
func CacheNames(namespace string) []string {
	return []string{
		namespace + "." + CacheGet,
		namespace + "." + CacheGetByID,
		namespace + "." + CacheGetByIdentifier,
		namespace + "." + CacheList,
		namespace + "." + CacheCount,
	}
}

// Namespace returns the namespace this repository declares its caches under.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodGet), c, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	}, criteria)
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodGetByID), c, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	}, id, criteria)
}

// List retrieves multiple records using the provided criteria, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	res, err := interceptor.Call(ctx, c.icpt, c.method(methodList), c, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	}, criteria)
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodCount), c, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	}, criteria)
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodGetByIdentifier), c, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}, identifier, criteria)
}

// Create creates a new record
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodCreate), c, func(ctx context.Context) (T, error) {
		return c.base.Create(ctx, record, criteria...)
	}, record, criteria)
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodCreateTx), c, func(ctx context.Context) (T, error) {
		return c.base.CreateTx(ctx, tx, record, criteria...)
	}, tx, record, criteria)
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodCreateMany), c, func(ctx context.Context) ([]T, error) {
		return c.base.CreateMany(ctx, records, criteria...)
	}, records, criteria)
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodCreateManyTx), c, func(ctx context.Context) ([]T, error) {
		return c.base.CreateManyTx(ctx, tx, records, criteria...)
	}, tx, records, criteria)
}

// GetOrCreate gets a record or creates it if it doesn't exist
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodGetOrCreate), c, func(ctx context.Context) (T, error) {
		return c.base.GetOrCreate(ctx, record)
	}, record)
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodGetOrCreateTx), c, func(ctx context.Context) (T, error) {
		return c.base.GetOrCreateTx(ctx, tx, record)
	}, tx, record)
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpdate), c, func(ctx context.Context) (T, error) {
		return c.base.Update(ctx, record, criteria...)
	}, record, criteria)
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpdateTx), c, func(ctx context.Context) (T, error) {
		return c.base.UpdateTx(ctx, tx, record, criteria...)
	}, tx, record, criteria)
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpdateMany), c, func(ctx context.Context) ([]T, error) {
		return c.base.UpdateMany(ctx, records, criteria...)
	}, records, criteria)
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpdateManyTx), c, func(ctx context.Context) ([]T, error) {
		return c.base.UpdateManyTx(ctx, tx, records, criteria...)
	}, tx, records, criteria)
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpsert), c, func(ctx context.Context) (T, error) {
		return c.base.Upsert(ctx, record, criteria...)
	}, record, criteria)
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpsertTx), c, func(ctx context.Context) (T, error) {
		return c.base.UpsertTx(ctx, tx, record, criteria...)
	}, tx, record, criteria)
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpsertMany), c, func(ctx context.Context) ([]T, error) {
		return c.base.UpsertMany(ctx, records, criteria...)
	}, records, criteria)
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return interceptor.Call(ctx, c.icpt, c.method(methodUpsertManyTx), c, func(ctx context.Context) ([]T, error) {
		return c.base.UpsertManyTx(ctx, tx, records, criteria...)
	}, tx, records, criteria)
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	return c.exec(ctx, c.method(methodDelete), func(ctx context.Context) error {
		return c.base.Delete(ctx, record)
	}, record)
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.exec(ctx, c.method(methodDeleteTx), func(ctx context.Context) error {
		return c.base.DeleteTx(ctx, tx, record)
	}, tx, record)
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.exec(ctx, c.method(methodDeleteMany), func(ctx context.Context) error {
		return c.base.DeleteMany(ctx, criteria...)
	}, criteria)
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.exec(ctx, c.method(methodDeleteManyTx), func(ctx context.Context) error {
		return c.base.DeleteManyTx(ctx, tx, criteria...)
	}, tx, criteria)
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.exec(ctx, c.method(methodDeleteWhere), func(ctx context.Context) error {
		return c.base.DeleteWhere(ctx, criteria...)
	}, criteria)
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.exec(ctx, c.method(methodDeleteWhereTx), func(ctx context.Context) error {
		return c.base.DeleteWhereTx(ctx, tx, criteria...)
	}, tx, criteria)
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return c.exec(ctx, c.method(methodForceDelete), func(ctx context.Context) error {
		return c.base.ForceDelete(ctx, record)
	}, record)
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.exec(ctx, c.method(methodForceDeleteTx), func(ctx context.Context) error {
		return c.base.ForceDeleteTx(ctx, tx, record)
	}, tx, record)
}

// GetTx retrieves a single record within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records within a transaction, bypassing the cache
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx counts records within a transaction, bypassing the cache
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query, bypassing the cache
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

// RawTx executes a raw SQL query within a transaction, bypassing the cache
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

func (c *CachedRepository[T]) method(sig signature) interceptor.Method {
	return interceptor.NewMethod(c.namespace, sig.name, sig.params...)
}

// exec runs a write that only returns an error.
func (c *CachedRepository[T]) exec(ctx context.Context, m interceptor.Method, fn func(ctx context.Context) error, args ...any) error {
	_, err := c.icpt.Invoke(ctx, interceptor.Invocation{
		Method: m,
		Target: c,
		Args:   args,
		Proceed: func(ctx context.Context) (any, error) {
			return nil, fn(ctx)
		},
	})
	return err
}
