package interceptor

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-cache-intercept/cache"
	"github.com/goliatone/go-cache-intercept/expression"
	"github.com/goliatone/go-cache-intercept/metrics"
)

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger. Decisions are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(i *Interceptor) {
		if m != nil {
			i.metrics = m
		}
	}
}

// WithKeyGenerator replaces the generator used when an operation has no key
// expression.
func WithKeyGenerator(g cache.KeyGenerator) Option {
	return func(i *Interceptor) {
		if g != nil {
			i.keys = g
		}
	}
}

// WithKeySerializer sets the serializer that names in-flight loads of
// synchronized operations.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(i *Interceptor) {
		if s != nil {
			i.serializer = s
		}
	}
}

// Interceptor applies the declared cache operations around a call. It keeps
// no per-call state and is safe for concurrent use.
type Interceptor struct {
	source     OperationSource
	caches     cache.Manager
	keys       cache.KeyGenerator
	serializer cache.KeySerializer
	logger     *zap.Logger
	metrics    metrics.Metrics
	flights    singleflight.Group
}

// New returns an Interceptor reading declarations from source and resolving
// caches through caches.
func New(source OperationSource, caches cache.Manager, opts ...Option) *Interceptor {
	i := &Interceptor{
		source:     source,
		caches:     caches,
		keys:       cache.NewSimpleKeyGenerator(),
		serializer: cache.NewDefaultKeySerializer(),
		logger:     zap.NewNop(),
		metrics:    metrics.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type cacheableRequest struct {
	op  *CompiledOperation
	key any
}

// Invoke runs inv through the operations declared for its call site:
// before-invocation evictions, the cacheable lookup, at most one call to
// Proceed, stores, puts and after-invocation evictions. A cache hit returns
// the cached value without calling Proceed. Errors from Proceed are returned
// unchanged; no cache is written after a failed call.
func (i *Interceptor) Invoke(ctx context.Context, inv Invocation) (any, error) {
	if inv.Proceed == nil {
		return nil, ErrNoProceed
	}

	site := inv.Method.ID()
	ops := i.source.Operations(site)
	if len(ops) == 0 {
		return i.proceed(ctx, site, inv)
	}

	ectx := newContext(inv, ops)
	if len(ops) == 1 && ops[0].Sync {
		return i.invokeSync(ctx, site, inv, ops[0], ectx)
	}

	if err := i.evictAll(ctx, site, inv, ops, ectx, true); err != nil {
		return nil, err
	}

	var requests []cacheableRequest
	for _, op := range ops {
		if op.Kind != KindCacheable {
			continue
		}
		ok, err := passes(op.condition, ectx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key, err := i.resolveKey(op, inv, ectx)
		if err != nil {
			return nil, err
		}
		requests = append(requests, cacheableRequest{op: op, key: key})

		cached, hit, err := i.lookup(ctx, site, op, key)
		if err != nil {
			return nil, err
		}
		if hit {
			// a hit skips the invocation, the puts and the after-invocation evictions
			return cached, nil
		}
	}

	result, err := i.proceed(ctx, site, inv)
	if err != nil {
		return result, err
	}
	rctx := ectx.WithResult(result)

	if err := i.storeCacheables(ctx, requests, result, rctx); err != nil {
		return nil, err
	}
	if err := i.applyPuts(ctx, inv, ops, result, rctx); err != nil {
		return nil, err
	}
	if err := i.evictAll(ctx, site, inv, ops, rctx, false); err != nil {
		return nil, err
	}

	return result, nil
}

func newContext(inv Invocation, ops []*CompiledOperation) expression.Context {
	var names []string
	seen := make(map[string]struct{})
	for _, op := range ops {
		for _, name := range op.CacheNames {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	var targetType reflect.Type
	if inv.Target != nil {
		targetType = reflect.TypeOf(inv.Target)
	}

	return expression.Context{
		Method: expression.Method{
			Name:      inv.Method.Name,
			Signature: inv.Method.Signature(),
		},
		Params:     inv.Method.Params,
		Args:       inv.Args,
		Target:     inv.Target,
		TargetType: targetType,
		Caches:     names,
	}
}

func passes(condition *expression.Expression, ectx expression.Context) (bool, error) {
	if condition == nil {
		return true, nil
	}
	return condition.EvalBool(ectx)
}

func (i *Interceptor) resolveKey(op *CompiledOperation, inv Invocation, ectx expression.Context) (any, error) {
	if op.key == nil {
		return i.keys.Generate(inv.Target, inv.Method.Name, inv.Args...), nil
	}
	key, err := op.key.Eval(ectx)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.Wrapf(ErrNilKey, "%s key %q", op.Kind, op.Key)
	}
	return key, nil
}

func (i *Interceptor) cache(name string) (cache.Cache, error) {
	c, err := i.caches.Cache(name)
	if err != nil {
		return nil, &CacheStoreError{Cache: name, Op: "resolve", Err: err}
	}
	return c, nil
}

// lookup checks the caches of op in order and stops at the first hit.
func (i *Interceptor) lookup(ctx context.Context, site string, op *CompiledOperation, key any) (any, bool, error) {
	for _, name := range op.CacheNames {
		c, err := i.cache(name)
		if err != nil {
			return nil, false, err
		}
		v, found, err := c.Get(ctx, key)
		if err != nil {
			return nil, false, &CacheStoreError{Cache: name, Op: "get", Err: err}
		}
		if found {
			i.metrics.Hit(site, name)
			i.logger.Debug("cache hit", zap.String("site", site), zap.String("cache", name), zap.Any("key", key))
			return cache.FromStoreValue(v), true, nil
		}
		i.metrics.Miss(site, name)
		i.logger.Debug("cache miss", zap.String("site", site), zap.String("cache", name), zap.Any("key", key))
	}
	return nil, false, nil
}

func (i *Interceptor) storeCacheables(ctx context.Context, requests []cacheableRequest, result any, rctx expression.Context) error {
	for _, req := range requests {
		if req.op.unless != nil {
			veto, err := req.op.unless.EvalBool(rctx)
			if err != nil {
				return err
			}
			if veto {
				continue
			}
		}
		if err := i.store(ctx, req.op.CacheNames, req.key, result); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interceptor) applyPuts(ctx context.Context, inv Invocation, ops []*CompiledOperation, result any, rctx expression.Context) error {
	for _, op := range ops {
		if op.Kind != KindPut {
			continue
		}
		ok, err := passes(op.condition, rctx)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key, err := i.resolveKey(op, inv, rctx)
		if err != nil {
			return err
		}
		if err := i.store(ctx, op.CacheNames, key, result); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interceptor) store(ctx context.Context, names []string, key, value any) error {
	for _, name := range names {
		c, err := i.cache(name)
		if err != nil {
			return err
		}
		if err := c.Put(ctx, key, cache.ToStoreValue(value)); err != nil {
			return &CacheStoreError{Cache: name, Op: "put", Err: err}
		}
		i.metrics.Put(name)
		i.logger.Debug("cache put", zap.String("cache", name), zap.Any("key", key))
	}
	return nil
}

// evictAll applies the evictions of one phase. Every eviction is attempted
// and the failures are combined.
func (i *Interceptor) evictAll(ctx context.Context, site string, inv Invocation, ops []*CompiledOperation, ectx expression.Context, before bool) error {
	var errs error
	for _, op := range ops {
		if op.Kind != KindEvict || op.BeforeInvocation != before {
			continue
		}
		errs = multierr.Append(errs, i.evict(ctx, site, inv, op, ectx))
	}
	return errs
}

func (i *Interceptor) evict(ctx context.Context, site string, inv Invocation, op *CompiledOperation, ectx expression.Context) error {
	ok, err := passes(op.condition, ectx)
	if err != nil || !ok {
		return err
	}

	// an explicit key wins over allEntries
	clearAll := op.AllEntries && op.key == nil

	var key any
	if !clearAll {
		if key, err = i.resolveKey(op, inv, ectx); err != nil {
			return err
		}
	}

	var errs error
	for _, name := range op.CacheNames {
		c, err := i.cache(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if clearAll {
			if err := c.Clear(ctx); err != nil {
				errs = multierr.Append(errs, &CacheStoreError{Cache: name, Op: "clear", Err: err})
				continue
			}
			i.metrics.Clear(name)
			i.logger.Debug("cache clear", zap.String("site", site), zap.String("cache", name))
			continue
		}
		if err := c.Evict(ctx, key); err != nil {
			errs = multierr.Append(errs, &CacheStoreError{Cache: name, Op: "evict", Err: err})
			continue
		}
		i.metrics.Evict(name)
		i.logger.Debug("cache evict", zap.String("site", site), zap.String("cache", name), zap.Any("key", key))
	}
	return errs
}

func (i *Interceptor) proceed(ctx context.Context, site string, inv Invocation) (any, error) {
	timer := i.metrics.InvocationDuration(site)
	defer timer.ObserveDuration()

	result, err := inv.Proceed(ctx)
	if err != nil {
		i.metrics.InvocationError(site)
		i.logger.Debug("invocation failed", zap.String("site", site), zap.Error(err))
	}
	return result, err
}

// invokeSync serves a synchronized cacheable. Concurrent misses for the same
// key share one call to Proceed.
func (i *Interceptor) invokeSync(ctx context.Context, site string, inv Invocation, op *CompiledOperation, ectx expression.Context) (any, error) {
	ok, err := passes(op.condition, ectx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return i.proceed(ctx, site, inv)
	}

	key, err := i.resolveKey(op, inv, ectx)
	if err != nil {
		return nil, err
	}

	cached, hit, err := i.lookup(ctx, site, op, key)
	if err != nil || hit {
		return cached, err
	}

	name := op.CacheNames[0]
	c, err := i.cache(name)
	if err != nil {
		return nil, err
	}

	if loader, ok := c.(cache.Loader); ok {
		v, err := loader.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
			return i.proceed(ctx, site, inv)
		})
		if err != nil {
			return nil, err
		}
		return cache.FromStoreValue(v), nil
	}

	v, err, _ := i.flights.Do(name+"\x00"+i.serializer.SerializeKey(key), func() (any, error) {
		result, err := i.proceed(ctx, site, inv)
		if err != nil {
			return nil, err
		}
		if err := i.store(ctx, op.CacheNames, key, result); err != nil {
			return nil, err
		}
		return result, nil
	})
	return v, err
}
