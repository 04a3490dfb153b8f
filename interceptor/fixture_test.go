package interceptor

import (
	"context"

	"github.com/pkg/errors"

	"github.com/goliatone/go-cache-intercept/pkg/testsupport"
)

const fixtureOwner = "CountingService"

var errFixture = errors.New("fixture failure")

// countingService is the test double for intercepted calls: every guarded
// call bumps a counter so tests can tell cached results from fresh ones.
type countingService struct {
	icpt    *Interceptor
	counter testsupport.Counter
	nulls   testsupport.Counter
}

func (s *countingService) String() string { return "countingService" }

func (s *countingService) call(ctx context.Context, name string, params []string, args []any, fn func() (any, error)) (any, error) {
	return s.icpt.Invoke(ctx, Invocation{
		Method:  NewMethod(fixtureOwner, name, params...),
		Target:  s,
		Args:    args,
		Proceed: func(context.Context) (any, error) { return fn() },
	})
}

func (s *countingService) next() (any, error) {
	return s.counter.Inc(), nil
}

func (s *countingService) fail() (any, error) {
	return nil, errFixture
}

func (s *countingService) one(ctx context.Context, name string, arg any, fn func() (any, error)) (any, error) {
	return s.call(ctx, name, []string{"arg1"}, []any{arg}, fn)
}

func (s *countingService) two(ctx context.Context, name string, arg1, arg2 any, fn func() (any, error)) (any, error) {
	return s.call(ctx, name, []string{"arg1", "arg2"}, []any{arg1, arg2}, fn)
}

func (s *countingService) Cache(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "cache", arg, s.next)
}

func (s *countingService) Invalidate(ctx context.Context, arg any) error {
	_, err := s.one(ctx, "invalidate", arg, func() (any, error) { return nil, nil })
	return err
}

func (s *countingService) EvictWithException(ctx context.Context, arg any) error {
	_, err := s.one(ctx, "evictWithException", arg, s.fail)
	return err
}

func (s *countingService) EvictAll(ctx context.Context, arg any) error {
	_, err := s.one(ctx, "evictAll", arg, func() (any, error) { return nil, nil })
	return err
}

func (s *countingService) EvictEarly(ctx context.Context, arg any) error {
	_, err := s.one(ctx, "evictEarly", arg, s.fail)
	return err
}

func (s *countingService) Evict(ctx context.Context, arg1, arg2 any) error {
	_, err := s.two(ctx, "evict", arg1, arg2, func() (any, error) { return nil, nil })
	return err
}

func (s *countingService) InvalidateEarly(ctx context.Context, arg1, arg2 any) error {
	_, err := s.two(ctx, "invalidateEarly", arg1, arg2, s.fail)
	return err
}

func (s *countingService) Conditional(ctx context.Context, classField int) (any, error) {
	return s.call(ctx, "conditional", []string{"classField"}, []any{classField}, s.next)
}

func (s *countingService) Unless(ctx context.Context, arg int) (any, error) {
	return s.call(ctx, "unless", []string{"arg"}, []any{arg}, func() (any, error) {
		s.counter.Inc()
		return arg, nil
	})
}

func (s *countingService) Key(ctx context.Context, arg1, arg2 any) (any, error) {
	return s.two(ctx, "key", arg1, arg2, s.next)
}

func (s *countingService) Name(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "name", arg, s.next)
}

func (s *countingService) RootVars(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "rootVars", arg, s.next)
}

func (s *countingService) Update(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "update", arg, s.next)
}

func (s *countingService) ConditionalUpdate(ctx context.Context, arg any) (any, error) {
	return s.call(ctx, "conditionalUpdate", []string{"arg"}, []any{arg}, s.next)
}

func (s *countingService) NullValue(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "nullValue", arg, func() (any, error) {
		s.nulls.Inc()
		return nil, nil
	})
}

func (s *countingService) Throwing(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "throwing", arg, func() (any, error) {
		s.counter.Inc()
		return nil, errFixture
	})
}

func (s *countingService) Panicking(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "throwing", arg, func() (any, error) {
		panic("unchecked failure")
	})
}

func (s *countingService) MultiCache(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "multiCache", arg, s.next)
}

func (s *countingService) MultiEvict(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "multiEvict", arg, s.next)
}

func (s *countingService) MultiCacheAndEvict(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "multiCacheAndEvict", arg, s.next)
}

func (s *countingService) MultiConditionalCacheAndEvict(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "multiConditionalCacheAndEvict", arg, s.next)
}

func (s *countingService) MultiUpdate(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "multiUpdate", arg, s.next)
}

func (s *countingService) CacheAndPut(ctx context.Context, arg any) (any, error) {
	return s.one(ctx, "cacheAndPut", arg, s.next)
}

func site(name string) string {
	return fixtureOwner + "." + name
}

// registerFixture declares the call sites of countingService.
func registerFixture(r *Registry) {
	r.MustRegister(site("cache"), Cacheable("default"))
	r.MustRegister(site("invalidate"), Evict("default"))
	r.MustRegister(site("evictWithException"), Evict("default"))
	r.MustRegister(site("evictAll"), Evict("default").WithAllEntries())
	r.MustRegister(site("evictEarly"), Evict("default").WithBeforeInvocation())
	r.MustRegister(site("evict"), Evict("default").WithKey("#p0"))
	r.MustRegister(site("invalidateEarly"), Evict("default").WithKey("#p0").WithBeforeInvocation())
	r.MustRegister(site("conditional"), Cacheable("default").WithCondition("#classField == 3"))
	r.MustRegister(site("unless"), Cacheable("default").WithUnless("#result > 10"))
	r.MustRegister(site("key"), Cacheable("default").WithKey("#p0"))
	r.MustRegister(site("name"), Cacheable("default").WithKey("#root.methodName"))
	r.MustRegister(site("rootVars"), Cacheable("default").WithKey("#root.methodName + #root.method.name + #root.targetClass + #root.target"))
	r.MustRegister(site("update"), Put("default"))
	r.MustRegister(site("conditionalUpdate"), Put("default").WithCondition("#arg.equals(3)"))
	r.MustRegister(site("nullValue"), Cacheable("default"))
	r.MustRegister(site("throwing"), Cacheable("default"))
	r.MustRegister(site("multiCache"), Caching(Cacheable("primary"), Cacheable("secondary")))
	r.MustRegister(site("multiEvict"), Caching(
		Evict("primary"),
		Evict("secondary").WithKey("#p0"),
		Evict("primary").WithKey("#p0 + 'A'"),
	))
	r.MustRegister(site("multiCacheAndEvict"), Caching(
		Cacheable("primary").WithKey("#root.methodName"),
		Evict("secondary"),
	))
	r.MustRegister(site("multiConditionalCacheAndEvict"), Caching(
		Cacheable("primary").WithCondition("#p0 == 3"),
		Evict("secondary"),
	))
	r.MustRegister(site("multiUpdate"), Caching(Put("primary"), Put("secondary")))
	r.MustRegister(site("cacheAndPut"), Caching(Cacheable("default"), Put("default")))
}
