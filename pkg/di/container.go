package di

import (
	"github.com/goliatone/go-cache-intercept/cache"
	"github.com/goliatone/go-cache-intercept/interceptor"
	"github.com/goliatone/go-cache-intercept/metrics"
	"github.com/goliatone/go-cache-intercept/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option customizes a Container.
type Option func(*Container)

// WithLogger uses logger instead of building one from the config.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink handed to the interceptor.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPrometheus registers the interceptor collectors on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

// WithRedisClient uses client for the redis manager. The container does not
// close a client it did not create.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithManager bypasses the configured backends.
func WithManager(m cache.Manager) Option {
	return func(c *Container) {
		c.caches = m
	}
}

// Container wires the cache manager, the declaration registry and the
// interceptor, and hands out cached repositories.
type Container struct {
	config     Config
	logger     *zap.Logger
	metrics    metrics.Metrics
	registerer prometheus.Registerer
	caches     cache.Manager
	registry   *interceptor.Registry
	icpt       *interceptor.Interceptor

	redis     redis.UniversalClient
	ownsRedis bool
}

// NewContainer validates config, builds the manager it selects and registers
// its site declarations.
func NewContainer(config Config, opts ...Option) (*Container, error) {
	c := &Container{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.caches == nil {
		if err := config.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid container config")
		}
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
		if config.Logger != nil {
			logger, err := config.Logger.build()
			if err != nil {
				return nil, errors.Wrap(err, "build logger")
			}
			c.logger = logger
		}
	}

	if c.metrics == nil {
		c.metrics = metrics.Nop()
		if c.registerer != nil {
			c.metrics = metrics.NewPrometheus(c.registerer)
		}
	}

	if c.caches == nil {
		caches, err := c.buildManager()
		if err != nil {
			return nil, err
		}
		c.caches = caches
	}

	c.registry = interceptor.NewRegistry()
	if err := c.registry.RegisterDocument(config.Document()); err != nil {
		c.Close()
		return nil, err
	}

	c.icpt = interceptor.New(c.registry, c.caches,
		interceptor.WithLogger(c.logger),
		interceptor.WithMetrics(c.metrics),
	)

	c.logger.Debug("cache container ready",
		zap.Strings("caches", c.caches.Names()),
		zap.Int("sites", len(c.registry.Sites())),
		zap.Bool("redis", c.redis != nil),
	)

	return c, nil
}

// NewContainerWithDefaults creates a container with in-memory dynamic caches.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(DefaultConfig(), opts...)
}

func (c *Container) buildManager() (cache.Manager, error) {
	var managerOpts []cache.ManagerOption
	if len(c.config.Caches) > 0 {
		managerOpts = append(managerOpts, cache.WithStaticNames(c.config.Caches...))
	}

	if c.config.Redis == nil && c.redis == nil {
		return cache.NewMemoryManager(c.config.Cache, c.config.Caches...)
	}

	var cacheOpts []cache.RedisOption
	if rc := c.config.Redis; rc != nil {
		if rc.TTL > 0 {
			cacheOpts = append(cacheOpts, cache.WithRedisTTL(rc.TTL))
		}
		if c.redis == nil {
			c.redis = redis.NewClient(&redis.Options{
				Addr:     rc.Addr,
				Username: rc.Username,
				Password: rc.Password,
				DB:       rc.DB,
			})
			c.ownsRedis = true
		}
	}

	return cache.NewRedisManager(c.redis, cacheOpts, managerOpts...), nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() Config {
	return c.config
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the metrics sink used by the interceptor.
func (c *Container) Metrics() metrics.Metrics {
	return c.metrics
}

// Caches returns the cache manager.
func (c *Container) Caches() cache.Manager {
	return c.caches
}

// Registry returns the declaration registry.
func (c *Container) Registry() *interceptor.Registry {
	return c.registry
}

// Interceptor returns the interceptor bound to Registry and Caches.
func (c *Container) Interceptor() *interceptor.Interceptor {
	return c.icpt
}

// Close flushes the logger and closes the redis client the container created.
func (c *Container) Close() error {
	var errs error
	if c.ownsRedis && c.redis != nil {
		errs = multierr.Append(errs, c.redis.Close())
		c.redis = nil
	}
	if c.logger != nil {
		// syncing stderr/stdout fails on some platforms
		_ = c.logger.Sync()
	}
	return errs
}

// NewCachedRepository wraps base with the container's interceptor. Every read
// cache of the repository must be resolvable by the manager.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](c *Container, base repository.Repository[T], opts ...repositorycache.Option) (*repositorycache.CachedRepository[T], error) {
	cached, err := repositorycache.New(base, c.registry, c.icpt, opts...)
	if err != nil {
		return nil, err
	}

	for _, name := range repositorycache.CacheNames(cached.Namespace()) {
		if _, err := c.caches.Cache(name); err != nil {
			return nil, errors.Wrapf(err, "repository %s", cached.Namespace())
		}
	}

	c.logger.Debug("cached repository registered", zap.String("namespace", cached.Namespace()))
	return cached, nil
}
