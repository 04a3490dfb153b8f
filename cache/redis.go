package cache

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-cache-intercept/internal/cacheinfra"
)

// maxRedisKeyLen is the serialized key length above which keys are hashed.
const maxRedisKeyLen = 200

// Codec encodes cache values for byte oriented backends.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// envelope keeps zero values apart from the stored absence.
type envelope struct {
	Null  bool `msgpack:"n,omitempty"`
	Value any  `msgpack:"v"`
}

type msgpackCodec struct{}

// NewMsgpackCodec returns the default Codec. Decoded values come back as
// generic msgpack types: int64, uint64, float64, string, []any and
// map[string]any.
func NewMsgpackCodec() Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	env := envelope{Value: v}
	if v == nil || IsNull(v) {
		env = envelope{Null: true}
	}
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack encode")
	}
	return data, nil
}

func (msgpackCodec) Unmarshal(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, errors.Wrap(err, "msgpack decode")
	}
	if env.Null {
		return NullValue, nil
	}
	return env.Value, nil
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisTTL sets the entry expiry. Zero keeps entries until evicted.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		c.ttl = ttl
	}
}

// WithRedisCodec replaces the msgpack codec.
func WithRedisCodec(codec Codec) RedisOption {
	return func(c *RedisCache) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithRedisKeySerializer replaces the default key serializer.
func WithRedisKeySerializer(serializer KeySerializer) RedisOption {
	return func(c *RedisCache) {
		if serializer != nil {
			c.serializer = serializer
		}
	}
}

// WithRedisPrefix sets the namespace put in front of every key of the cache.
// It defaults to RedisPrefix(name). Two caches whose prefixes start with one
// another share entries on Clear.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// RedisCache is a named cache stored on a redis server. Every cache owns a
// key prefix so Clear only touches its own entries.
type RedisCache struct {
	name       string
	prefix     string
	ttl        time.Duration
	codec      Codec
	serializer KeySerializer
	store      *cacheinfra.RedisStore
}

// NewRedisCache creates a named cache on client.
func NewRedisCache(name string, client redis.UniversalClient, opts ...RedisOption) (*RedisCache, error) {
	c := &RedisCache{
		name:       name,
		prefix:     RedisPrefix(name),
		codec:      NewMsgpackCodec(),
		serializer: NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(c)
	}

	store, err := cacheinfra.NewRedisStore(client, c.prefix)
	if err != nil {
		return nil, err
	}
	c.store = store
	return c, nil
}

// RedisPrefix returns the default key namespace of the cache name. The name is
// length-tagged so no cache prefix is the start of another one: "books" and
// "books:archive" map to "cache:5:books:" and "cache:13:books:archive:".
func RedisPrefix(name string) string {
	return "cache:" + strconv.Itoa(len(name)) + ":" + name + ":"
}

// Name returns the cache name.
func (c *RedisCache) Name() string {
	return c.name
}

func (c *RedisCache) storeKey(key any) string {
	serialized := c.serializer.SerializeKey(key)
	if len(serialized) > maxRedisKeyLen {
		return "h:" + KeyHash(serialized)
	}
	return serialized
}

// Get fetches and decodes the entry for key.
func (c *RedisCache) Get(ctx context.Context, key any) (any, bool, error) {
	data, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := c.codec.Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put encodes and stores value under key.
func (c *RedisCache) Put(ctx context.Context, key any, value any) error {
	data, err := c.codec.Marshal(ToStoreValue(value))
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.storeKey(key), data, c.ttl)
}

// Evict deletes key.
func (c *RedisCache) Evict(ctx context.Context, key any) error {
	return c.store.Delete(ctx, c.storeKey(key))
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

var _ Cache = (*RedisCache)(nil)
