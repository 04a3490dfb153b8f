package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultScanCount = 500

// RedisStore is a byte store scoped to a key prefix on a redis server.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// NewRedisStore returns a store that namespaces every key with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, &ConfigError{Field: "client", Message: "cannot be nil"}
	}
	if prefix == "" {
		return nil, &ConfigError{Field: "prefix", Message: "cannot be empty"}
	}
	return &RedisStore{client: client, prefix: prefix, scanCount: defaultScanCount}, nil
}

// Prefix returns the namespace applied to every key.
func (s *RedisStore) Prefix() string {
	return s.prefix
}

// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return data, true, nil
}

// Set stores value with ttl. A zero ttl keeps the entry until it is deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

// Delete removes a single key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	return nil
}

// Clear deletes every key under the prefix using SCAN.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, escapeGlob(s.prefix)+"*", s.scanCount).Iterator()

	batch := make([]string, 0, s.scanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= s.scanCount {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "redis clear")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "redis scan")
	}

	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return errors.Wrap(err, "redis clear")
		}
	}
	return nil
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
