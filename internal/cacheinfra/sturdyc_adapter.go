package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for a sturdyc backed named cache.
// Every named cache gets its own sturdyc client built from the same Config.
type Config struct {
	// Capacity defines the maximum number of entries a single named cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards per client.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL is the time-to-live for stored entries.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the client checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the Config to sturdyc options.
// Capacity, NumShards, TTL, and EvictionPercentage are constructor arguments
// and are not included.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycStore is a string keyed value store backed by one sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[any]
}

// NewSturdycStore validates cfg and builds the sturdyc client.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client}, nil
}

// Get returns the stored value and whether the key was present.
func (s *SturdycStore) Get(key string) (any, bool) {
	return s.client.Get(key)
}

// Set stores value under key.
func (s *SturdycStore) Set(key string, value any) {
	s.client.Set(key, value)
}

// Delete removes a single key.
func (s *SturdycStore) Delete(key string) {
	s.client.Delete(key)
}

// Clear removes every key held by the client.
func (s *SturdycStore) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// Size returns the number of stored entries.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}

// GetOrFetch returns the stored value or calls fetchFn once for concurrent
// callers of the same key and stores its result. Errors are not stored.
func (s *SturdycStore) GetOrFetch(ctx context.Context, key string, fetchFn func(ctx context.Context) (any, error)) (any, error) {
	return s.client.GetOrFetch(ctx, key, fetchFn)
}
