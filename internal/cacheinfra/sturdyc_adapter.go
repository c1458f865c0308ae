package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc shared tier.
type Config struct {
	// Capacity defines the maximum number of entries that the tier can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL bounds how long a row loaded by one session may be served to others.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when a shard reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the tier checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
//
// Early refreshes are never enabled: rows are loaded through a session's
// transaction, which is gone by the time a background refresh would run.
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

	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
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

// SturdycTier stores clean rows in a sturdyc client shared by every session
// of a table. sturdyc shards and locks internally, so the tier is safe for
// concurrent readers and writers.
type SturdycTier[V any] struct {
	client *sturdyc.Client[V]
}

// NewSturdycTier validates cfg and initializes a sturdyc client with it.
func NewSturdycTier[V any](cfg Config) (*SturdycTier[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[V](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycTier[V]{client: client}, nil
}

// Get returns the entry stored under key if it has not expired.
func (t *SturdycTier[V]) Get(key string) (V, bool) {
	return t.client.Get(key)
}

// Add stores v under key and reports whether sturdyc evicted entries to make room.
func (t *SturdycTier[V]) Add(key string, v V) bool {
	return t.client.Set(key, v)
}

// Remove deletes a single entry so the next read reloads it.
func (t *SturdycTier[V]) Remove(key string) {
	t.client.Delete(key)
}

// Len returns the number of entries across all shards.
func (t *SturdycTier[V]) Len() int {
	return t.client.Size()
}

// Purge removes every entry.
func (t *SturdycTier[V]) Purge() {
	for _, key := range t.client.ScanKeys() {
		t.client.Delete(key)
	}
}
