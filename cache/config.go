package cache

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-table-cache/internal/cacheinfra"
)

// Type selects the cache variant a table runs with.
type Type string

const (
	TypeNone      Type = "none"
	TypeReadOnly  Type = "read_only"
	TypeReadWrite Type = "read_write"
)

// RollbackPolicy decides what a read-write cache keeps when a transaction rolls back.
type RollbackPolicy string

const (
	// RollbackDiscardAll drops every entry, clean ones included. Clean entries
	// loaded inside the rolled back transaction may reflect state that no
	// longer exists under weaker isolation levels.
	RollbackDiscardAll RollbackPolicy = "discard_all"
	// RollbackDiscardStaged drops staged entries and keeps clean reads.
	RollbackDiscardStaged RollbackPolicy = "discard_staged"
)

// FlushPolicy decides what happens to staged rows after a successful flush.
type FlushPolicy string

const (
	// FlushRetain keeps flushed inserts and updates as clean entries.
	FlushRetain FlushPolicy = "retain"
	// FlushDrop removes flushed rows so the next select reloads them.
	FlushDrop FlushPolicy = "drop"
)

// Config is the per-table cache configuration.
type Config struct {
	Type     Type           `yaml:"type" json:"type"`
	MaxSize  int            `yaml:"size" json:"size"`
	Rollback RollbackPolicy `yaml:"rollback" json:"rollback"`
	Flush    FlushPolicy    `yaml:"flush" json:"flush"`
	// Shared makes a read_only table use the process-wide tier instead of a
	// per-session LRU.
	Shared bool `yaml:"shared" json:"shared"`
}

// DefaultConfig returns a read-write configuration with conservative policies.
func DefaultConfig() Config {
	return Config{
		Type:     TypeReadWrite,
		MaxSize:  1000,
		Rollback: RollbackDiscardAll,
		Flush:    FlushRetain,
	}
}

// IsZero reports whether no field was set.
func (c Config) IsZero() bool {
	return c == Config{}
}

// WithDefaults fills unset policies.
func (c Config) WithDefaults() Config {
	if c.Rollback == "" {
		c.Rollback = RollbackDiscardAll
	}
	if c.Flush == "" {
		c.Flush = FlushRetain
	}
	return c
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(TypeNone, TypeReadOnly, TypeReadWrite)),
		validation.Field(&c.MaxSize, validation.When(c.Type != TypeNone, validation.Required, validation.Min(1))),
		validation.Field(&c.Rollback, validation.In(RollbackDiscardAll, RollbackDiscardStaged)),
		validation.Field(&c.Flush, validation.In(FlushRetain, FlushDrop)),
	)
	if err != nil {
		return toConfigError(err)
	}

	if c.Shared && c.Type != TypeReadOnly {
		return &ConfigError{Field: "shared", Message: "only read_only caches can be shared"}
	}

	return nil
}

// toConfigError picks the first failing field in name order so the result is stable.
func toConfigError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigError{Field: "Config", Message: err.Error()}
	}

	names := make([]string, 0, len(fieldErrs))
	for name := range fieldErrs {
		names = append(names, name)
	}
	sort.Strings(names)

	return &ConfigError{Field: names[0], Message: fieldErrs[names[0]].Error()}
}

// SharedConfig exposes the shared tier options for consumers of the cache package.
type SharedConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultSharedConfig returns a SharedConfig populated with sensible defaults.
func DefaultSharedConfig() SharedConfig {
	cfg := cacheinfra.DefaultConfig()
	return SharedConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

// Validate checks whether the shared tier values are valid.
func (c SharedConfig) Validate() error {
	return c.toInternal().Validate()
}

func (c SharedConfig) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

// ConfigFile is the YAML layout for per-table cache settings:
//
//	default:
//	  type: read_write
//	  size: 500
//	tables:
//	  users:
//	    type: read_only
//	    size: 100
//	    shared: true
type ConfigFile struct {
	Default Config            `yaml:"default"`
	Tables  map[string]Config `yaml:"tables"`
}

// ParseConfigFile decodes and validates a YAML config file. Tables inherit
// unset policies from the default block, and the default block falls back to
// DefaultConfig when omitted.
func ParseConfigFile(data []byte) (ConfigFile, error) {
	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ConfigFile{}, err
	}

	if file.Default.IsZero() {
		file.Default = DefaultConfig()
	}
	file.Default = file.Default.WithDefaults()
	if err := file.Default.Validate(); err != nil {
		return ConfigFile{}, err
	}

	for name, cfg := range file.Tables {
		if cfg.Rollback == "" {
			cfg.Rollback = file.Default.Rollback
		}
		if cfg.Flush == "" {
			cfg.Flush = file.Default.Flush
		}
		if err := cfg.Validate(); err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				cfgErr.Field = name + "." + cfgErr.Field
			}
			return ConfigFile{}, err
		}
		file.Tables[name] = cfg
	}

	return file, nil
}

// For returns the configuration for table, or the default block.
func (f ConfigFile) For(table string) Config {
	if cfg, ok := f.Tables[table]; ok {
		return cfg
	}
	return f.Default
}
