package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-table-cache/internal/cacheinfra"
)

// Tier stores clean entries keyed by canonical key strings.
// Implementations must bound their size and be safe for concurrent use.
type Tier[V any] interface {
	Get(key string) (V, bool)
	// Add stores v and reports whether an older entry was evicted to make room.
	Add(key string, v V) bool
	Remove(key string)
	Len() int
	Purge()
}

// lruTier evicts the least recently used entry once size is reached.
type lruTier[V any] struct {
	cache *lru.Cache[string, V]
}

// NewLRUTier returns a thread-safe least-recently-used tier holding at most size entries.
func NewLRUTier[V any](size int) (Tier[V], error) {
	if size <= 0 {
		return nil, &ConfigError{Field: "MaxSize", Message: "must be greater than 0"}
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &lruTier[V]{cache: c}, nil
}

func (t *lruTier[V]) Get(key string) (V, bool) { return t.cache.Get(key) }

func (t *lruTier[V]) Add(key string, v V) bool { return t.cache.Add(key, v) }

func (t *lruTier[V]) Remove(key string) { t.cache.Remove(key) }

func (t *lruTier[V]) Len() int { return t.cache.Len() }

func (t *lruTier[V]) Purge() { t.cache.Purge() }

// NewSharedTier builds the process-wide tier used by shared read-only tables.
// Its entries expire after cfg.TTL and it can be handed to many caches at once.
func NewSharedTier[V any](cfg SharedConfig) (Tier[V], error) {
	tier, err := cacheinfra.NewSturdycTier[V](cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return tier, nil
}
