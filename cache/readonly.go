package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// ReadOnlyCache serves selects from a bounded tier and passes every write
// straight to the store, invalidating the written key afterwards.
//
// The tier is internally synchronized, so concurrent selects are safe. Writes
// are expected from the owning session only.
type ReadOnlyCache[T any] struct {
	store   Store[T]
	keyOf   KeyFunc[T]
	tier    Tier[Entry[T]]
	opts    Options[T]
	version atomic.Uint64

	mu sync.Mutex
	// dirty holds keys written in the current transaction. Rows loaded for
	// them may carry uncommitted data.
	dirty map[string]struct{}
}

var _ Cache[any] = (*ReadOnlyCache[any])(nil)

// NewReadOnly returns a read-only cache bounded to maxSize entries with LRU
// eviction, unless opts.Tier supplies another tier.
func NewReadOnly[T any](maxSize int, store Store[T], keyOf KeyFunc[T], opts Options[T]) (*ReadOnlyCache[T], error) {
	opts = opts.withDefaults()

	tier := opts.Tier
	if tier == nil {
		var err error
		if tier, err = NewLRUTier[Entry[T]](maxSize); err != nil {
			return nil, err
		}
	}

	return &ReadOnlyCache[T]{
		store: store,
		keyOf: keyOf,
		tier:  tier,
		opts:  opts,
		dirty: make(map[string]struct{}),
	}, nil
}

// Select returns the cached row for key, loading and caching it on a miss.
// Rows that are not found are not cached.
func (c *ReadOnlyCache[T]) Select(ctx context.Context, key Key) (T, bool, error) {
	var zero T
	k := key.String()
	bypass := c.opts.Shared && c.isDirty(k)

	if !bypass {
		if e, ok := c.tier.Get(k); ok {
			c.opts.Observer.Observe(c.opts.Name, EventHit, 1)
			row, err := c.opts.clone(e.Row)
			if err != nil {
				return zero, false, err
			}
			return row, true, nil
		}
	}

	c.opts.Observer.Observe(c.opts.Name, EventMiss, 1)
	row, found, err := c.store.Load(ctx, key)
	if err != nil {
		return zero, false, storeError(OpSelect, key, err)
	}
	if !found || bypass {
		return row, found, nil
	}

	stored, err := c.opts.clone(row)
	if err != nil {
		return zero, false, err
	}

	entry := Entry[T]{Key: key, Row: stored, State: StateNone, Version: c.version.Add(1), persisted: true}
	if c.tier.Add(k, entry) {
		c.opts.Observer.Observe(c.opts.Name, EventEvict, 1)
	}
	c.opts.Logger.WithField("key", k).Debug("cached row loaded from store")

	return row, true, nil
}

// Insert writes row to the store and invalidates its key on success.
func (c *ReadOnlyCache[T]) Insert(ctx context.Context, row T) error {
	key := c.keyOf(row)
	if err := c.store.Insert(ctx, row); err != nil {
		return storeError(OpInsert, key, err)
	}
	c.written(key)
	return nil
}

// Update writes row to the store and invalidates its key on success.
func (c *ReadOnlyCache[T]) Update(ctx context.Context, row T) error {
	key := c.keyOf(row)
	if err := c.store.Update(ctx, row); err != nil {
		return storeError(OpUpdate, key, err)
	}
	c.written(key)
	return nil
}

// Delete removes key from the store and invalidates it on success.
func (c *ReadOnlyCache[T]) Delete(ctx context.Context, key Key) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return storeError(OpDelete, key, err)
	}
	c.written(key)
	return nil
}

// Flush is a no-op: writes were never staged.
func (c *ReadOnlyCache[T]) Flush(context.Context) error { return nil }

// Discard forgets rows written in the rolled back transaction.
func (c *ReadOnlyCache[T]) Discard() {
	n := c.releaseDirty()
	if n > 0 {
		c.opts.Observer.Observe(c.opts.Name, EventDiscard, n)
	}
}

// Committed invalidates written keys once more so rows other sessions cached
// before the commit became visible are reloaded.
func (c *ReadOnlyCache[T]) Committed() {
	c.releaseDirty()
}

// Invalidate removes key from the tier.
func (c *ReadOnlyCache[T]) Invalidate(key Key) {
	c.tier.Remove(key.String())
	c.opts.Observer.Observe(c.opts.Name, EventInvalidate, 1)
}

// Reset drops this cache's entries. A shared tier only loses the keys this
// cache wrote, since other sessions still rely on the rest.
func (c *ReadOnlyCache[T]) Reset() {
	c.releaseDirty()
	if !c.opts.Shared {
		c.tier.Purge()
	}
}

// Len returns the number of entries held by the tier.
func (c *ReadOnlyCache[T]) Len() int { return c.tier.Len() }

// Type returns TypeReadOnly.
func (c *ReadOnlyCache[T]) Type() Type { return TypeReadOnly }

func (c *ReadOnlyCache[T]) written(key Key) {
	k := key.String()
	c.mu.Lock()
	c.dirty[k] = struct{}{}
	c.mu.Unlock()

	c.tier.Remove(k)
	c.opts.Observer.Observe(c.opts.Name, EventInvalidate, 1)
}

func (c *ReadOnlyCache[T]) isDirty(k string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.dirty[k]
	return ok
}

func (c *ReadOnlyCache[T]) releaseDirty() int {
	c.mu.Lock()
	dirty := c.dirty
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	for k := range dirty {
		c.tier.Remove(k)
	}
	return len(dirty)
}
