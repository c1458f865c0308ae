package cache

import "context"

// PassthroughCache forwards every call to the store. It backs tables
// configured with TypeNone.
type PassthroughCache[T any] struct {
	store Store[T]
	keyOf KeyFunc[T]
	opts  Options[T]
}

var _ Cache[any] = (*PassthroughCache[any])(nil)

// NewPassthrough returns a cache that holds nothing.
func NewPassthrough[T any](store Store[T], keyOf KeyFunc[T], opts Options[T]) *PassthroughCache[T] {
	return &PassthroughCache[T]{store: store, keyOf: keyOf, opts: opts.withDefaults()}
}

func (c *PassthroughCache[T]) Select(ctx context.Context, key Key) (T, bool, error) {
	row, found, err := c.store.Load(ctx, key)
	if err != nil {
		var zero T
		return zero, false, storeError(OpSelect, key, err)
	}
	return row, found, nil
}

func (c *PassthroughCache[T]) Insert(ctx context.Context, row T) error {
	return storeError(OpInsert, c.keyOf(row), c.store.Insert(ctx, row))
}

func (c *PassthroughCache[T]) Update(ctx context.Context, row T) error {
	return storeError(OpUpdate, c.keyOf(row), c.store.Update(ctx, row))
}

func (c *PassthroughCache[T]) Delete(ctx context.Context, key Key) error {
	return storeError(OpDelete, key, c.store.Delete(ctx, key))
}

func (c *PassthroughCache[T]) Flush(context.Context) error { return nil }

func (c *PassthroughCache[T]) Discard() {}

func (c *PassthroughCache[T]) Committed() {}

func (c *PassthroughCache[T]) Invalidate(Key) {}

func (c *PassthroughCache[T]) Reset() {}

func (c *PassthroughCache[T]) Len() int { return 0 }

func (c *PassthroughCache[T]) Type() Type { return TypeNone }
