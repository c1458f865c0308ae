package cache

import (
	"context"
)

// Cache is the table-facing contract shared by every cache variant.
type Cache[T any] interface {
	// Select returns the row visible under key in the current scope.
	Select(ctx context.Context, key Key) (row T, found bool, err error)
	Insert(ctx context.Context, row T) error
	Update(ctx context.Context, row T) error
	Delete(ctx context.Context, key Key) error

	// Flush applies staged writes to the backing store. Called once at commit.
	Flush(ctx context.Context) error
	// Discard drops staged writes without touching the store. Called once at rollback.
	Discard()
	// Committed is called after the backing transaction committed.
	Committed()
	// Invalidate forgets key so the next select reloads it.
	Invalidate(key Key)
	// Reset drops every entry without flushing. Called at scope teardown.
	Reset()

	Len() int
	Type() Type
}

// New builds the cache variant selected by cfg.Type.
func New[T any](cfg Config, store Store[T], keyOf KeyFunc[T], opts Options[T]) (Cache[T], error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeReadOnly:
		c, err := NewReadOnly(cfg.MaxSize, store, keyOf, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TypeReadWrite:
		c, err := NewReadWrite(cfg, store, keyOf, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return NewPassthrough(store, keyOf, opts), nil
	}
}
