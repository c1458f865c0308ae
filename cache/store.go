package cache

import "context"

// Store is the backing store adapter a cache reads from and flushes into.
// Load returns found=false with a nil error when no row exists for key.
type Store[T any] interface {
	Load(ctx context.Context, key Key) (row T, found bool, err error)
	Insert(ctx context.Context, row T) error
	Update(ctx context.Context, row T) error
	Delete(ctx context.Context, key Key) error
}

// StoreFuncs adapts plain functions to the Store interface.
// Nil functions behave as no-ops (Load reports not found).
type StoreFuncs[T any] struct {
	LoadFn   func(ctx context.Context, key Key) (T, bool, error)
	InsertFn func(ctx context.Context, row T) error
	UpdateFn func(ctx context.Context, row T) error
	DeleteFn func(ctx context.Context, key Key) error
}

var _ Store[any] = StoreFuncs[any]{}

func (f StoreFuncs[T]) Load(ctx context.Context, key Key) (T, bool, error) {
	if f.LoadFn == nil {
		var zero T
		return zero, false, nil
	}
	return f.LoadFn(ctx, key)
}

func (f StoreFuncs[T]) Insert(ctx context.Context, row T) error {
	if f.InsertFn == nil {
		return nil
	}
	return f.InsertFn(ctx, row)
}

func (f StoreFuncs[T]) Update(ctx context.Context, row T) error {
	if f.UpdateFn == nil {
		return nil
	}
	return f.UpdateFn(ctx, row)
}

func (f StoreFuncs[T]) Delete(ctx context.Context, key Key) error {
	if f.DeleteFn == nil {
		return nil
	}
	return f.DeleteFn(ctx, key)
}
