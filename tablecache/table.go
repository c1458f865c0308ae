package tablecache

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jinzhu/inflection"

	"github.com/goliatone/go-table-cache/cache"
	"github.com/goliatone/go-table-cache/store"
)

// Definition describes how to cache one table.
type Definition[T any] struct {
	// Name identifies the table in configuration, logs and metrics. Empty
	// means the pluralized snake_case name of T, the way bun names tables.
	Name string
	// Config overrides the manager's configuration for this table when set.
	Config cache.Config
	// Key extracts the primary key of a row.
	Key cache.KeyFunc[T]
	// Store builds the backing store over the session connection.
	Store func(conn store.Conn) cache.Store[T]
	// Clone copies rows in and out of the cache. Nil shares rows.
	Clone cache.Cloner[T]
}

// TableName returns the resolved table name.
func (d Definition[T]) TableName() string {
	if d.Name != "" {
		return d.Name
	}
	return defaultTableName[T]()
}

func (d Definition[T]) validate() error {
	if d.Key == nil {
		return &cache.ConfigError{Field: "Key", Message: "key function is required"}
	}
	if d.Store == nil {
		return &cache.ConfigError{Field: "Store", Message: "store constructor is required"}
	}
	return nil
}

// Table is the per-session handle to one cached table.
type Table[T any] struct {
	name    string
	session *Session
	cache   cache.Cache[T]
	keyOf   cache.KeyFunc[T]
}

// Open returns the table for def in s, creating its cache on first use. A
// session holds one cache per table name; opening the same name with another
// row type fails with ErrTableTypeMismatch.
func Open[T any](s *Session, def Definition[T]) (*Table[T], error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	name := def.TableName()
	if bound, ok := s.tables[name]; ok {
		t, ok := bound.table.(*Table[T])
		if !ok {
			return nil, fmt.Errorf("%w: %s is bound to %T", ErrTableTypeMismatch, name, bound.table)
		}
		return t, nil
	}

	if err := def.validate(); err != nil {
		return nil, err
	}

	cfg := def.Config
	if cfg.IsZero() {
		cfg = s.mgr.Config(name)
	}
	cfg = cfg.WithDefaults()

	opts := cache.Options[T]{
		Name:     name,
		Logger:   s.logger,
		Observer: s.mgr.observer,
		Clone:    def.Clone,
	}
	if cfg.Shared {
		tier, err := sharedTier[T](s.mgr, name)
		if err != nil {
			return nil, err
		}
		opts.Tier = tier
		opts.Shared = true
	}

	c, err := cache.New(cfg, def.Store(s), def.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}

	t := &Table[T]{name: name, session: s, cache: c, keyOf: def.Key}
	s.bind(name, c, t)
	s.logger.WithField("table", name).WithField("cache", string(cfg.Type)).Debug("table opened")

	return t, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Session returns the owning session.
func (t *Table[T]) Session() *Session { return t.session }

// Cache exposes the underlying cache.
func (t *Table[T]) Cache() cache.Cache[T] { return t.cache }

// Select returns the row stored under key.
func (t *Table[T]) Select(ctx context.Context, key cache.Key) (T, bool, error) {
	if t.session.closed {
		var zero T
		return zero, false, ErrSessionClosed
	}
	return t.cache.Select(ctx, key)
}

// SelectByID builds the key from parts and selects it.
func (t *Table[T]) SelectByID(ctx context.Context, parts ...any) (T, bool, error) {
	return t.Select(ctx, cache.NewKey(parts...))
}

// Insert adds a new row.
func (t *Table[T]) Insert(ctx context.Context, row T) error {
	if t.session.closed {
		return ErrSessionClosed
	}
	return t.cache.Insert(ctx, row)
}

// Update replaces an existing row.
func (t *Table[T]) Update(ctx context.Context, row T) error {
	if t.session.closed {
		return ErrSessionClosed
	}
	return t.cache.Update(ctx, row)
}

// Delete removes the row stored under key.
func (t *Table[T]) Delete(ctx context.Context, key cache.Key) error {
	if t.session.closed {
		return ErrSessionClosed
	}
	return t.cache.Delete(ctx, key)
}

// DeleteRow removes row by its primary key.
func (t *Table[T]) DeleteRow(ctx context.Context, row T) error {
	return t.Delete(ctx, t.keyOf(row))
}

func defaultTableName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	return inflection.Plural(toSnake(typ.Name()))
}
