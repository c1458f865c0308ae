package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-table-cache/cache"
)

// RowFactory builds an empty bun model with its primary key fields set from key.
// T must be a pointer to a bun model struct.
type RowFactory[T any] func(key cache.Key) T

// BunStore runs primary key selects and writes for one bun model.
type BunStore[T any] struct {
	conn   Conn
	newRow RowFactory[T]
}

var _ cache.Store[any] = (*BunStore[any])(nil)

// NewBunStore creates a store for the model built by newRow.
func NewBunStore[T any](conn Conn, newRow RowFactory[T]) *BunStore[T] {
	return &BunStore[T]{conn: conn, newRow: newRow}
}

// Load selects the row whose primary key matches key.
func (s *BunStore[T]) Load(ctx context.Context, key cache.Key) (T, bool, error) {
	var zero T

	db, err := s.conn.IDB(ctx)
	if err != nil {
		return zero, false, err
	}

	row := s.newRow(key)
	if err := db.NewSelect().Model(row).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}

	return row, true, nil
}

// Insert inserts row.
func (s *BunStore[T]) Insert(ctx context.Context, row T) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	_, err = db.NewInsert().Model(row).Exec(ctx)
	return err
}

// Update writes every column of row by primary key.
func (s *BunStore[T]) Update(ctx context.Context, row T) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	res, err := db.NewUpdate().Model(row).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Delete removes the row whose primary key matches key.
func (s *BunStore[T]) Delete(ctx context.Context, key cache.Key) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	res, err := db.NewDelete().Model(s.newRow(key)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowNotFound
	}
	return nil
}
