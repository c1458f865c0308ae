package store

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/cache"
)

// Repository is the subset of repository.Repository[T] a RepositoryStore needs.
type Repository[T any] interface {
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error)
	CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error)
	DeleteTx(ctx context.Context, tx bun.IDB, record T) error
}

var _ Repository[any] = (repository.Repository[any])(nil)

// IDFunc renders a key as the string ID go-repository-bun looks rows up by.
type IDFunc func(key cache.Key) string

// DefaultID joins the key components with ":".
func DefaultID(key cache.Key) string {
	parts := key.Parts()
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = fmt.Sprint(p)
	}
	return strings.Join(out, ":")
}

// RepositoryStore adapts a go-repository-bun repository to cache.Store. Every
// call runs through the transaction resolved by conn.
type RepositoryStore[T any] struct {
	repo   Repository[T]
	conn   Conn
	id     IDFunc
	newRow RowFactory[T]
}

var _ cache.Store[any] = (*RepositoryStore[any])(nil)

// NewRepositoryStore wraps repo. A nil id uses DefaultID.
func NewRepositoryStore[T any](repo Repository[T], conn Conn, id IDFunc, newRow RowFactory[T]) *RepositoryStore[T] {
	if id == nil {
		id = DefaultID
	}
	return &RepositoryStore[T]{repo: repo, conn: conn, id: id, newRow: newRow}
}

func (s *RepositoryStore[T]) Load(ctx context.Context, key cache.Key) (T, bool, error) {
	var zero T

	db, err := s.conn.IDB(ctx)
	if err != nil {
		return zero, false, err
	}

	row, err := s.repo.GetByIDTx(ctx, db, s.id(key))
	if err != nil {
		if IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return row, true, nil
}

func (s *RepositoryStore[T]) Insert(ctx context.Context, row T) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateTx(ctx, db, row)
	return err
}

func (s *RepositoryStore[T]) Update(ctx context.Context, row T) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	_, err = s.repo.UpdateTx(ctx, db, row)
	return err
}

func (s *RepositoryStore[T]) Delete(ctx context.Context, key cache.Key) error {
	db, err := s.conn.IDB(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteTx(ctx, db, s.newRow(key))
}
