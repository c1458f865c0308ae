package store

import (
	"context"

	"github.com/uptrace/bun"
)

// Conn resolves the database handle a store call runs against. Sessions
// implement it so every call lands in the session's current transaction.
type Conn interface {
	IDB(ctx context.Context) (bun.IDB, error)
}

// ConnFunc adapts a function to the Conn interface.
type ConnFunc func(ctx context.Context) (bun.IDB, error)

func (f ConnFunc) IDB(ctx context.Context) (bun.IDB, error) { return f(ctx) }

// Static returns a Conn that always resolves to db.
func Static(db bun.IDB) Conn {
	return ConnFunc(func(context.Context) (bun.IDB, error) { return db, nil })
}
