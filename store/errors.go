package store

import (
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrRowNotFound is returned when an update or delete matched no row.
	ErrRowNotFound = errors.New("row not found")
	// ErrUnsupportedDriver is returned by OpenDB for unknown drivers.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// IsNotFound reports whether err means the row does not exist. It recognizes
// sql.ErrNoRows, ErrRowNotFound and go-errors values in the not found category,
// which is how go-repository-bun reports missing records.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrRowNotFound) {
		return true
	}
	var rich *goerrors.Error
	return errors.As(err, &rich) && rich.Category == goerrors.CategoryNotFound
}
