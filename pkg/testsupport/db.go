package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/store"
)

// OpenSQLite opens a bun database on a fresh sqlite file and creates a table
// for every model. The database is closed when the test ends.
func OpenSQLite(t *testing.T, models ...any) *bun.DB {
	t.Helper()

	db, err := store.OpenDB(store.DBConfig{
		Driver: store.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000",
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}

	return db
}
