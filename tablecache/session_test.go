package tablecache_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/cache"
	"github.com/goliatone/go-table-cache/pkg/testsupport"
	"github.com/goliatone/go-table-cache/store"
	"github.com/goliatone/go-table-cache/tablecache"
)

type account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID   int64  `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

func accountKey(a *account) cache.Key { return cache.NewKey(a.ID) }

func accountDef() tablecache.Definition[*account] {
	return tablecache.Definition[*account]{
		Key: accountKey,
		Store: func(conn store.Conn) cache.Store[*account] {
			return store.NewBunStore(conn, func(k cache.Key) *account {
				return &account{ID: k.Part(0).(int64)}
			})
		},
		Clone: cache.MsgpackClone[*account],
	}
}

type country struct {
	Code string
	Name string
}

func countryKey(c *country) cache.Key { return cache.NewKey(c.Code) }

func countryDef(backing cache.Store[*country]) tablecache.Definition[*country] {
	return tablecache.Definition[*country]{
		Name:  "countries",
		Key:   countryKey,
		Store: func(store.Conn) cache.Store[*country] { return backing },
	}
}

type eventCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newEventCounter() *eventCounter {
	return &eventCounter{counts: make(map[string]int)}
}

func (c *eventCounter) Observe(table string, kind cache.EventKind, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[table+"/"+string(kind)] += n
}

func (c *eventCounter) get(table string, kind cache.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[table+"/"+string(kind)]
}

func newManager(t *testing.T, opts ...tablecache.Option) (*tablecache.Manager, *bun.DB) {
	t.Helper()
	db := testsupport.OpenSQLite(t, (*account)(nil))
	mgr, err := tablecache.NewManager(db, opts...)
	require.NoError(t, err)
	return mgr, db
}

func countAccounts(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*account)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSession_LazyTransaction(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	s := mgr.Open(ctx)
	defer s.Close()

	assert.NotEmpty(t, s.ID())
	assert.False(t, s.InTx())

	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)
	assert.Equal(t, "accounts", accounts.Name())
	assert.False(t, s.InTx(), "opening a table does not touch the database")

	_, found, err := accounts.SelectByID(ctx, int64(1))
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, s.InTx())

	require.NoError(t, s.Commit(ctx))
	assert.False(t, s.InTx())
}

func TestSession_CommitPersistsStagedWrites(t *testing.T) {
	ctx := context.Background()
	mgr, db := newManager(t)

	s := mgr.Open(ctx)
	defer s.Close()

	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)

	require.NoError(t, accounts.Insert(ctx, &account{ID: 1, Name: "alice"}))
	require.NoError(t, accounts.Insert(ctx, &account{ID: 2, Name: "bob"}))
	require.NoError(t, accounts.DeleteRow(ctx, &account{ID: 2}))
	assert.False(t, s.InTx(), "staged writes do not open a transaction")
	assert.Equal(t, 0, countAccounts(t, db))

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 1, countAccounts(t, db))

	got, found, err := accounts.SelectByID(ctx, int64(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", got.Name)
}

func TestSession_RollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	mgr, db := newManager(t)

	s := mgr.Open(ctx)
	defer s.Close()

	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)

	require.NoError(t, accounts.Insert(ctx, &account{ID: 1, Name: "alice"}))
	require.NoError(t, s.Rollback(ctx))

	_, found, err := accounts.SelectByID(ctx, int64(1))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 0, countAccounts(t, db))
}

func TestSession_RetainsCleanRowsAcrossTransactions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		rollback  cache.RollbackPolicy
		wantLoads int
	}{
		{name: "discard staged keeps clean rows", rollback: cache.RollbackDiscardStaged, wantLoads: 1},
		{name: "discard all reloads", rollback: cache.RollbackDiscardAll, wantLoads: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backing := testsupport.NewRecordingStore(countryKey,
				&country{Code: "PT", Name: "Portugal"},
				&country{Code: "ES", Name: "Spain"},
			)
			mgr, _ := newManager(t, tablecache.WithTableConfig("countries", cache.Config{
				Type:     cache.TypeReadWrite,
				MaxSize:  10,
				Rollback: tt.rollback,
			}))

			s := mgr.Open(ctx)
			defer s.Close()

			countries, err := tablecache.Open(s, countryDef(backing))
			require.NoError(t, err)

			_, _, err = countries.SelectByID(ctx, "PT")
			require.NoError(t, err)
			_, _, err = countries.SelectByID(ctx, "ES")
			require.NoError(t, err)
			require.NoError(t, s.Commit(ctx))

			got, _, err := countries.SelectByID(ctx, "PT")
			require.NoError(t, err)
			assert.Equal(t, "Portugal", got.Name, "clean rows survive a commit")

			require.NoError(t, countries.Update(ctx, &country{Code: "ES", Name: "staged"}))
			require.NoError(t, s.Rollback(ctx))

			got, _, err = countries.SelectByID(ctx, "ES")
			require.NoError(t, err)
			assert.Equal(t, "Spain", got.Name, "staged update is discarded")

			_, _, err = countries.SelectByID(ctx, "PT")
			require.NoError(t, err)

			loads := 0
			for _, c := range backing.Calls() {
				if c == testsupport.Call("load", cache.NewKey("PT")) {
					loads++
				}
			}
			assert.Equal(t, tt.wantLoads, loads)
		})
	}
}

func TestSession_FlushFailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	mgr, db := newManager(t)

	boom := errors.New("remote store down")
	backing := testsupport.NewRecordingStore(countryKey)
	backing.FailOn("insert", cache.NewKey("ES"), boom)

	s := mgr.Open(ctx)
	defer s.Close()

	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)
	countries, err := tablecache.Open(s, countryDef(backing))
	require.NoError(t, err)

	require.NoError(t, accounts.Insert(ctx, &account{ID: 1, Name: "alice"}))
	require.NoError(t, countries.Insert(ctx, &country{Code: "ES", Name: "Spain"}))

	err = s.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, cache.IsFlushError(err))

	assert.False(t, s.InTx())
	assert.Equal(t, 0, countAccounts(t, db), "accounts flushed earlier must be rolled back")
	assert.Equal(t, 0, accounts.Cache().Len())
	assert.Equal(t, 0, countries.Cache().Len())
}

func TestSession_CloseNeverFlushes(t *testing.T) {
	ctx := context.Background()
	mgr, db := newManager(t)

	s := mgr.Open(ctx)
	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)

	_, _, err = accounts.SelectByID(ctx, int64(5))
	require.NoError(t, err)
	require.NoError(t, accounts.Insert(ctx, &account{ID: 1, Name: "alice"}))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
	assert.False(t, s.InTx())
	assert.Equal(t, 0, countAccounts(t, db))
	assert.Equal(t, 0, accounts.Cache().Len())

	_, _, err = accounts.SelectByID(ctx, int64(1))
	assert.ErrorIs(t, err, tablecache.ErrSessionClosed)
	assert.ErrorIs(t, accounts.Insert(ctx, &account{ID: 2}), tablecache.ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx), tablecache.ErrSessionClosed)
	assert.ErrorIs(t, s.Rollback(ctx), tablecache.ErrSessionClosed)
	_, err = tablecache.Open(s, accountDef())
	assert.ErrorIs(t, err, tablecache.ErrSessionClosed)
}

func TestOpen_OneCachePerTable(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t)

	s := mgr.Open(ctx)
	defer s.Close()

	first, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)
	second, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, s, first.Session())

	_, err = tablecache.Open(s, tablecache.Definition[*country]{
		Name:  "accounts",
		Key:   countryKey,
		Store: func(store.Conn) cache.Store[*country] { return testsupport.NewRecordingStore(countryKey) },
	})
	assert.ErrorIs(t, err, tablecache.ErrTableTypeMismatch)

	_, err = tablecache.Open(s, tablecache.Definition[*country]{Name: "incomplete"})
	var cfgErr *cache.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestOpen_UsesTableConfig(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager(t,
		tablecache.WithDefaultConfig(cache.Config{Type: cache.TypeReadOnly, MaxSize: 5}),
		tablecache.WithTableConfig("countries", cache.Config{Type: cache.TypeNone}),
	)

	s := mgr.Open(ctx)
	defer s.Close()

	accounts, err := tablecache.Open(s, accountDef())
	require.NoError(t, err)
	assert.Equal(t, cache.TypeReadOnly, accounts.Cache().Type())

	countries, err := tablecache.Open(s, countryDef(testsupport.NewRecordingStore(countryKey)))
	require.NoError(t, err)
	assert.Equal(t, cache.TypeNone, countries.Cache().Type())

	def := countryDef(testsupport.NewRecordingStore(countryKey))
	def.Name = "regions"
	def.Config = cache.Config{Type: cache.TypeReadWrite, MaxSize: 3}
	regions, err := tablecache.Open(s, def)
	require.NoError(t, err)
	assert.Equal(t, cache.TypeReadWrite, regions.Cache().Type())
}

func TestNewManager_Errors(t *testing.T) {
	_, err := tablecache.NewManager(nil)
	assert.Error(t, err)

	db := testsupport.OpenSQLite(t)
	_, err = tablecache.NewManager(db, tablecache.WithDefaultConfig(cache.Config{Type: "lazy", MaxSize: 1}))
	assert.Error(t, err)

	_, err = tablecache.NewManager(db, tablecache.WithSharedConfig(cache.SharedConfig{}))
	assert.Error(t, err)
}
