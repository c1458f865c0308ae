// Package tablecache binds per-table caches to database sessions.
//
// # Overview
//
// A Manager owns the database handle and the cache configuration of every
// table. Each unit of work opens a Session, which begins a bun transaction on
// first use and holds one cache per table it touches:
//
//	mgr, err := tablecache.NewManager(db, tablecache.WithConfigFile(cfg))
//	if err != nil {
//		return err
//	}
//
//	err = mgr.RunInSession(ctx, func(ctx context.Context, s *tablecache.Session) error {
//		users, err := tablecache.Open(s, tablecache.Definition[*User]{
//			Key:   func(u *User) cache.Key { return cache.NewKey(u.ID) },
//			Store: func(conn store.Conn) cache.Store[*User] {
//				return store.NewBunStore(conn, func(k cache.Key) *User {
//					return &User{ID: k.Part(0).(int64)}
//				})
//			},
//		})
//		if err != nil {
//			return err
//		}
//		u, found, err := users.SelectByID(ctx, int64(1))
//		...
//	})
//
// # Transaction boundaries
//
// Commit flushes every read-write cache, in the order the tables were
// opened, inside the open transaction and then commits it. When a flush
// fails the transaction is rolled back and every cache is emptied. Rollback
// discards staged writes; whether clean rows survive depends on each table's
// rollback policy. Close never flushes.
//
// A Session may run several transactions in sequence. Caches outlive each
// transaction, so rows read in one are served from memory in the next
// unless the table configuration drops them.
//
// # Shared tables
//
// Read-only tables configured with shared: true use one sturdyc tier per
// table across all sessions of a Manager. Keys written by a session bypass
// the shared tier until that session commits or rolls back.
package tablecache
