// Package cache implements per-table row caches bound to a transaction scope.
//
// # Overview
//
// Three variants share the Cache interface:
//
//   - PassthroughCache: holds nothing, every call reaches the Store
//   - ReadOnlyCache: bounded read-through cache, writes go straight to the Store
//     and invalidate the written key
//   - ReadWriteCache: stages inserts, updates and deletes in memory and applies
//     them to the Store on Flush
//
// New picks the variant from a Config:
//
//	c, err := cache.New(cache.Config{Type: cache.TypeReadWrite, MaxSize: 500},
//		store, func(u *User) cache.Key { return cache.NewKey(u.ID) },
//		cache.Options[*User]{Name: "users"})
//
// # Keys
//
// A Key is an ordered tuple of primary key values with value equality. The
// default KeySerializer tags every component with its family, so int64(7) and
// uint8(7) are the same key while "7" is not.
//
// # Staging rules
//
// Writes in a ReadWriteCache are visible to the next Select in the same scope,
// deletes included. Deleting a row inserted in the same scope cancels the
// insert, so Flush issues no call for it. Re-inserting a deleted key is
// allowed; updating or deleting it again returns a ConsistencyError.
//
// Flush applies inserts, then updates, then deletes. If the Store fails, Flush
// stops, drops every entry and returns a FlushError; rolling back the
// transaction is left to the caller.
//
// # Rollback
//
// Discard drops staged writes. Whether clean reads survive depends on
// Config.Rollback: RollbackDiscardAll (default) drops them too, which is the
// safe choice when the store's isolation level is unknown.
//
// # Concurrency
//
// Caches are owned by one session. ReadOnlyCache tiers are synchronized, and
// a read-only table may opt into a tier shared across sessions (see
// NewSharedTier); keys written by a session then bypass the shared tier until
// the session commits or rolls back.
package cache
