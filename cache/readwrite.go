package cache

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
)

// ReadWriteCache stages inserts, updates and deletes in memory, serves them to
// later selects in the same scope, and applies them to the store on Flush.
//
// Staged entries live apart from the clean LRU tier and are never evicted;
// MaxSize bounds clean entries only. A key is held by at most one of the two.
//
// A ReadWriteCache belongs to one session and is not safe for concurrent use.
type ReadWriteCache[T any] struct {
	cfg    Config
	store  Store[T]
	keyOf  KeyFunc[T]
	clean  Tier[Entry[T]]
	staged map[string]*Entry[T]
	opts   Options[T]

	version uint64
	seq     uint64
}

var _ Cache[any] = (*ReadWriteCache[any])(nil)

// NewReadWrite returns a read-write cache for cfg. opts.Tier is ignored:
// staged state must never be visible outside the owning session.
func NewReadWrite[T any](cfg Config, store Store[T], keyOf KeyFunc[T], opts Options[T]) (*ReadWriteCache[T], error) {
	cfg = cfg.WithDefaults()
	opts = opts.withDefaults()

	clean, err := NewLRUTier[Entry[T]](cfg.MaxSize)
	if err != nil {
		return nil, err
	}

	return &ReadWriteCache[T]{
		cfg:    cfg,
		store:  store,
		keyOf:  keyOf,
		clean:  clean,
		staged: make(map[string]*Entry[T]),
		opts:   opts,
	}, nil
}

// Select returns the staged row for key when one exists, reports deleted keys
// as not found, and otherwise reads through the clean tier to the store.
func (c *ReadWriteCache[T]) Select(ctx context.Context, key Key) (T, bool, error) {
	var zero T
	k := key.String()

	if e, ok := c.staged[k]; ok {
		c.opts.Observer.Observe(c.opts.Name, EventHit, 1)
		if e.State == StateDeleted {
			return zero, false, nil
		}
		return c.out(e.Row)
	}

	if e, ok := c.clean.Get(k); ok {
		c.opts.Observer.Observe(c.opts.Name, EventHit, 1)
		return c.out(e.Row)
	}

	c.opts.Observer.Observe(c.opts.Name, EventMiss, 1)
	row, found, err := c.store.Load(ctx, key)
	if err != nil {
		return zero, false, storeError(OpSelect, key, err)
	}
	if !found {
		return zero, false, nil
	}

	stored, err := c.opts.clone(row)
	if err != nil {
		return zero, false, err
	}
	c.addClean(key, stored)

	return row, true, nil
}

// Insert stages row as a new row.
func (c *ReadWriteCache[T]) Insert(_ context.Context, row T) error {
	return c.stage(OpInsert, c.keyOf(row), row)
}

// Update stages changes to row.
func (c *ReadWriteCache[T]) Update(_ context.Context, row T) error {
	return c.stage(OpUpdate, c.keyOf(row), row)
}

// Delete stages the removal of key. Deleting a row inserted in the same scope
// cancels the insert.
func (c *ReadWriteCache[T]) Delete(_ context.Context, key Key) error {
	var zero T
	return c.stage(OpDelete, key, zero)
}

func (c *ReadWriteCache[T]) stage(op Op, key Key, row T) error {
	k := key.String()

	current, ok := c.staged[k]
	if !ok {
		if e, hit := c.clean.Get(k); hit {
			current = &e
		}
	}

	if op != OpDelete {
		var err error
		if row, err = c.opts.clone(row); err != nil {
			return err
		}
	}

	next, err := transition(current, key, op, row)
	if err != nil {
		return err
	}

	c.version++
	c.seq++
	next.Version = c.version
	next.seq = c.seq

	c.clean.Remove(k)
	c.staged[k] = next

	c.opts.Observer.Observe(c.opts.Name, EventStage, 1)
	c.opts.Logger.WithFields(logrus.Fields{
		"key":   k,
		"op":    string(op),
		"state": next.State.String(),
	}).Debug("staged write")

	return nil
}

// Flush applies staged writes: inserts, then updates, then deletes, each group
// in staging order. Deletes that cancelled an insert issue no call.
//
// On the first store failure the flush stops, every entry is dropped so the
// next access reloads, and a FlushError is returned.
func (c *ReadWriteCache[T]) Flush(ctx context.Context) error {
	if len(c.staged) == 0 {
		return nil
	}

	entries := c.ordered()
	applied := 0

	for _, e := range entries {
		var (
			op  Op
			err error
		)

		switch e.State {
		case StateInserted:
			op, err = OpInsert, c.store.Insert(ctx, e.Row)
		case StateUpdated:
			op, err = OpUpdate, c.store.Update(ctx, e.Row)
		case StateDeleted:
			if !e.persisted {
				continue
			}
			op, err = OpDelete, c.store.Delete(ctx, e.Key)
		default:
			continue
		}

		if err != nil {
			c.Reset()
			c.opts.Observer.Observe(c.opts.Name, EventFlushError, 1)
			c.opts.Logger.WithFields(logrus.Fields{
				"key":     e.Key.String(),
				"op":      string(op),
				"applied": applied,
			}).WithError(err).Warn("cache flush failed, entries invalidated")
			return &FlushError{Op: op, Key: e.Key, Applied: applied, Err: err}
		}
		applied++
	}

	c.staged = make(map[string]*Entry[T])
	for _, e := range entries {
		if e.State == StateDeleted || c.cfg.Flush == FlushDrop {
			continue
		}
		c.addClean(e.Key, e.Row)
	}

	c.opts.Observer.Observe(c.opts.Name, EventFlush, applied)
	c.opts.Logger.WithField("applied", applied).Debug("cache flushed")

	return nil
}

// Discard drops staged writes. Clean entries survive only under
// RollbackDiscardStaged.
func (c *ReadWriteCache[T]) Discard() {
	n := len(c.staged)
	c.staged = make(map[string]*Entry[T])
	if c.cfg.Rollback != RollbackDiscardStaged {
		c.clean.Purge()
	}
	c.opts.Observer.Observe(c.opts.Name, EventDiscard, n)
}

// Committed is a no-op: Flush already reconciled the entries.
func (c *ReadWriteCache[T]) Committed() {}

// Invalidate forgets key, including any write staged for it.
func (c *ReadWriteCache[T]) Invalidate(key Key) {
	k := key.String()
	delete(c.staged, k)
	c.clean.Remove(k)
	c.opts.Observer.Observe(c.opts.Name, EventInvalidate, 1)
}

// Reset drops every entry without flushing.
func (c *ReadWriteCache[T]) Reset() {
	c.staged = make(map[string]*Entry[T])
	c.clean.Purge()
}

// Len returns the number of staged plus clean entries.
func (c *ReadWriteCache[T]) Len() int { return len(c.staged) + c.clean.Len() }

// Type returns TypeReadWrite.
func (c *ReadWriteCache[T]) Type() Type { return TypeReadWrite }

// Staged returns copies of the staged entries in flush order.
func (c *ReadWriteCache[T]) Staged() []Entry[T] {
	entries := c.ordered()
	out := make([]Entry[T], len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}

// Peek returns the entry held for key without loading it.
func (c *ReadWriteCache[T]) Peek(key Key) (Entry[T], bool) {
	k := key.String()
	if e, ok := c.staged[k]; ok {
		return *e, true
	}
	return c.clean.Get(k)
}

func (c *ReadWriteCache[T]) addClean(key Key, row T) {
	c.version++
	entry := Entry[T]{Key: key, Row: row, State: StateNone, Version: c.version, persisted: true}
	if c.clean.Add(key.String(), entry) {
		c.opts.Observer.Observe(c.opts.Name, EventEvict, 1)
	}
}

func (c *ReadWriteCache[T]) out(row T) (T, bool, error) {
	row, err := c.opts.clone(row)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return row, true, nil
}

func (c *ReadWriteCache[T]) ordered() []*Entry[T] {
	entries := make([]*Entry[T], 0, len(c.staged))
	for _, e := range c.staged {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ri, rj := flushRank(entries[i].State), flushRank(entries[j].State)
		if ri != rj {
			return ri < rj
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

func flushRank(s State) int {
	switch s {
	case StateInserted:
		return 0
	case StateUpdated:
		return 1
	default:
		return 2
	}
}
