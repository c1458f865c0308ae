package cache

import (
	"github.com/sirupsen/logrus"
)

// EventKind labels cache events reported to an Observer.
type EventKind string

const (
	EventHit        EventKind = "hit"
	EventMiss       EventKind = "miss"
	EventEvict      EventKind = "evict"
	EventStage      EventKind = "stage"
	EventFlush      EventKind = "flush"
	EventFlushError EventKind = "flush_error"
	EventDiscard    EventKind = "discard"
	EventInvalidate EventKind = "invalidate"
)

// Observer receives cache events. Implementations must be safe for concurrent use.
type Observer interface {
	Observe(table string, kind EventKind, n int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(table string, kind EventKind, n int)

func (f ObserverFunc) Observe(table string, kind EventKind, n int) { f(table, kind, n) }

type nopObserver struct{}

func (nopObserver) Observe(string, EventKind, int) {}

// Cloner copies a row so callers never share memory with a cached payload.
type Cloner[T any] func(row T) (T, error)

// Options carries the collaborators shared by every cache variant.
type Options[T any] struct {
	// Name labels log lines and events, usually the table name.
	Name     string
	Logger   logrus.FieldLogger
	Observer Observer
	// Clone, when set, copies rows on the way into and out of the cache.
	Clone Cloner[T]
	// Tier replaces the per-cache LRU. Read-only caches only.
	Tier Tier[Entry[T]]
	// Shared marks Tier as visible to other sessions; writes then track dirty keys.
	Shared bool
}

func (o Options[T]) withDefaults() Options[T] {
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	o.Logger = o.Logger.WithField("table", o.Name)
	return o
}

func (o Options[T]) clone(row T) (T, error) {
	if o.Clone == nil {
		return row, nil
	}
	return o.Clone(row)
}
