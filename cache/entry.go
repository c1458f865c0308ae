package cache

// State is the pending-operation tag of a cache entry.
type State uint8

const (
	// StateNone marks a row that mirrors the backing store.
	StateNone State = iota
	// StateInserted marks a new row not yet written to the backing store.
	StateInserted
	// StateUpdated marks an existing row with staged changes.
	StateUpdated
	// StateDeleted marks a row staged for removal. Selects treat it as absent.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInserted:
		return "inserted"
	case StateUpdated:
		return "updated"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Pending reports whether the state carries a staged write.
func (s State) Pending() bool { return s != StateNone }

// Op names a table write operation.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry is a cached row plus its pending-operation state.
type Entry[T any] struct {
	Key   Key
	Row   T
	State State
	// Version is stamped from a per-cache counter on load and on every transition.
	Version uint64

	// persisted is true when the backing store is believed to hold the row.
	persisted bool
	// seq orders staged entries inside a flush category.
	seq uint64
}

// Persisted reports whether the backing store is believed to hold the row.
func (e Entry[T]) Persisted() bool { return e.persisted }

// transition applies op to the entry in place. A nil entry stands for a key
// that is not cached at all. The returned entry replaces the previous one.
//
// Writes against a deleted key: a re-insert is accepted and becomes an update
// when the store still holds the old row; update and delete are rejected.
func transition[T any](e *Entry[T], key Key, op Op, row T) (*Entry[T], error) {
	var zero T

	if e == nil {
		switch op {
		case OpInsert:
			return &Entry[T]{Key: key, Row: row, State: StateInserted}, nil
		case OpUpdate:
			return &Entry[T]{Key: key, Row: row, State: StateUpdated, persisted: true}, nil
		case OpDelete:
			return &Entry[T]{Key: key, State: StateDeleted, persisted: true}, nil
		}
		return nil, &ConsistencyError{Key: key, Op: op, Reason: "unsupported operation"}
	}

	next := *e
	switch e.State {
	case StateNone, StateUpdated:
		switch op {
		case OpInsert:
			return nil, &ConsistencyError{Key: key, State: e.State, Op: op, Reason: "row already exists"}
		case OpUpdate:
			next.Row, next.State = row, StateUpdated
		case OpDelete:
			next.Row, next.State = zero, StateDeleted
		}

	case StateInserted:
		switch op {
		case OpInsert:
			return nil, &ConsistencyError{Key: key, State: e.State, Op: op, Reason: "row already staged for insert"}
		case OpUpdate:
			next.Row = row
		case OpDelete:
			// the store never saw the row; flush skips it
			next.Row, next.State = zero, StateDeleted
		}

	case StateDeleted:
		switch op {
		case OpInsert:
			next.Row = row
			if e.persisted {
				next.State = StateUpdated
			} else {
				next.State = StateInserted
			}
		case OpUpdate:
			return nil, &ConsistencyError{Key: key, State: e.State, Op: op, Reason: "row is staged for delete"}
		case OpDelete:
			return nil, &ConsistencyError{Key: key, State: e.State, Op: op, Reason: "row already staged for delete"}
		}
	}

	return &next, nil
}
