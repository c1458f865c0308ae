package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-table-cache/cache"
)

var (
	// ErrDuplicateRow is returned by RecordingStore.Insert for an existing key.
	ErrDuplicateRow = errors.New("duplicate row")
	// ErrMissingRow is returned by RecordingStore.Update and Delete for an unknown key.
	ErrMissingRow = errors.New("missing row")
)

// RecordingStore is an in-memory cache.Store that records every call as
// "<op>:<key>" so tests can assert which backing store calls a cache issued.
type RecordingStore[T any] struct {
	mu    sync.Mutex
	keyOf cache.KeyFunc[T]
	rows  map[string]T
	calls []string
	fail  map[string]error
}

var _ cache.Store[any] = (*RecordingStore[any])(nil)

// NewRecordingStore creates a store seeded with rows. Seeding is not recorded.
func NewRecordingStore[T any](keyOf cache.KeyFunc[T], seed ...T) *RecordingStore[T] {
	s := &RecordingStore[T]{
		keyOf: keyOf,
		rows:  make(map[string]T),
		fail:  make(map[string]error),
	}
	for _, row := range seed {
		s.rows[keyOf(row).String()] = row
	}
	return s
}

// Call formats a recorded call the way RecordingStore does.
func Call(op string, key cache.Key) string {
	return op + ":" + key.String()
}

// FailOn makes every matching call return err.
func (s *RecordingStore[T]) FailOn(op string, key cache.Key, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[Call(op, key)] = err
}

func (s *RecordingStore[T]) record(op string, key cache.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := Call(op, key)
	s.calls = append(s.calls, call)
	return s.fail[call]
}

func (s *RecordingStore[T]) Load(_ context.Context, key cache.Key) (T, bool, error) {
	var zero T
	if err := s.record("load", key); err != nil {
		return zero, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key.String()]
	return row, ok, nil
}

func (s *RecordingStore[T]) Insert(_ context.Context, row T) error {
	key := s.keyOf(row)
	if err := s.record("insert", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key.String()]; ok {
		return ErrDuplicateRow
	}
	s.rows[key.String()] = row
	return nil
}

func (s *RecordingStore[T]) Update(_ context.Context, row T) error {
	key := s.keyOf(row)
	if err := s.record("update", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key.String()]; !ok {
		return ErrMissingRow
	}
	s.rows[key.String()] = row
	return nil
}

func (s *RecordingStore[T]) Delete(_ context.Context, key cache.Key) error {
	if err := s.record("delete", key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key.String()]; !ok {
		return ErrMissingRow
	}
	delete(s.rows, key.String())
	return nil
}

// Calls returns the recorded calls in order.
func (s *RecordingStore[T]) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ClearCalls forgets the recorded calls.
func (s *RecordingStore[T]) ClearCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Row returns the stored row for key.
func (s *RecordingStore[T]) Row(key cache.Key) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key.String()]
	return row, ok
}

// Put stores row without recording a call, simulating a write by another session.
func (s *RecordingStore[T]) Put(row T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[s.keyOf(row).String()] = row
}

// Len returns the number of stored rows.
func (s *RecordingStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
