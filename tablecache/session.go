package tablecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/store"
)

var (
	// ErrSessionClosed is returned by any use of a closed session.
	ErrSessionClosed = errors.New("tablecache: session closed")
	// ErrTableTypeMismatch is returned when a table name is opened with a
	// different row type than the one already bound to it.
	ErrTableTypeMismatch = errors.New("tablecache: table type mismatch")
)

// controller is the untyped part of cache.Cache a session drives at
// transaction boundaries.
type controller interface {
	Flush(ctx context.Context) error
	Discard()
	Committed()
	Reset()
}

type boundTable struct {
	name  string
	ctl   controller
	table any
}

// Session is one unit of work: a sequence of transactions over the same set
// of table caches. The transaction begins lazily on first database access and
// a new one begins after each Commit or Rollback.
//
// A Session is not safe for concurrent use.
type Session struct {
	id     string
	mgr    *Manager
	logger logrus.FieldLogger

	tx     bun.Tx
	active bool
	closed bool

	tables map[string]*boundTable
	order  []*boundTable
}

var _ store.Conn = (*Session)(nil)

func newSession(m *Manager) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		mgr:    m,
		logger: m.logger.WithField("session", id),
		tables: make(map[string]*boundTable),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// InTx reports whether a transaction is open.
func (s *Session) InTx() bool { return s.active }

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed }

// IDB returns the open transaction, beginning one if needed.
func (s *Session) IDB(ctx context.Context) (bun.IDB, error) {
	if err := s.Begin(ctx); err != nil {
		return nil, err
	}
	return s.tx, nil
}

// Begin opens a transaction. It is a no-op when one is already open.
func (s *Session) Begin(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.active {
		return nil
	}

	tx, err := s.mgr.db.BeginTx(ctx, s.mgr.txOpts)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", s.id, err)
	}
	s.tx = tx
	s.active = true
	s.logger.Debug("transaction started")
	return nil
}

// Commit flushes every table cache in open order and commits the
// transaction. A flush failure rolls the transaction back and drops every
// cache entry. A failed commit also drops every cache entry, since flushed
// rows are no longer known to be persisted.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	for _, t := range s.order {
		if err := t.ctl.Flush(ctx); err != nil {
			s.resetAll()
			if rbErr := s.rollbackTx(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			s.logger.WithField("table", t.name).WithError(err).Warn("flush failed, transaction rolled back")
			return fmt.Errorf("flush table %s: %w", t.name, err)
		}
	}

	if s.active {
		err := s.tx.Commit()
		s.active = false
		if err != nil {
			s.resetAll()
			s.logger.WithError(err).Error("commit failed, caches invalidated")
			return fmt.Errorf("commit session %s: %w", s.id, err)
		}
	}

	for _, t := range s.order {
		t.ctl.Committed()
	}
	s.logger.WithField("tables", len(s.order)).Info("session committed")

	return nil
}

// Rollback discards staged writes in every table cache and rolls back the
// open transaction, if any.
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	for _, t := range s.order {
		t.ctl.Discard()
	}
	if err := s.rollbackTx(); err != nil {
		return fmt.Errorf("rollback session %s: %w", s.id, err)
	}
	s.logger.Debug("session rolled back")
	return nil
}

// Close rolls back an open transaction, drops every cache entry without
// flushing and marks the session closed. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}

	var err error
	if s.active {
		s.logger.Warn("closing session with an open transaction, rolling back")
		for _, t := range s.order {
			t.ctl.Discard()
		}
		err = s.rollbackTx()
	}
	s.resetAll()
	s.closed = true

	if err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}
	return nil
}

func (s *Session) rollbackTx() error {
	if !s.active {
		return nil
	}
	err := s.tx.Rollback()
	s.active = false
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (s *Session) resetAll() {
	for _, t := range s.order {
		t.ctl.Reset()
	}
}

func (s *Session) bind(name string, ctl controller, table any) {
	t := &boundTable{name: name, ctl: ctl, table: table}
	s.tables[name] = t
	s.order = append(s.order, t)
}
