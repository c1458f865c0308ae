package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/cache"
	"github.com/goliatone/go-table-cache/store"
)

type mockAccountRepository struct {
	mu      sync.Mutex
	records map[string]*account
	calls   []string
	tx      []bun.IDB
}

func newMockAccountRepository(seed ...*account) *mockAccountRepository {
	m := &mockAccountRepository{records: make(map[string]*account)}
	for _, a := range seed {
		m.records[store.DefaultID(accountKey(a))] = a
	}
	return m
}

func (m *mockAccountRepository) track(call string, tx bun.IDB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	m.tx = append(m.tx, tx)
}

func (m *mockAccountRepository) GetByIDTx(_ context.Context, tx bun.IDB, id string, _ ...repository.SelectCriteria) (*account, error) {
	m.track("GetByIDTx:"+id, tx)
	if a, ok := m.records[id]; ok {
		return a, nil
	}
	return nil, goerrors.New("account not found", goerrors.CategoryNotFound)
}

func (m *mockAccountRepository) CreateTx(_ context.Context, tx bun.IDB, record *account, _ ...repository.InsertCriteria) (*account, error) {
	m.track("CreateTx:"+store.DefaultID(accountKey(record)), tx)
	m.records[store.DefaultID(accountKey(record))] = record
	return record, nil
}

func (m *mockAccountRepository) UpdateTx(_ context.Context, tx bun.IDB, record *account, _ ...repository.UpdateCriteria) (*account, error) {
	m.track("UpdateTx:"+store.DefaultID(accountKey(record)), tx)
	m.records[store.DefaultID(accountKey(record))] = record
	return record, nil
}

func (m *mockAccountRepository) DeleteTx(_ context.Context, tx bun.IDB, record *account) error {
	m.track("DeleteTx:"+store.DefaultID(accountKey(record)), tx)
	delete(m.records, store.DefaultID(accountKey(record)))
	return nil
}

func TestRepositoryStore_RoutesThroughConn(t *testing.T) {
	ctx := context.Background()
	repo := newMockAccountRepository(&account{ID: 1, Name: "alice"})

	var conn bun.IDB = &bun.DB{}
	s := store.NewRepositoryStore[*account](repo, store.Static(conn), nil, newAccount)

	got, found, err := s.Load(ctx, cache.NewKey(int64(1)))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", got.Name)

	_, found, err = s.Load(ctx, cache.NewKey(int64(2)))
	require.NoError(t, err)
	assert.False(t, found, "not found category maps to a miss")

	require.NoError(t, s.Insert(ctx, &account{ID: 2, Name: "bob"}))
	require.NoError(t, s.Update(ctx, &account{ID: 1, Name: "alice b"}))
	require.NoError(t, s.Delete(ctx, cache.NewKey(int64(2))))

	assert.Equal(t, []string{
		"GetByIDTx:1",
		"GetByIDTx:2",
		"CreateTx:2",
		"UpdateTx:1",
		"DeleteTx:2",
	}, repo.calls)
	for _, tx := range repo.tx {
		assert.Same(t, conn, tx)
	}
}

func TestRepositoryStore_ConnError(t *testing.T) {
	boom := errors.New("no connection")
	conn := store.ConnFunc(func(context.Context) (bun.IDB, error) { return nil, boom })
	s := store.NewRepositoryStore[*account](newMockAccountRepository(), conn, nil, newAccount)

	_, _, err := s.Load(context.Background(), cache.NewKey(int64(1)))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Insert(context.Background(), &account{ID: 1}), boom)
}

func TestDefaultID(t *testing.T) {
	assert.Equal(t, "7", store.DefaultID(cache.NewKey(7)))
	assert.Equal(t, "acme:42", store.DefaultID(cache.NewKey("acme", 42)))
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "row not found", err: store.ErrRowNotFound, want: true},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), store.ErrRowNotFound), want: true},
		{name: "go-errors not found", err: goerrors.New("missing", goerrors.CategoryNotFound), want: true},
		{name: "go-errors other", err: goerrors.New("bad", goerrors.CategoryInternal), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.IsNotFound(tt.err))
		})
	}
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	_, err := store.OpenDB(store.DBConfig{Driver: "oracle"})
	assert.ErrorIs(t, err, store.ErrUnsupportedDriver)
}
