package tablecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/cache"
)

// Manager opens sessions against one database and holds the per-table cache
// configuration plus the shared tiers of shared read-only tables.
// A Manager is safe for concurrent use; the sessions it opens are not.
type Manager struct {
	db        *bun.DB
	logger    logrus.FieldLogger
	observer  cache.Observer
	configs   cache.ConfigFile
	sharedCfg cache.SharedConfig
	txOpts    *sql.TxOptions
	shared    *xsync.MapOf[string, any]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager, its sessions and caches.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithObserver reports cache events to observer.
func WithObserver(observer cache.Observer) Option {
	return func(m *Manager) { m.observer = observer }
}

// WithConfigFile installs per-table configuration, usually from cache.ParseConfigFile.
func WithConfigFile(file cache.ConfigFile) Option {
	return func(m *Manager) { m.configs = file }
}

// WithTableConfig sets the configuration of one table.
func WithTableConfig(table string, cfg cache.Config) Option {
	return func(m *Manager) {
		if m.configs.Tables == nil {
			m.configs.Tables = make(map[string]cache.Config)
		}
		m.configs.Tables[table] = cfg
	}
}

// WithDefaultConfig sets the configuration of tables without their own entry.
func WithDefaultConfig(cfg cache.Config) Option {
	return func(m *Manager) { m.configs.Default = cfg }
}

// WithSharedConfig sizes the tiers of shared read-only tables.
func WithSharedConfig(cfg cache.SharedConfig) Option {
	return func(m *Manager) { m.sharedCfg = cfg }
}

// WithTxOptions sets the options used to begin session transactions.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(m *Manager) { m.txOpts = opts }
}

// NewManager creates a manager for db.
func NewManager(db *bun.DB, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("tablecache: nil database")
	}

	m := &Manager{
		db:        db,
		logger:    logrus.StandardLogger(),
		configs:   cache.ConfigFile{Default: cache.DefaultConfig()},
		sharedCfg: cache.DefaultSharedConfig(),
		shared:    xsync.NewMapOf[string, any](),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.configs.Default.IsZero() {
		m.configs.Default = cache.DefaultConfig()
	}
	m.configs.Default = m.configs.Default.WithDefaults()
	if err := m.configs.Default.Validate(); err != nil {
		return nil, err
	}
	if err := m.sharedCfg.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// DB returns the underlying database.
func (m *Manager) DB() *bun.DB { return m.db }

// Config returns the cache configuration for table.
func (m *Manager) Config(table string) cache.Config {
	return m.configs.For(table).WithDefaults()
}

// Open starts a session. Its transaction begins on first use.
func (m *Manager) Open(ctx context.Context) *Session {
	return newSession(m)
}

// RunInSession opens a session, runs fn, commits when fn succeeds and rolls
// back otherwise. The session is always closed.
func (m *Manager) RunInSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) (err error) {
	s := m.Open(ctx)
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(WithSession(ctx, s), s); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return s.Commit(ctx)
}

// SharedLen reports how many entries the shared tier of table holds, or zero
// when the table has none.
func (m *Manager) SharedLen(table string) int {
	v, ok := m.shared.Load(table)
	if !ok {
		return 0
	}
	if tier, ok := v.(interface{ Len() int }); ok {
		return tier.Len()
	}
	return 0
}

func sharedTier[T any](m *Manager, table string) (cache.Tier[cache.Entry[T]], error) {
	var buildErr error
	v, _ := m.shared.LoadOrCompute(table, func() any {
		tier, err := cache.NewSharedTier[cache.Entry[T]](m.sharedCfg)
		if err != nil {
			buildErr = err
			return nil
		}
		return tier
	})
	if buildErr != nil {
		m.shared.Delete(table)
		return nil, buildErr
	}

	tier, ok := v.(cache.Tier[cache.Entry[T]])
	if !ok {
		return nil, fmt.Errorf("%w: shared tier %s holds %T", ErrTableTypeMismatch, table, v)
	}
	return tier, nil
}
