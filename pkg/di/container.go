package di

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-table-cache/cache"
	"github.com/goliatone/go-table-cache/pkg/metrics"
	"github.com/goliatone/go-table-cache/store"
	"github.com/goliatone/go-table-cache/tablecache"
)

// Container wires a tablecache.Manager together with its configuration,
// logger and metrics collector.
type Container struct {
	db      *bun.DB
	manager *tablecache.Manager
	metrics *metrics.Collector
	config  cache.ConfigFile
	logger  logrus.FieldLogger
}

type options struct {
	config     cache.ConfigFile
	configErr  error
	shared     cache.SharedConfig
	logger     logrus.FieldLogger
	registerer prometheus.Registerer
}

// Option configures a Container.
type Option func(*options)

// WithConfigYAML parses per-table cache configuration from data.
func WithConfigYAML(data []byte) Option {
	return func(o *options) {
		o.config, o.configErr = cache.ParseConfigFile(data)
	}
}

// WithConfigPath reads per-table cache configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(o *options) {
		data, err := os.ReadFile(path)
		if err != nil {
			o.configErr = fmt.Errorf("read cache config: %w", err)
			return
		}
		o.config, o.configErr = cache.ParseConfigFile(data)
	}
}

// WithConfig installs an already parsed configuration.
func WithConfig(file cache.ConfigFile) Option {
	return func(o *options) { o.config = file }
}

// WithSharedConfig sizes the shared tiers of shared read-only tables.
func WithSharedConfig(cfg cache.SharedConfig) Option {
	return func(o *options) { o.shared = cfg }
}

// WithLogger sets the logger handed to the manager.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer enables Prometheus metrics registered with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// NewContainer builds a container over db.
func NewContainer(db *bun.DB, opts ...Option) (*Container, error) {
	if db == nil {
		return nil, errors.New("di: nil database")
	}

	o := options{
		config: cache.ConfigFile{Default: cache.DefaultConfig()},
		shared: cache.DefaultSharedConfig(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.configErr != nil {
		return nil, o.configErr
	}

	managerOpts := []tablecache.Option{
		tablecache.WithLogger(o.logger),
		tablecache.WithConfigFile(o.config),
		tablecache.WithSharedConfig(o.shared),
	}

	var collector *metrics.Collector
	if o.registerer != nil {
		var err error
		if collector, err = metrics.NewCollector(o.registerer); err != nil {
			return nil, err
		}
		managerOpts = append(managerOpts, tablecache.WithObserver(collector))
	}

	manager, err := tablecache.NewManager(db, managerOpts...)
	if err != nil {
		return nil, err
	}

	return &Container{
		db:      db,
		manager: manager,
		metrics: collector,
		config:  o.config,
		logger:  o.logger,
	}, nil
}

// NewContainerWithDefaults builds a container with the default configuration
// and no metrics.
func NewContainerWithDefaults(db *bun.DB) (*Container, error) {
	return NewContainer(db)
}

// Open opens the database described by cfg and builds a container over it.
// The database is closed again when the container cannot be built.
func Open(cfg store.DBConfig, opts ...Option) (*Container, error) {
	db, err := store.OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	c, err := NewContainer(db, opts...)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return c, nil
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB { return c.db }

// Manager returns the singleton session manager.
func (c *Container) Manager() *tablecache.Manager { return c.manager }

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (c *Container) Metrics() *metrics.Collector { return c.metrics }

// Config returns the cache configuration used by the manager.
func (c *Container) Config() cache.ConfigFile { return c.config }

// Logger returns the container logger.
func (c *Container) Logger() logrus.FieldLogger { return c.logger }

// Close closes the database.
func (c *Container) Close() error { return c.db.Close() }
