package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-library-catalog/cache"
	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/config"
	"github.com/goliatone/go-library-catalog/httpapi"
	"github.com/goliatone/go-library-catalog/internal/observability"
	"github.com/goliatone/go-library-catalog/librarydb"
	"github.com/goliatone/go-library-catalog/readcache"
	"github.com/goliatone/go-library-catalog/sessioncache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Container wires the application from its configuration and owns the
// singletons it builds: logger, metrics, database, read cache and HTTP
// server.
type Container struct {
	config        config.Config
	logger        *zap.Logger
	metrics       *observability.Metrics
	db            *librarydb.DB
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	reader        readcache.Reader
	server        *httpapi.Server
	version       string
}

// Option adjusts how a Container is built.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	version  string
}

// WithLogger uses l instead of building one from the log section.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers metrics on reg instead of a new registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithVersion sets the version reported by the home route.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// NewContainer validates cfg, connects to the database and wires the rest.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("di: invalid config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = observability.NewLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
			return nil, err
		}
	}
	registry := o.registry
	if registry == nil {
		registry = observability.NewRegistry()
	}
	metrics := observability.NewMetrics(registry)

	db, err := librarydb.Connect(ctx, librarydb.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogQueries:   cfg.Database.LogQueries,
		Logger:       logger.Named("db"),
	}, sessioncache.WithObserver(metrics))
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		db:            db,
		keySerializer: cache.NewDefaultKeySerializer(),
		version:       o.version,
	}

	var reader readcache.Reader = readcache.NewScopedReader(db)
	if cfg.Cache.Enabled {
		cc := cfg.Cache
		cc.NotFound = catalog.ErrNotFound
		svc, err := cache.NewCacheService(cc)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
		c.cacheService = svc
		reader = readcache.NewCachedReader(reader, svc, c.keySerializer,
			readcache.WithObserver(metrics),
			readcache.WithLogger(logger.Named("readcache")),
		)
	}
	c.reader = reader

	c.server = httpapi.New(db, reader,
		httpapi.WithLogger(logger.Named("http")),
		httpapi.WithRequestObserver(metrics),
		httpapi.WithMetricsHandler(metrics.Handler()),
		httpapi.WithHealthCheck(db.Ping),
		httpapi.WithVersion(o.version),
	)
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the process logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Metrics returns the Prometheus metrics.
func (c *Container) Metrics() *observability.Metrics { return c.metrics }

// DB returns the catalog database.
func (c *Container) DB() *librarydb.DB { return c.db }

// CacheService returns the read cache service, nil when the cache is disabled.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the key serializer used by the read cache.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Reader returns the reader serving the HTTP read routes.
func (c *Container) Reader() readcache.Reader { return c.reader }

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server { return c.server }

// Version returns the application version.
func (c *Container) Version() string { return c.version }

// Close releases the database and flushes the logger.
func (c *Container) Close() error {
	err := c.db.Close()
	_ = c.logger.Sync()
	return err
}
