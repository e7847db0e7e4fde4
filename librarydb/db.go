package librarydb

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/internal/dbinfra"
	"github.com/goliatone/go-library-catalog/sessioncache"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Options locates the database.
type Options struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string
	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string
	// MaxOpenConns caps the postgres pool.
	MaxOpenConns int
	// LogQueries registers a hook logging every statement at debug level.
	LogQueries bool
	// Logger is used for lifecycle and query logs.
	Logger *zap.Logger
}

// DB is an open catalog database.
type DB struct {
	bun     *bun.DB
	manager *sessioncache.Manager
	opts    Options
	logger  *zap.Logger
}

// Connect opens the database at opts.DSN, creating it when needed, and makes
// sure every catalog table exists. Existing tables are never altered.
func Connect(ctx context.Context, opts Options, storeOpts ...sessioncache.Option) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = dbinfra.DriverSQLite
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := dbinfra.Open(dbinfra.Options{
		Driver:       opts.Driver,
		DSN:          opts.DSN,
		MaxOpenConns: opts.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	if opts.LogQueries {
		db.AddQueryHook(dbinfra.NewQueryLogger(logger))
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("librarydb: ping: %w", err), db.Close())
	}

	d := &DB{
		bun:     db,
		manager: sessioncache.NewManager(db, append([]sessioncache.Option{sessioncache.WithLogger(logger)}, storeOpts...)...),
		opts:    opts,
		logger:  logger,
	}
	if err := d.createTables(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	logger.Info("catalog database ready", zap.String("driver", opts.Driver), zap.String("location", d.String()))
	return d, nil
}

// Scope runs fn in a new store scope. See sessioncache.Manager.Scope.
func (d *DB) Scope(ctx context.Context, fn func(ctx context.Context, s *sessioncache.Store) error) error {
	return d.manager.Scope(ctx, fn)
}

// Manager returns the scope manager.
func (d *DB) Manager() *sessioncache.Manager { return d.manager }

// Index returns the committed index of kind read in its own scope.
func (d *DB) Index(ctx context.Context, kind catalog.Kind) (catalog.Index, error) {
	var idx catalog.Index
	err := d.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		var err error
		idx, err = s.Index(ctx, kind)
		return err
	})
	return idx, err
}

// Clear drops and recreates every catalog table, deleting all rows.
func (d *DB) Clear(ctx context.Context) error {
	kinds := catalog.Kinds()
	for i := len(kinds) - 1; i >= 0; i-- {
		model := kinds[i].New()
		if _, err := d.bun.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return &catalog.PersistenceError{Op: "drop table", Kind: kinds[i], Err: err}
		}
	}
	d.logger.Warn("catalog tables dropped", zap.String("location", d.String()))
	return d.createTables(ctx)
}

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.bun.PingContext(ctx)
}

// Bun exposes the underlying bun database.
func (d *DB) Bun() *bun.DB { return d.bun }

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.bun.Close()
}

func (d *DB) String() string {
	if d.opts.Driver == dbinfra.DriverPostgres {
		return "LibraryDatabase(postgres)"
	}
	return fmt.Sprintf("LibraryDatabase(%s)", d.opts.DSN)
}

func (d *DB) createTables(ctx context.Context) error {
	for _, kind := range catalog.Kinds() {
		q := d.bun.NewCreateTable().Model(kind.New()).IfNotExists()
		for _, rel := range catalog.RelationsOf(kind) {
			q = q.ForeignKey(fmt.Sprintf("(%q) REFERENCES %q (%q) ON DELETE SET NULL",
				rel.Column, rel.Target.Table(), "id"))
		}
		if _, err := q.Exec(ctx); err != nil {
			return &catalog.PersistenceError{Op: "create table", Kind: kind, Err: err}
		}
	}
	return nil
}
