package dbinfra

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePragmas are appended to sqlite DSNs that do not set any.
var DefaultSQLitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// Options selects and tunes the database connection.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is a file path (or ":memory:") for sqlite and a connection URL for postgres.
	DSN string
	// MaxOpenConns is ignored for sqlite, which always uses a single connection.
	MaxOpenConns int
}

// Open connects to the database described by opts and wraps it with bun.
func Open(opts Options) (*bun.DB, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(opts)
	case DriverPostgres:
		return openPostgres(opts)
	default:
		return nil, fmt.Errorf("dbinfra: unsupported driver %q", opts.Driver)
	}
}

func openSQLite(opts Options) (*bun.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("dbinfra: sqlite dsn is empty")
	}

	path := opts.DSN
	if file, _, _ := strings.Cut(strings.TrimPrefix(path, "file:"), "?"); isFilePath(file) {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("dbinfra: create dirs: %w", err)
			}
		}
	}

	sqldb, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("dbinfra: open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases alive.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func openPostgres(opts Options) (*bun.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("dbinfra: postgres dsn is empty")
	}
	sqldb, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("dbinfra: open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// SQLiteDSN appends DefaultSQLitePragmas to dsn unless it already has a query.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	params := make([]string, 0, len(DefaultSQLitePragmas))
	for _, p := range DefaultSQLitePragmas {
		params = append(params, "_pragma="+p)
	}
	return dsn + "?" + strings.Join(params, "&")
}

func isFilePath(p string) bool {
	return p != "" && p != ":memory:" && !strings.HasPrefix(p, ":")
}
