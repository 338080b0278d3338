// Package driver is the narrow interface the executor needs from a database
// backend, with adapters for MySQL, PostgreSQL and SQLite.
package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

// ErrUnsupportedProvider is returned by Open for unknown providers.
var ErrUnsupportedProvider = errors.New("unsupported database provider")

// Queryer issues statements. *sql.DB, *sql.Conn and *sql.Tx implement it.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver is a live backend connection pool plus the backend-specific
// knowledge the executor relies on.
type Driver interface {
	Queryer

	// BeginTx starts a real transaction.
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)

	// Conn pins a single connection, needed when session variables must
	// survive between statements.
	Conn(ctx context.Context) (*sql.Conn, error)

	// Dialect returns the escaping, null date, now and limit rules.
	Dialect() sqlgen.Dialect

	// Columns introspects the columns of a physical table.
	Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error)

	// Version returns the server version string.
	Version(ctx context.Context) (string, error)

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Close closes the pool.
	Close() error
}

// Config holds connection and pool settings.
type Config struct {
	Provider        string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns sensible pool settings.
func DefaultConfig() Config {
	return Config{
		Provider:        "mysql",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, cfg Config) (Driver, error) {
	var (
		drv Driver
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "mysql", "mariadb":
		drv, err = openMySQL(cfg)
	case "postgres", "postgresql":
		drv, err = openPostgres(cfg)
	case "sqlite", "sqlite3":
		drv, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if err := drv.Ping(ctx); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return drv, nil
}

// Wrap adapts an already opened pool.
func Wrap(db *sql.DB, provider string) (Driver, error) {
	switch strings.ToLower(provider) {
	case "mysql", "mariadb":
		return &mysqlDriver{base{DB: db, dialect: sqlgen.MySQL}}, nil
	case "postgres", "postgresql":
		return &postgresDriver{base{DB: db, dialect: sqlgen.Postgres}}, nil
	case "sqlite", "sqlite3":
		return &sqliteDriver{base{DB: db, dialect: sqlgen.SQLite}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

type base struct {
	*sql.DB
	dialect sqlgen.Dialect
}

func (b base) Dialect() sqlgen.Dialect {
	return b.dialect
}

func (b base) Ping(ctx context.Context) error {
	return b.PingContext(ctx)
}

func (b base) scalarString(ctx context.Context, query string) (string, error) {
	var v string
	if err := b.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func configurePool(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func scanColumns(rows *sql.Rows, scan func(*sql.Rows) (ast.ColumnDescriptor, error)) ([]ast.ColumnDescriptor, error) {
	defer rows.Close()
	var cols []ast.ColumnDescriptor
	for rows.Next() {
		col, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
