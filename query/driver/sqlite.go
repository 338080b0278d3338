package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

type sqliteDriver struct {
	base
}

// openSQLite opens "sqlite3" through the cgo driver and "sqlite" through
// the pure Go one.
func openSQLite(cfg Config) (*sqliteDriver, error) {
	name := strings.ToLower(cfg.Provider)
	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(db, cfg)
	if isMemoryDSN(cfg.DSN) {
		// every connection of an in-memory database sees its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	return &sqliteDriver{base{DB: db, dialect: sqlgen.SQLite}}, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (d *sqliteDriver) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	rows, err := d.QueryContext(ctx, "SELECT name, type, \"notnull\", dflt_value, pk FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	keys := 0
	cols, err := scanColumns(rows, func(rows *sql.Rows) (ast.ColumnDescriptor, error) {
		var (
			col     ast.ColumnDescriptor
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &def, &pk); err != nil {
			return col, err
		}
		col.Nullable = notNull == 0
		col.Default = nullable(def)
		col.AutoIncrement = pk == 1 && strings.EqualFold(col.Type, "INTEGER")
		col.PrimaryKey = pk > 0
		if pk > 0 {
			keys++
		}
		return col, nil
	})
	if err != nil {
		return nil, err
	}

	// a composite primary key never aliases the rowid
	if keys > 1 {
		for i := range cols {
			cols[i].AutoIncrement = false
		}
	}
	return cols, nil
}

func (d *sqliteDriver) Version(ctx context.Context) (string, error) {
	return d.scalarString(ctx, "SELECT sqlite_version()")
}
