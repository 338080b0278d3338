package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

type mysqlDriver struct {
	base
}

func openMySQL(cfg Config) (*mysqlDriver, error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	// dates are compared against the null-date literal as text
	dsn.ParseTime = false

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	configurePool(db, cfg)
	return &mysqlDriver{base{DB: db, dialect: sqlgen.MySQL}}, nil
}

func (d *mysqlDriver) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, extra, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	return scanColumns(rows, func(rows *sql.Rows) (ast.ColumnDescriptor, error) {
		var (
			col        ast.ColumnDescriptor
			isNullable string
			def        sql.NullString
			extra      string
			key        string
		)
		if err := rows.Scan(&col.Name, &col.Type, &isNullable, &def, &extra, &key); err != nil {
			return col, err
		}
		col.Nullable = isNullable == "YES"
		col.Default = nullable(def)
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.PrimaryKey = key == "PRI"
		return col, nil
	})
}

func (d *mysqlDriver) Version(ctx context.Context) (string, error) {
	return d.scalarString(ctx, "SELECT VERSION()")
}
