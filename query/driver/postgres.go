package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

type postgresDriver struct {
	base
}

func openPostgres(cfg Config) (*postgresDriver, error) {
	connector, err := pq.NewConnector(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	configurePool(db, cfg)
	return &postgresDriver{base{DB: db, dialect: sqlgen.Postgres}}, nil
}

func (d *postgresDriver) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON kcu.constraint_name = tc.constraint_name
		            AND kcu.table_schema = tc.table_schema
		            AND kcu.table_name = tc.table_name
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_schema = c.table_schema
		             AND tc.table_name = c.table_name
		             AND kcu.column_name = c.column_name
		       ) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		  AND c.table_name = $1
		ORDER BY c.ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	return scanColumns(rows, func(rows *sql.Rows) (ast.ColumnDescriptor, error) {
		var (
			col        ast.ColumnDescriptor
			isNullable string
			def        sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &isNullable, &def, &col.PrimaryKey); err != nil {
			return col, err
		}
		col.Nullable = isNullable == "YES"
		if def.Valid && strings.HasPrefix(def.String, "nextval(") {
			col.AutoIncrement = true
		} else {
			col.Default = nullable(def)
		}
		return col, nil
	})
}

func (d *postgresDriver) Version(ctx context.Context) (string, error) {
	return d.scalarString(ctx, "SHOW server_version")
}
