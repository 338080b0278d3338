package executor

import (
	"context"
	"database/sql"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

// InsertOptions tunes Insert and InsertMany.
type InsertOptions struct {
	// Ignore skips rows that violate a unique key.
	Ignore bool
	// Upsert overwrites every column on a duplicate key (InsertMany).
	Upsert bool
	// Normalize fills every row out to the table's columns first.
	Normalize bool
}

// Select builds and runs a SELECT.
func (s *Session) Select(ctx context.Context, q sqlgen.SelectQuery) ([]map[string]any, error) {
	query, err := s.exec.builder.Select(s.scope, q)
	if err != nil {
		return nil, err
	}
	return s.cachedRows(ctx, query, q)
}

// SelectFullText builds and runs a full-text SELECT.
func (s *Session) SelectFullText(ctx context.Context, q sqlgen.SelectQuery, m sqlgen.FullText) ([]map[string]any, error) {
	query, err := s.exec.builder.SelectFullText(s.scope, q, m)
	if err != nil {
		return nil, err
	}
	return s.cachedRows(ctx, query, q)
}

// cachedRows serves query from the result cache when one is configured.
// Reads inside a transaction may see uncommitted rows and bypass it, as do
// statements whose WHERE clause reads tables that cannot be tracked.
func (s *Session) cachedRows(ctx context.Context, query string, q sqlgen.SelectQuery) ([]map[string]any, error) {
	results := s.exec.results
	if results == nil || s.inTx || !cacheable(q.Where) {
		return s.QueryRows(ctx, query)
	}

	key := s.exec.Substitute(query)
	if rows, ok := results.Get(key); ok {
		s.log.Debug("result cache hit", "sql", key)
		return rows, nil
	}
	rows, err := s.QueryRows(ctx, query)
	if err != nil {
		return nil, err
	}
	results.Put(key, selectTables(q), rows)
	return rows, nil
}

// cacheable reports whether every table the WHERE clause reads is known.
// Raw SQL, functions and previous-statement subqueries may read any table.
func cacheable(where ast.ConditionSet) bool {
	for _, cond := range where.Conditions {
		switch cond.Operator {
		case ast.RawPredicate, ast.SubqueryEqualsLastQuery, ast.FunctionCall:
			return false
		}
		switch cond.Value.(type) {
		case ast.RawFunction, ast.LastQuery:
			return false
		}
	}
	return true
}

func selectTables(q sqlgen.SelectQuery) []string {
	if q.Join == nil {
		return []string{logicalName(q.From.Name)}
	}
	tables := make([]string, len(q.Join.Tables))
	for i, ref := range q.Join.Tables {
		tables[i] = logicalName(ref.Name)
	}
	return tables
}

// prepare encodes composite values and, when asked, normalizes the rows.
func (s *Session) prepare(ctx context.Context, table string, rows ast.RowSet, normalize bool) (ast.RowSet, error) {
	out := make(ast.RowSet, len(rows))
	for i, row := range rows {
		resolved, err := s.exec.codec.ResolveRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	if !normalize {
		return out, nil
	}
	return s.exec.schema.NormalizeAll(ctx, logicalName(table), out)
}

// Insert writes a single row.
func (s *Session) Insert(ctx context.Context, table string, row ast.Row, opts InsertOptions) (sql.Result, error) {
	rows, err := s.prepare(ctx, table, ast.RowSet{row}, opts.Normalize)
	if err != nil {
		return nil, err
	}
	query, err := s.exec.builder.Insert(s.scope, table, rows[0], opts.Ignore)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "insert", table, query)
}

// InsertMany writes rows in one statement. Without Normalize every row must
// name the same columns, otherwise sqlgen.ErrColumnMismatch is returned.
func (s *Session) InsertMany(ctx context.Context, table string, rows ast.RowSet, opts InsertOptions) (sql.Result, error) {
	rows, err := s.prepare(ctx, table, rows, opts.Normalize)
	if err != nil {
		return nil, err
	}
	var conflict []string
	if opts.Upsert {
		if conflict, err = s.conflictKeys(ctx, table); err != nil {
			return nil, err
		}
	}
	query, err := s.exec.builder.InsertMany(s.scope, table, rows, opts.Upsert, opts.Ignore, conflict...)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "insert", table, query)
}

// InsertOrUpdate writes row, overwriting it on a duplicate key.
func (s *Session) InsertOrUpdate(ctx context.Context, table string, row ast.Row) (sql.Result, error) {
	rows, err := s.prepare(ctx, table, ast.RowSet{row}, false)
	if err != nil {
		return nil, err
	}
	conflict, err := s.conflictKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	query, err := s.exec.builder.InsertOrUpdate(s.scope, table, rows[0], conflict...)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "upsert", table, query)
}

// Replace writes row with REPLACE INTO.
func (s *Session) Replace(ctx context.Context, table string, row ast.Row) (sql.Result, error) {
	rows, err := s.prepare(ctx, table, ast.RowSet{row}, false)
	if err != nil {
		return nil, err
	}
	query, err := s.exec.builder.Replace(s.scope, table, rows[0])
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "replace", table, query)
}

// Update runs an UPDATE and returns the number of affected rows.
func (s *Session) Update(ctx context.Context, table string, set ast.Row, where ast.ConditionSet, limit int) (int64, error) {
	resolved, err := s.exec.codec.ResolveRow(set)
	if err != nil {
		return 0, err
	}
	query, err := s.exec.builder.Update(s.scope, table, resolved, where, limit)
	if err != nil {
		return 0, err
	}
	return s.affected(ctx, "update", table, query)
}

// Delete runs a DELETE and returns the number of affected rows.
func (s *Session) Delete(ctx context.Context, table string, where ast.ConditionSet, limit int) (int64, error) {
	query, err := s.exec.builder.Delete(s.scope, table, where, limit)
	if err != nil {
		return 0, err
	}
	return s.affected(ctx, "delete", table, query)
}

// conflictKeys returns the primary key columns of table when the dialect's
// upsert needs a conflict target.
func (s *Session) conflictKeys(ctx context.Context, table string) ([]string, error) {
	if !s.exec.builder.Dialect().UpsertTarget() {
		return nil, nil
	}
	cols, err := s.exec.schema.Columns(ctx, logicalName(table))
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, col := range cols {
		if col.PrimaryKey {
			keys = append(keys, col.Name)
		}
	}
	return keys, nil
}

// write executes a statement that modifies table.
func (s *Session) write(ctx context.Context, kind, table, query string) (sql.Result, error) {
	res, err := s.execute(ctx, kind, query)
	if err != nil {
		return nil, err
	}
	s.written(table)
	return res, nil
}

func (s *Session) affected(ctx context.Context, kind, table, query string) (int64, error) {
	res, err := s.write(ctx, kind, table, query)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &DriverError{Op: kind, Query: query, Err: err}
	}
	return n, nil
}

// DropTable drops a table and forgets its cached columns.
func (s *Session) DropTable(ctx context.Context, table string) error {
	query, err := s.exec.builder.DropTable(s.scope, table)
	if err != nil {
		return err
	}
	return s.ddl(ctx, table, query)
}

// TruncateTable empties a table.
func (s *Session) TruncateTable(ctx context.Context, table string) error {
	query, err := s.exec.builder.TruncateTable(s.scope, table)
	if err != nil {
		return err
	}
	_, err = s.write(ctx, "ddl", table, query)
	return err
}

// CreateTable creates a table if it does not exist.
func (s *Session) CreateTable(ctx context.Context, table string, def ast.TableDef) error {
	query, err := s.exec.builder.CreateTable(s.scope, table, def)
	if err != nil {
		return err
	}
	return s.ddl(ctx, table, query)
}

func (s *Session) ddl(ctx context.Context, table, query string) error {
	if _, err := s.write(ctx, "ddl", table, query); err != nil {
		return err
	}
	s.exec.schema.Invalidate(logicalName(table))
	return nil
}
