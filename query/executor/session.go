package executor

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/satishbabariya/querykit/query/driver"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

// Session is the request-scoped side of the executor. It remembers the last
// built statement and counts its own statements. Not safe for concurrent use.
type Session struct {
	exec    *Executor
	id      string
	q       driver.Queryer
	counter *int64
	scope   *sqlgen.Scope
	log     *slog.Logger
	inTx    bool
}

// ID identifies the session in logs and observer records.
func (s *Session) ID() string { return s.id }

// Queries returns the number of statements this session executed.
func (s *Session) Queries() int64 { return *s.counter }

// Scope returns the builder scope of the session.
func (s *Session) Scope() *sqlgen.Scope { return s.scope }

// Executor returns the executor the session belongs to.
func (s *Session) Executor() *Executor { return s.exec }

// on returns a session sharing s's identity, scope and counter that runs
// statements through q.
func (s *Session) on(q driver.Queryer) *Session {
	child := *s
	child.q = q
	return &child
}

func (s *Session) observe(kind, query string, start time.Time, rows int64, err error) {
	*s.counter++
	s.exec.total.Add(1)

	elapsed := time.Since(start)
	if err != nil {
		s.log.Debug("statement failed", "kind", kind, "sql", query, "duration", elapsed, "error", err)
	} else {
		s.log.Debug("statement", "kind", kind, "sql", query, "duration", elapsed, "rows", rows)
	}
	if s.exec.observer != nil {
		s.exec.observer.Observe(QueryInfo{
			Session:  s.id,
			Kind:     kind,
			SQL:      query,
			Duration: elapsed,
			Rows:     rows,
			Err:      err,
		})
	}
}

// Execute runs a statement that returns no rows. The tables it touches are
// unknown, so the whole result cache is dropped.
func (s *Session) Execute(ctx context.Context, query string) (sql.Result, error) {
	res, err := s.execute(ctx, "exec", query)
	if err == nil {
		s.written()
	}
	return res, err
}

// written drops cached results of tables; no tables drops everything.
func (s *Session) written(tables ...string) {
	results := s.exec.results
	if results == nil {
		return
	}
	if len(tables) == 0 {
		results.Clear()
		return
	}
	for _, table := range tables {
		if n := results.InvalidateTable(logicalName(table)); n > 0 {
			s.log.Debug("result cache invalidated", "table", table, "entries", n)
		}
	}
}

func (s *Session) execute(ctx context.Context, kind, query string) (sql.Result, error) {
	query = s.exec.Substitute(query)
	start := time.Now()

	res, err := s.q.ExecContext(ctx, query)
	if err != nil {
		err = &DriverError{Op: kind, Query: query, Err: err}
		s.observe(kind, query, start, 0, err)
		return nil, err
	}
	affected, _ := res.RowsAffected()
	s.observe(kind, query, start, affected, nil)
	return res, nil
}

// query runs a statement and hands every row to fn as column names and
// driver values.
func (s *Session) query(ctx context.Context, kind, query string, fn func(cols []string, vals []any) error) error {
	query = s.exec.Substitute(query)
	start := time.Now()

	var n int64
	err := s.scan(ctx, query, func(cols []string, vals []any) error {
		n++
		return fn(cols, vals)
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	s.observe(kind, query, start, n, err)
	return err
}

func (s *Session) scan(ctx context.Context, query string, fn func(cols []string, vals []any) error) error {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return &DriverError{Op: "query", Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return &DriverError{Op: "query", Query: query, Err: err}
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return &DriverError{Op: "scan", Query: query, Err: err}
		}
		for i, v := range vals {
			vals[i] = plain(v)
		}
		if err := fn(cols, vals); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &DriverError{Op: "query", Query: query, Err: err}
	}
	return nil
}

// errStop ends a scan early without reporting an error.
var errStop = errors.New("stop")

// QueryScalar returns the first column of the first row, or nil when the
// result is empty.
func (s *Session) QueryScalar(ctx context.Context, query string) (any, error) {
	var out any
	err := s.query(ctx, "scalar", query, func(_ []string, vals []any) error {
		if len(vals) > 0 {
			out = vals[0]
		}
		return errStop
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryColumn returns the first column of every row.
func (s *Session) QueryColumn(ctx context.Context, query string) ([]any, error) {
	var out []any
	err := s.query(ctx, "column", query, func(_ []string, vals []any) error {
		if len(vals) > 0 {
			out = append(out, vals[0])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryRow returns the first row keyed by column name, or nil when the
// result is empty.
func (s *Session) QueryRow(ctx context.Context, query string) (map[string]any, error) {
	var out map[string]any
	err := s.query(ctx, "row", query, func(cols []string, vals []any) error {
		out = record(cols, vals)
		return errStop
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryRows returns every row keyed by column name.
func (s *Session) QueryRows(ctx context.Context, query string) ([]map[string]any, error) {
	var out []map[string]any
	err := s.query(ctx, "rows", query, func(cols []string, vals []any) error {
		out = append(out, record(cols, vals))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryObjects scans every row into a new element of *dest, which must be
// a pointer to a slice of structs or struct pointers. Fields are matched by
// their db tag or the snake_case form of their name.
func (s *Session) QueryObjects(ctx context.Context, query string, dest any) error {
	sink, err := newSliceSink(dest)
	if err != nil {
		return err
	}
	err = s.query(ctx, "objects", query, sink.add)
	if err != nil {
		return err
	}
	sink.commit()
	return nil
}

func record(cols []string, vals []any) map[string]any {
	m := make(map[string]any, len(cols))
	for i, col := range cols {
		m[col] = vals[i]
	}
	return m
}

// plain turns driver byte slices into strings.
func plain(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// TransactionBegin does nothing but log a warning; no transaction is
// started, so TransactionCommit and TransactionRollback act on whatever the
// connection is in. Use InTx for a real transaction.
func (s *Session) TransactionBegin(ctx context.Context) error {
	s.log.Warn("transaction begin is a no-op; use InTx for a real transaction")
	return nil
}

// TransactionCommit issues COMMIT.
func (s *Session) TransactionCommit(ctx context.Context) error {
	_, err := s.execute(ctx, "commit", "COMMIT")
	return err
}

// TransactionRollback issues ROLLBACK.
func (s *Session) TransactionRollback(ctx context.Context) error {
	_, err := s.execute(ctx, "rollback", "ROLLBACK")
	return err
}

// InTx runs fn inside a real transaction. The session passed to fn shares
// this session's scope and counter. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func (s *Session) InTx(ctx context.Context, fn func(tx *Session) error) error {
	tx, err := s.exec.driver.BeginTx(ctx, nil)
	if err != nil {
		return &DriverError{Op: "begin", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txs := s.on(tx)
	txs.inTx = true
	if err := fn(txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, &DriverError{Op: "rollback", Err: rbErr})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &DriverError{Op: "commit", Err: err}
	}
	// other sessions may have cached rows that predate the commit
	s.written()
	return nil
}
