package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/cache"
	"github.com/satishbabariya/querykit/query/driver"
	"github.com/satishbabariya/querykit/query/executor"
	"github.com/satishbabariya/querykit/query/schema"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

type recorder struct {
	mu    sync.Mutex
	infos []executor.QueryInfo
}

func (r *recorder) Observe(info executor.QueryInfo) {
	r.mu.Lock()
	r.infos = append(r.infos, info)
	r.mu.Unlock()
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.infos))
	for i, info := range r.infos {
		kinds[i] = info.Kind
	}
	return kinds
}

const itemsTable = `CREATE TABLE #__items (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT 'none',
	hits INTEGER NOT NULL DEFAULT 0,
	attribs TEXT
)`

func newExecutor(t *testing.T, obs executor.Observer) *executor.Executor {
	t.Helper()
	return newExecutorWith(t, executor.Options{Observer: obs})
}

func newExecutorWith(t *testing.T, opts executor.Options) *executor.Executor {
	t.Helper()
	cfg := driver.DefaultConfig()
	cfg.Provider = "sqlite"
	cfg.DSN = ":memory:"

	drv, err := driver.Open(context.Background(), cfg)
	require.NoError(t, err)

	opts.Prefix = "qk_"
	exec := executor.New(drv, opts)
	t.Cleanup(func() { exec.Close() })
	return exec
}

func seedItems(t *testing.T, s *executor.Session) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Execute(ctx, itemsTable)
	require.NoError(t, err)

	res, err := s.InsertMany(ctx, "items", ast.ParseRows([]map[string]any{
		{"title": "a", "hits": 5},
		{"title": "b"},
		{"title": "c", "attribs": map[string]any{"k": "v"}},
	}), executor.InsertOptions{Normalize: true})
	require.NoError(t, err)

	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestInsertManyNormalizes(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	rows, err := s.QueryRows(ctx, "SELECT id, title, body, hits, attribs FROM #__items ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, map[string]any{"id": int64(1), "title": "a", "body": "none", "hits": int64(5), "attribs": ""}, rows[0])
	assert.Equal(t, int64(0), rows[1]["hits"])
	assert.Equal(t, `json://{"k":"v"}`, rows[2]["attribs"])

	decoded, err := exec.Codec().Decode(rows[2]["attribs"].(string))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, decoded)
}

func TestInsertManyWithoutNormalizeRejectsMixedRows(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	_, err := s.Execute(ctx, itemsTable)
	require.NoError(t, err)

	_, err = s.InsertMany(ctx, "items", ast.ParseRows([]map[string]any{
		{"title": "a", "hits": 1},
		{"title": "b"},
	}), executor.InsertOptions{})
	assert.ErrorIs(t, err, sqlgen.ErrColumnMismatch)
}

func TestQueryHelpers(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	count, err := s.QueryScalar(ctx, "SELECT COUNT(*) FROM #__items")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	titles, err := s.QueryColumn(ctx, "SELECT title FROM #__items ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, titles)

	row, err := s.QueryRow(ctx, "SELECT title FROM #__items WHERE hits > 1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "a"}, row)

	row, err = s.QueryRow(ctx, "SELECT title FROM #__items WHERE id = 99")
	require.NoError(t, err)
	assert.Nil(t, row)

	scalar, err := s.QueryScalar(ctx, "SELECT title FROM #__items WHERE id = 99")
	require.NoError(t, err)
	assert.Nil(t, scalar)

	_, err = s.QueryRows(ctx, "SELECT nope FROM #__items")
	require.ErrorIs(t, err, executor.ErrDriver)
	var de *executor.DriverError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Query, "qk_items")
}

type item struct {
	ID      int64 `db:"id"`
	Title   string
	Hits    int
	Attribs *string
	Ignored string `db:"-"`
}

func TestQueryObjects(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	var items []item
	require.NoError(t, s.QueryObjects(ctx, "SELECT id, title, hits, attribs FROM #__items ORDER BY id", &items))
	require.Len(t, items, 3)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "a", items[0].Title)
	assert.Equal(t, 5, items[0].Hits)
	require.NotNil(t, items[2].Attribs)
	assert.Equal(t, `json://{"k":"v"}`, *items[2].Attribs)

	var ptrs []*item
	require.NoError(t, s.QueryObjects(ctx, "SELECT title FROM #__items WHERE id = 2", &ptrs))
	require.Len(t, ptrs, 1)
	assert.Equal(t, "b", ptrs[0].Title)

	var bad []int
	assert.Error(t, s.QueryObjects(ctx, "SELECT id FROM #__items", &bad))
	assert.Error(t, s.QueryObjects(ctx, "SELECT id FROM #__items", items))
}

func TestQueryObjectsReadsNullDate(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE #__events (id INTEGER PRIMARY KEY, name TEXT NOT NULL, created DATETIME NOT NULL)")
	require.NoError(t, err)
	_, err = s.Insert(ctx, "events", ast.ParseRow(map[string]any{"name": "unset"}), executor.InsertOptions{Normalize: true})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "events", ast.ParseRow(map[string]any{"name": "set", "created": "2024-05-01 10:00:00"}), executor.InsertOptions{})
	require.NoError(t, err)

	type event struct {
		Name    string
		Created time.Time `db:"created"`
	}
	var events []event
	require.NoError(t, s.QueryObjects(ctx, "SELECT name, created FROM #__events ORDER BY id", &events))
	require.Len(t, events, 2)
	assert.True(t, events[0].Created.IsZero())
	assert.True(t, events[1].Created.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestUpdateDeleteAndSelect(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	n, err := s.Update(ctx, "items", ast.ParseRow(map[string]any{"hits": "++"}), ast.Where(ast.Eq("title", "a")), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Update(ctx, "items", ast.ParseRow(map[string]any{"body": "edited"}), ast.ConditionSet{}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := s.Select(ctx, sqlgen.SelectQuery{
		Columns: []string{"title", "hits", "body"},
		From:    ast.Table("items"),
		Where:   ast.Where(ast.Condition{Column: "hits", Operator: ast.Between, Value: ast.Closed(1, 10)}),
		OrderBy: "hits.num.desc",
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"title": "a", "hits": int64(6), "body": "edited"}}, rows)

	n, err = s.Delete(ctx, "items", ast.Where(ast.Eq("title", "c")), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.QueryScalar(ctx, "SELECT COUNT(*) FROM #__items")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteReferringToPreviousSelect(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	_, err := s.Select(ctx, sqlgen.SelectQuery{
		Columns: []string{"id"},
		From:    ast.Table("items"),
		Where:   ast.Where(ast.Eq("title", "b")),
	})
	require.NoError(t, err)

	set, err := ast.ParseConditions(map[string]any{"id": ast.CurrentValue}, ast.And)
	require.NoError(t, err)
	n, err := s.Delete(ctx, "items", set, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// a fresh session has no previous statement
	_, err = exec.Session().Delete(ctx, "items", set, 0)
	assert.ErrorIs(t, err, sqlgen.ErrNoPreviousQuery)
}

func TestValidWindowUsesNullDate(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	_, err := s.Execute(ctx, "CREATE TABLE #__banners (id INTEGER PRIMARY KEY, name TEXT, valid_until TEXT)")
	require.NoError(t, err)
	nullDate := exec.Driver().Dialect().NullDate()
	_, err = s.InsertMany(ctx, "banners", ast.ParseRows([]map[string]any{
		{"name": "forever", "valid_until": nullDate},
		{"name": "future", "valid_until": "2999-01-01 00:00:00"},
		{"name": "expired", "valid_until": "2000-01-01 00:00:00"},
	}), executor.InsertOptions{})
	require.NoError(t, err)

	valid, err := exec.Builder().ValidCondition(sqlgen.Validity{Until: "valid_until"})
	require.NoError(t, err)

	names, err := s.Select(ctx, sqlgen.SelectQuery{
		Columns: []string{"name"},
		From:    ast.Table("banners"),
		Where:   ast.Where(valid),
		OrderBy: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "forever"}, {"name": "future"}}, names)
}

func TestCounters(t *testing.T) {
	rec := &recorder{}
	exec := newExecutor(t, rec)
	ctx := context.Background()

	first, second := exec.Session(), exec.Session()
	assert.NotEqual(t, first.ID(), second.ID())

	_, err := first.Execute(ctx, itemsTable)
	require.NoError(t, err)
	_, err = first.QueryScalar(ctx, "SELECT COUNT(*) FROM #__items")
	require.NoError(t, err)
	_, err = second.QueryRows(ctx, "SELECT * FROM #__missing")
	require.Error(t, err)

	assert.Equal(t, int64(2), first.Queries())
	assert.Equal(t, int64(1), second.Queries())
	assert.Equal(t, int64(3), exec.TotalQueries())

	assert.Equal(t, []string{"exec", "scalar", "rows"}, rec.kinds())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, first.ID(), rec.infos[0].Session)
	assert.Contains(t, rec.infos[1].SQL, "FROM qk_items")
	assert.Equal(t, int64(1), rec.infos[1].Rows)
	assert.ErrorIs(t, rec.infos[2].Err, executor.ErrDriver)
}

func TestInTx(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	_, err := s.Execute(ctx, itemsTable)
	require.NoError(t, err)
	insert := func(tx *executor.Session, title string) error {
		_, err := tx.Insert(ctx, "items", ast.ParseRow(map[string]any{"title": title}), executor.InsertOptions{})
		return err
	}
	count := func() int64 {
		n, err := s.QueryScalar(ctx, "SELECT COUNT(*) FROM #__items")
		require.NoError(t, err)
		return n.(int64)
	}

	require.NoError(t, s.InTx(ctx, func(tx *executor.Session) error {
		return insert(tx, "committed")
	}))
	assert.Equal(t, int64(1), count())

	abort := errors.New("abort")
	err = s.InTx(ctx, func(tx *executor.Session) error {
		require.NoError(t, insert(tx, "rolled back"))
		return abort
	})
	assert.ErrorIs(t, err, abort)
	assert.Equal(t, int64(1), count())

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(tx *executor.Session) error {
			require.NoError(t, insert(tx, "panicked"))
			panic("boom")
		})
	})
	assert.Equal(t, int64(1), count())

	// statements inside the transaction count towards the session
	assert.Equal(t, int64(7), s.Queries())
}

func TestInTxKeepsCallbackErrorWhenRollbackFails(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	abort := errors.New("abort")
	err := s.InTx(ctx, func(tx *executor.Session) error {
		// ends the transaction early so the rollback has nothing to undo
		require.NoError(t, tx.TransactionCommit(ctx))
		return abort
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, abort)
	assert.ErrorIs(t, err, executor.ErrDriver)

	var driverErr *executor.DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "rollback", driverErr.Op)
}

func TestTransactionStatements(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	require.NoError(t, s.TransactionBegin(ctx))
	assert.ErrorIs(t, s.TransactionCommit(ctx), executor.ErrDriver)
	assert.ErrorIs(t, s.TransactionRollback(ctx), executor.ErrDriver)
}

func TestSchemaFollowsDDL(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	require.NoError(t, s.CreateTable(ctx, "notes", ast.TableDef{
		Columns: []ast.ColumnDef{
			{Name: "id", Type: "INTEGER"},
			{Name: "body", Type: "TEXT", Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}))

	cols, err := exec.Columns(ctx, "#__notes")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.True(t, cols[0].AutoIncrement)
	assert.Equal(t, []string{"notes"}, exec.Schema().Tables())

	_, err = s.Execute(ctx, "ALTER TABLE #__notes ADD COLUMN title TEXT")
	require.NoError(t, err)
	cols, err = exec.Columns(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, cols, 2)
	cols, err = exec.RefreshSchema(ctx, "notes")
	require.NoError(t, err)
	assert.Len(t, cols, 3)

	require.NoError(t, s.DropTable(ctx, "notes"))
	_, err = exec.Columns(ctx, "notes")
	assert.ErrorIs(t, err, schema.ErrNoColumns)

	exec.ResetSchema()
	assert.Empty(t, exec.Schema().Tables())
}

func TestCallProcedure(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()

	_, err := s.CallProcedure(ctx, "x; DROP TABLE y", nil, "")
	assert.Error(t, err)
	_, err = s.CallProcedure(ctx, "proc", nil, "out var")
	assert.Error(t, err)
	assert.Equal(t, int64(0), s.Queries())

	// sqlite has no stored procedures; the error surfaces and the pinned
	// connection is released
	_, err = s.CallProcedure(ctx, "#__sync", []any{1, "a", map[string]any{"k": 1}}, "@result")
	require.ErrorIs(t, err, executor.ErrDriver)
	var de *executor.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, `CALL qk_sync('1', 'a', 'json://{"k":1}', @result)`, de.Query)

	v, err := s.QueryScalar(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestSelectUsesResultCache(t *testing.T) {
	rec := &recorder{}
	exec := newExecutorWith(t, executor.Options{Observer: rec, Results: cache.NewResults(8, time.Minute)})
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	titles := sqlgen.SelectQuery{Columns: []string{"title"}, From: ast.Table("items"), OrderBy: "id"}
	first, err := s.Select(ctx, titles)
	require.NoError(t, err)
	require.Len(t, first, 3)

	before := s.Queries()
	second, err := s.Select(ctx, titles)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, s.Queries())
	assert.Equal(t, int64(1), exec.Results().Stats().Hits)

	_, err = s.Delete(ctx, "items", ast.Where(ast.Eq("title", "a")), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, exec.Results().Stats().Size)

	third, err := s.Select(ctx, titles)
	require.NoError(t, err)
	assert.Len(t, third, 2)

	_, err = s.Execute(ctx, "UPDATE #__items SET hits = 1")
	require.NoError(t, err)
	assert.Equal(t, 0, exec.Results().Stats().Size)
}

func TestSelectInTxBypassesResultCache(t *testing.T) {
	exec := newExecutorWith(t, executor.Options{Results: cache.NewResults(8, time.Minute)})
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	titles := sqlgen.SelectQuery{Columns: []string{"title"}, From: ast.Table("items")}
	require.NoError(t, s.InTx(ctx, func(tx *executor.Session) error {
		_, err := tx.Select(ctx, titles)
		return err
	}))
	assert.Equal(t, 0, exec.Results().Stats().Size)

	_, err := s.Select(ctx, titles)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.Results().Stats().Size)
}

func TestSelectWithRawPredicateIsNotCached(t *testing.T) {
	exec := newExecutorWith(t, executor.Options{Results: cache.NewResults(8, time.Minute)})
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	_, err := s.Execute(ctx, "CREATE TABLE #__tags (item_id INTEGER NOT NULL)")
	require.NoError(t, err)
	_, err = s.Insert(ctx, "tags", ast.ParseRow(map[string]any{"item_id": 1}), executor.InsertOptions{})
	require.NoError(t, err)

	tagged := sqlgen.SelectQuery{
		Columns: []string{"title"},
		From:    ast.Table("items"),
		Where:   ast.Where(ast.Raw("id IN (SELECT item_id FROM #__tags)")),
		OrderBy: "id",
	}
	first, err := s.Select(ctx, tagged)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"title": "a"}}, first)
	assert.Equal(t, 0, exec.Results().Stats().Size)

	_, err = s.Insert(ctx, "tags", ast.ParseRow(map[string]any{"item_id": 2}), executor.InsertOptions{})
	require.NoError(t, err)

	second, err := s.Select(ctx, tagged)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"title": "a"}, {"title": "b"}}, second)
}

func TestSelectReferringToPreviousStatementIsNotCached(t *testing.T) {
	exec := newExecutorWith(t, executor.Options{Results: cache.NewResults(8, time.Minute)})
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	_, err := s.Select(ctx, sqlgen.SelectQuery{Columns: []string{"id"}, From: ast.Table("items"), Where: ast.Where(ast.Eq("title", "b"))})
	require.NoError(t, err)
	require.Equal(t, 1, exec.Results().Stats().Size)

	set, err := ast.ParseConditions(map[string]any{"id": ast.CurrentValue}, ast.And)
	require.NoError(t, err)
	rows, err := s.Select(ctx, sqlgen.SelectQuery{Columns: []string{"title"}, From: ast.Table("items"), Where: set})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"title": "b"}}, rows)
	assert.Equal(t, 1, exec.Results().Stats().Size)
}

func TestSQLiteWriteForms(t *testing.T) {
	exec := newExecutor(t, nil)
	s := exec.Session()
	ctx := context.Background()
	seedItems(t, s)

	titles := func() []any {
		col, err := s.QueryColumn(ctx, "SELECT title FROM #__items ORDER BY id")
		require.NoError(t, err)
		return col
	}

	res, err := s.Insert(ctx, "items", ast.ParseRow(map[string]any{"id": 1, "title": "dup"}), executor.InsertOptions{Ignore: true})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.InsertOrUpdate(ctx, "items", ast.ParseRow(map[string]any{"id": 2, "title": "B"}))
	require.NoError(t, err)

	_, err = s.InsertMany(ctx, "items", ast.ParseRows([]map[string]any{
		{"id": 3, "title": "C"},
		{"id": 4, "title": "d"},
	}), executor.InsertOptions{Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "B", "C", "d"}, titles())

	require.NoError(t, s.TruncateTable(ctx, "items"))
	assert.Empty(t, titles())

	_, err = s.Update(ctx, "items", ast.ParseRow(map[string]any{"hits": 1}), ast.Where(ast.Eq("id", 1)), 1)
	assert.ErrorIs(t, err, sqlgen.ErrUnsupported)
}
