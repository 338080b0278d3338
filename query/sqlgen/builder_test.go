package sqlgen_test

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

func strptr(s string) *string { return &s }

func TestBuilderGolden(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.MySQL)

	tests := []struct {
		name  string
		build func(sc *sqlgen.Scope) (string, error)
	}{
		{
			name: "select_left_join",
			build: func(sc *sqlgen.Scope) (string, error) {
				return b.Select(sc, sqlgen.SelectQuery{
					Columns: []string{"a.id", "b.title"},
					Join: &ast.JoinSpec{
						Tables:    []ast.TableRef{ast.Table("content").As("a"), ast.Table("categories").As("b")},
						On:        &ast.KeyPair{Left: "catid", Right: "id"},
						Direction: ast.LeftJoin,
					},
					Where:   ast.Where(ast.Eq("a.state", 1)),
					OrderBy: "a.ordering.num.desc",
					Limit:   20,
					Offset:  40,
				})
			},
		},
		{
			name: "select_flat_join",
			build: func(sc *sqlgen.Scope) (string, error) {
				return b.Select(sc, sqlgen.SelectQuery{
					Join: &ast.JoinSpec{
						Tables: []ast.TableRef{
							ast.Table("content").As("a"),
							ast.Table("users").As("u"),
							ast.Table("categories").As("c"),
						},
						Keys: []string{"user_id", "cat_id"},
					},
				})
			},
		},
		{
			name: "select_distinct_group",
			build: func(sc *sqlgen.Scope) (string, error) {
				return b.Select(sc, sqlgen.SelectQuery{
					Columns:  []string{"catid", "COUNT(*) AS n"},
					From:     ast.Table("content"),
					Distinct: true,
					GroupBy:  []string{"catid"},
					Order:    ast.OrderSpec{{Column: "n", Desc: true}},
				})
			},
		},
		{
			name: "select_fulltext",
			build: func(sc *sqlgen.Scope) (string, error) {
				return b.SelectFullText(sc, sqlgen.SelectQuery{
					From:  ast.Table("content"),
					Where: ast.Any(ast.Eq("state", 1), ast.Eq("featured", 1)),
				}, sqlgen.FullText{Columns: []string{"title", "introtext"}, Term: "go's", Boolean: true})
			},
		},
		{
			name: "insert_many_upsert",
			build: func(sc *sqlgen.Scope) (string, error) {
				rows := ast.ParseRows([]map[string]any{
					{"id": 1, "title": "a"},
					{"title": "b", "id": 2},
				})
				return b.InsertMany(sc, "tags", rows, true, false)
			},
		},
		{
			name: "insert_or_update",
			build: func(sc *sqlgen.Scope) (string, error) {
				row := ast.ParseRow(map[string]any{"created": "FUNCTION:NOW()", "hits": 0, "id": 5})
				return b.InsertOrUpdate(sc, "stats", row)
			},
		},
		{
			name: "update_increment",
			build: func(sc *sqlgen.Scope) (string, error) {
				row := ast.ParseRow(map[string]any{"hits": "++", "modified": "FUNCTION:now"})
				return b.Update(sc, "content", row, ast.Where(ast.Eq("id", 7)), 1)
			},
		},
		{
			name: "create_table",
			build: func(sc *sqlgen.Scope) (string, error) {
				return b.CreateTable(sc, "content", ast.TableDef{
					Columns: []ast.ColumnDef{
						{Name: "id", Type: "INT", AutoIncrement: true},
						{Name: "title", Type: "VARCHAR(255)", Default: strptr("")},
						{Name: "created", Type: "DATETIME", Nullable: true, Default: strptr("CURRENT_TIMESTAMP")},
					},
					PrimaryKey: []string{"id"},
					Indexes:    map[string][]string{"idx_title": {"title"}},
					FullText:   map[string][]string{"ft_title": {"title"}},
					Engine:     "InnoDB",
					Charset:    "utf8mb4",
				})
			},
		},
	}

	g := goldie.New(t, goldie.WithFixtureDir(filepath.Join("testdata", "golden")))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &sqlgen.Scope{}
			statement, err := tt.build(sc)
			require.NoError(t, err)
			assert.Equal(t, statement, sc.Last())
			g.Assert(t, tt.name, []byte(statement+"\n"))
		})
	}
}

func TestBuilderStatements(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.MySQL)
	row := ast.ParseRow(map[string]any{"id": 1, "title": "x"})

	tests := []struct {
		name  string
		build func() (string, error)
		want  string
	}{
		{
			name:  "insert",
			build: func() (string, error) { return b.Insert(nil, "tags", row, false) },
			want:  "INSERT INTO #__tags (id, title) VALUES ('1', 'x')",
		},
		{
			name:  "insert ignore",
			build: func() (string, error) { return b.Insert(nil, "tags", row, true) },
			want:  "INSERT IGNORE INTO #__tags (id, title) VALUES ('1', 'x')",
		},
		{
			name:  "replace",
			build: func() (string, error) { return b.Replace(nil, "#__tags", row) },
			want:  "REPLACE INTO #__tags (id, title) VALUES ('1', 'x')",
		},
		{
			name: "insert null",
			build: func() (string, error) {
				return b.Insert(nil, "tags", ast.Row{{Column: "note", Value: ast.Null}}, false)
			},
			want: "INSERT INTO #__tags (note) VALUES (NULL)",
		},
		{
			name: "delete with limit",
			build: func() (string, error) {
				return b.Delete(nil, "session", ast.Where(ast.Condition{Column: "time", Operator: ast.LessThan, Value: ast.Lit(100)}), 50)
			},
			want: "DELETE FROM #__session WHERE time < '100' LIMIT 50",
		},
		{
			name:  "delete everything",
			build: func() (string, error) { return b.Delete(nil, "session", ast.ConditionSet{}, 0) },
			want:  "DELETE FROM #__session",
		},
		{
			name:  "drop",
			build: func() (string, error) { return b.DropTable(nil, "cache") },
			want:  "DROP TABLE IF EXISTS #__cache",
		},
		{
			name:  "truncate",
			build: func() (string, error) { return b.TruncateTable(nil, "cache") },
			want:  "TRUNCATE TABLE #__cache",
		},
		{
			name: "select default ordering",
			build: func() (string, error) {
				return b.Select(nil, sqlgen.SelectQuery{From: ast.Table("content"), OrderBy: "!!"})
			},
			want: "SELECT * FROM #__content ORDER BY id ASC",
		},
		{
			name: "select aliased table",
			build: func() (string, error) {
				return b.Select(nil, sqlgen.SelectQuery{Columns: []string{"a.id"}, From: ast.Table("content").As("a"), Limit: 1})
			},
			want: "SELECT a.id FROM #__content AS a LIMIT 0, 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilderPostgresLimit(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.Postgres)

	got, err := b.Select(nil, sqlgen.SelectQuery{From: ast.Table("content"), Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM #__content LIMIT 10 OFFSET 5", got)

	got, err = b.Select(nil, sqlgen.SelectQuery{From: ast.Table("content"), Limit: 10, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM #__content LIMIT 10", got)
}

func TestInsertManyColumnMismatch(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.MySQL)
	rows := ast.ParseRows([]map[string]any{
		{"id": 1, "title": "a"},
		{"id": 2},
	})

	sc := &sqlgen.Scope{}
	_, err := b.InsertMany(sc, "tags", rows, false, false)
	require.ErrorIs(t, err, sqlgen.ErrColumnMismatch)
	assert.Empty(t, sc.Last())
}

func TestBuilderErrors(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.MySQL)

	tests := []struct {
		name  string
		build func() (string, error)
	}{
		{"invalid table name", func() (string, error) { return b.DropTable(nil, "a; DROP TABLE b") }},
		{"invalid alias", func() (string, error) {
			return b.Select(nil, sqlgen.SelectQuery{From: ast.Table("a").As("x y")})
		}},
		{"no rows", func() (string, error) { return b.InsertMany(nil, "tags", nil, false, false) }},
		{"empty row", func() (string, error) { return b.Insert(nil, "tags", ast.Row{}, false) }},
		{"composite value", func() (string, error) {
			return b.Insert(nil, "tags", ast.ParseRow(map[string]any{"attribs": map[string]any{"a": 1}}), false)
		}},
		{"duplicate column", func() (string, error) {
			return b.Insert(nil, "tags", ast.Row{{Column: "a", Value: ast.Lit(1)}, {Column: "a", Value: ast.Lit(2)}}, false)
		}},
		{"duplicate column in a later row", func() (string, error) {
			return b.InsertMany(nil, "tags", ast.RowSet{
				{{Column: "a", Value: ast.Lit(1)}, {Column: "b", Value: ast.Lit(1)}},
				{{Column: "a", Value: ast.Lit(2)}, {Column: "A", Value: ast.Lit(3)}},
			}, false, false)
		}},
		{"duplicate assignment", func() (string, error) {
			return b.Update(nil, "tags", ast.Row{{Column: "a", Value: ast.Lit(1)}, {Column: "a", Value: ast.Lit(2)}}, ast.Where(ast.Eq("id", 1)), 0)
		}},
		{"increment in insert", func() (string, error) {
			return b.Insert(nil, "tags", ast.ParseRow(map[string]any{"hits": "++"}), false)
		}},
		{"full text without columns", func() (string, error) {
			return b.SelectFullText(nil, sqlgen.SelectQuery{From: ast.Table("a")}, sqlgen.FullText{Term: "x"})
		}},
		{"join of one table", func() (string, error) { return b.Join(ast.JoinSpec{Tables: []ast.TableRef{ast.Table("a")}}) }},
		{"join key count", func() (string, error) {
			return b.Join(ast.JoinSpec{Tables: []ast.TableRef{ast.Table("a"), ast.Table("b"), ast.Table("c")}, Keys: []string{"id"}})
		}},
		{"key pair on three tables", func() (string, error) {
			return b.Join(ast.JoinSpec{
				Tables: []ast.TableRef{ast.Table("a"), ast.Table("b"), ast.Table("c")},
				On:     &ast.KeyPair{Left: "id", Right: "id"},
			})
		}},
		{"unknown join direction", func() (string, error) {
			return b.Join(ast.JoinSpec{Tables: []ast.TableRef{ast.Table("a"), ast.Table("b")}, Keys: []string{"id"}, Direction: "OUTER"})
		}},
		{"create without columns", func() (string, error) { return b.CreateTable(nil, "a", ast.TableDef{}) }},
		{"column without type", func() (string, error) {
			return b.CreateTable(nil, "a", ast.TableDef{Columns: []ast.ColumnDef{{Name: "id"}}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, sqlgen.ErrCompile)
		})
	}
}

func TestJoinUnaliased(t *testing.T) {
	b := sqlgen.NewBuilder(sqlgen.MySQL)

	got, err := b.Join(ast.JoinSpec{
		Tables: []ast.TableRef{ast.Table("content"), ast.Table("categories")},
		On:     &ast.KeyPair{Left: "catid", Right: "id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "#__content JOIN #__categories ON #__content.catid = #__categories.id", got)
}
