package sqlgen

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/satishbabariya/querykit/query/ast"
)

// Builder assembles complete statements. Every built statement is recorded
// in the Scope passed in, so a later LastQuery condition can refer to it.
type Builder struct {
	compiler *Compiler
}

// NewBuilder creates a builder for d.
func NewBuilder(d Dialect) *Builder {
	return &Builder{compiler: NewCompiler(d)}
}

// Compiler returns the condition compiler the builder uses.
func (b *Builder) Compiler() *Compiler {
	return b.compiler
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect {
	return b.compiler.dialect
}

// SelectQuery describes a SELECT statement.
type SelectQuery struct {
	Columns  []string
	From     ast.TableRef
	Join     *ast.JoinSpec
	Where    ast.ConditionSet
	Order    ast.OrderSpec
	OrderBy  string // textual ordering, used when Order is empty
	Limit    int    // zero means no limit
	Offset   int
	Distinct bool
	GroupBy  []string
}

// FullText is a MATCH ... AGAINST clause.
type FullText struct {
	Columns []string
	Term    string
	Boolean bool
}

func (b *Builder) from(q SelectQuery) (string, error) {
	if q.Join != nil {
		return b.Join(*q.Join)
	}
	return tableRef(q.From)
}

// Select builds SELECT [DISTINCT] cols FROM ... [WHERE] [GROUP BY]
// [ORDER BY] [LIMIT].
func (b *Builder) Select(sc *Scope, q SelectQuery) (string, error) {
	return b.selectStatement(sc, q, "")
}

// SelectFullText builds a SELECT whose WHERE clause is ANDed with a
// MATCH ... AGAINST predicate.
func (b *Builder) SelectFullText(sc *Scope, q SelectQuery, m FullText) (string, error) {
	if !b.Dialect().Supports(FullTextSearch) {
		return "", unsupported(b.Dialect(), FullTextSearch)
	}
	if len(m.Columns) == 0 {
		return "", compileErrorf("", "full-text search needs at least one column")
	}
	for _, col := range m.Columns {
		if err := checkColumn(col); err != nil {
			return "", err
		}
	}
	match := "MATCH(" + strings.Join(m.Columns, ",") + ") AGAINST(" + Quote(b.Dialect(), m.Term)
	if m.Boolean {
		match += " IN BOOLEAN MODE"
	}
	match += ")"
	return b.selectStatement(sc, q, match)
}

func (b *Builder) selectStatement(sc *Scope, q SelectQuery, match string) (string, error) {
	from, err := b.from(q)
	if err != nil {
		return "", err
	}
	where, err := b.compiler.Compile(sc, q.Where)
	if err != nil {
		return "", err
	}
	if match != "" {
		switch {
		case where == "":
			where = match
		case q.Where.Combinator == ast.Or && len(q.Where.Conditions) > 1:
			where = "(" + where + ") AND " + match
		default:
			where += " AND " + match
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(q.Columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(q.Columns, ", "))
	}
	sb.WriteString(" FROM " + from)
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}
	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(q.GroupBy, ", "))
	}
	switch {
	case len(q.Order) > 0:
		sb.WriteString(" ORDER BY " + b.compiler.Order(q.Order))
	case q.OrderBy != "":
		sb.WriteString(" ORDER BY " + b.compiler.OrderString(q.OrderBy))
	}
	if q.Limit > 0 {
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		sb.WriteString(" " + b.Dialect().Limit(offset, q.Limit))
	}

	statement := sb.String()
	sc.Remember(statement)
	return statement, nil
}

func (b *Builder) values(row ast.Row, columns []string) (string, error) {
	vals := make([]string, len(columns))
	for i, col := range columns {
		v, _ := row.Get(col)
		lit, err := b.compiler.Literal(col, v)
		if err != nil {
			return "", err
		}
		vals[i] = lit
	}
	return "(" + strings.Join(vals, ", ") + ")", nil
}

func checkRow(row ast.Row) error {
	if len(row) == 0 {
		return compileErrorf("", "empty row")
	}
	seen := make(map[string]bool, len(row))
	for _, f := range row {
		if err := checkColumn(f.Column); err != nil {
			return err
		}
		key := strings.ToLower(f.Column)
		if seen[key] {
			return compileErrorf(f.Column, "duplicate column")
		}
		seen[key] = true
	}
	return nil
}

func (b *Builder) insertStatement(verb, table string, rows ast.RowSet) (string, []string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return "", nil, compileErrorf("", "no rows to insert")
	}
	columns := rows[0].Columns()
	tuples := make([]string, len(rows))
	for i, row := range rows {
		if err := checkRow(row); err != nil {
			return "", nil, err
		}
		if i > 0 && !row.SameColumns(rows[0]) {
			return "", nil, fmt.Errorf("%w: row %d has columns %v, row 0 has %v",
				ErrColumnMismatch, i, row.Columns(), columns)
		}
		tuple, err := b.values(row, columns)
		if err != nil {
			return "", nil, err
		}
		tuples[i] = tuple
	}
	return verb + " " + name + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(tuples, ", "), columns, nil
}

func (b *Builder) insertVerb(ignore bool) (verb, suffix string) {
	if ignore {
		return b.Dialect().InsertIgnore()
	}
	return "INSERT INTO", ""
}

// Insert builds a single-row INSERT. With ignore set, a row violating a
// unique key is skipped.
func (b *Builder) Insert(sc *Scope, table string, row ast.Row, ignore bool) (string, error) {
	verb, suffix := b.insertVerb(ignore)
	statement, _, err := b.insertStatement(verb, table, ast.RowSet{row})
	if err != nil {
		return "", err
	}
	statement += suffix
	sc.Remember(statement)
	return statement, nil
}

// InsertMany builds a multi-row INSERT. Every row must name the same set of
// columns; the first row's column order is used. With upsert set, every
// column is overwritten with the new value on a duplicate key. conflict
// names the key columns for dialects whose upsert needs a target.
func (b *Builder) InsertMany(sc *Scope, table string, rows ast.RowSet, upsert, ignore bool, conflict ...string) (string, error) {
	d := b.Dialect()
	if upsert && ignore && !d.Supports(IgnoreWithUpsert) {
		return "", unsupported(d, IgnoreWithUpsert)
	}
	verb, suffix := b.insertVerb(ignore)
	statement, columns, err := b.insertStatement(verb, table, rows)
	if err != nil {
		return "", err
	}
	if upsert {
		updates := make([]string, len(columns))
		for i, col := range columns {
			updates[i] = col + " = " + d.Proposed(col)
		}
		clause, err := d.Upsert(conflict, updates)
		if err != nil {
			return "", err
		}
		statement += clause
	}
	statement += suffix
	sc.Remember(statement)
	return statement, nil
}

// InsertOrUpdate builds a single-row upsert whose update clause repeats the
// row's values; raw function values stay raw expressions on both sides.
// conflict is passed on as in InsertMany.
func (b *Builder) InsertOrUpdate(sc *Scope, table string, row ast.Row, conflict ...string) (string, error) {
	statement, _, err := b.insertStatement("INSERT INTO", table, ast.RowSet{row})
	if err != nil {
		return "", err
	}
	assignments, err := b.assignments(row)
	if err != nil {
		return "", err
	}
	clause, err := b.Dialect().Upsert(conflict, assignments)
	if err != nil {
		return "", err
	}
	statement += clause
	sc.Remember(statement)
	return statement, nil
}

// Replace builds a REPLACE INTO statement.
func (b *Builder) Replace(sc *Scope, table string, row ast.Row) (string, error) {
	if !b.Dialect().Supports(ReplaceInto) {
		return "", unsupported(b.Dialect(), ReplaceInto)
	}
	statement, _, err := b.insertStatement("REPLACE INTO", table, ast.RowSet{row})
	if err != nil {
		return "", err
	}
	sc.Remember(statement)
	return statement, nil
}

func (b *Builder) assignments(row ast.Row) ([]string, error) {
	if err := checkRow(row); err != nil {
		return nil, err
	}
	parts := make([]string, len(row))
	for i, f := range row {
		if _, ok := f.Value.(ast.Increment); ok {
			parts[i] = f.Column + " = " + f.Column + " + 1"
			continue
		}
		lit, err := b.compiler.Literal(f.Column, f.Value)
		if err != nil {
			return nil, err
		}
		parts[i] = f.Column + " = " + lit
	}
	return parts, nil
}

func (b *Builder) statementLimit(limit int) (string, error) {
	if limit <= 0 {
		return "", nil
	}
	if !b.Dialect().Supports(StatementLimit) {
		return "", unsupported(b.Dialect(), StatementLimit)
	}
	return " LIMIT " + strconv.Itoa(limit), nil
}

// Update builds UPDATE ... SET ... [WHERE] [LIMIT]. Increment values render
// as "column = column + 1".
func (b *Builder) Update(sc *Scope, table string, set ast.Row, where ast.ConditionSet, limit int) (string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", err
	}
	assignments, err := b.assignments(set)
	if err != nil {
		return "", err
	}
	cond, err := b.compiler.Compile(sc, where)
	if err != nil {
		return "", err
	}
	limitClause, err := b.statementLimit(limit)
	if err != nil {
		return "", err
	}

	statement := "UPDATE " + name + " SET " + strings.Join(assignments, ", ")
	if cond != "" {
		statement += " WHERE " + cond
	}
	statement += limitClause
	sc.Remember(statement)
	return statement, nil
}

// Delete builds DELETE FROM ... [WHERE] [LIMIT].
func (b *Builder) Delete(sc *Scope, table string, where ast.ConditionSet, limit int) (string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", err
	}
	cond, err := b.compiler.Compile(sc, where)
	if err != nil {
		return "", err
	}
	limitClause, err := b.statementLimit(limit)
	if err != nil {
		return "", err
	}

	statement := "DELETE FROM " + name
	if cond != "" {
		statement += " WHERE " + cond
	}
	statement += limitClause
	sc.Remember(statement)
	return statement, nil
}

// DropTable builds DROP TABLE IF EXISTS.
func (b *Builder) DropTable(sc *Scope, table string) (string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", err
	}
	statement := "DROP TABLE IF EXISTS " + name
	sc.Remember(statement)
	return statement, nil
}

// TruncateTable builds TRUNCATE TABLE, or DELETE FROM where the dialect
// has no TRUNCATE.
func (b *Builder) TruncateTable(sc *Scope, table string) (string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", err
	}
	statement := b.Dialect().Truncate(name)
	sc.Remember(statement)
	return statement, nil
}

var keywordDefault = regexp.MustCompile(`(?i)^(CURRENT_TIMESTAMP|NOW|NULL)(\(\))?$`)

func (b *Builder) columnDef(col ast.ColumnDef) (string, error) {
	if err := checkColumn(col.Name); err != nil {
		return "", err
	}
	if strings.TrimSpace(col.Type) == "" {
		return "", compileErrorf(col.Name, "column type missing")
	}
	suffix, inline := b.Dialect().AutoIncrement()
	colType := col.Type
	if col.AutoIncrement && inline {
		// only an INTEGER PRIMARY KEY aliases the rowid
		colType = "INTEGER"
	}
	def := col.Name + " " + colType
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.Default != nil {
		if keywordDefault.MatchString(*col.Default) {
			def += " DEFAULT " + *col.Default
		} else {
			def += " DEFAULT " + Quote(b.Dialect(), *col.Default)
		}
	}
	if col.AutoIncrement {
		def += " " + suffix
	}
	return def, nil
}

func sortedIndexNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// inlineKey returns the auto-increment column that declares the primary key
// itself, if the dialect does that.
func (b *Builder) inlineKey(def ast.TableDef) (string, error) {
	if _, inline := b.Dialect().AutoIncrement(); !inline {
		return "", nil
	}
	key := ""
	for _, col := range def.Columns {
		if !col.AutoIncrement {
			continue
		}
		if key != "" {
			return "", compileErrorf(col.Name, "only one auto-increment column is allowed")
		}
		key = col.Name
	}
	if key == "" {
		return "", nil
	}
	if len(def.PrimaryKey) > 1 || (len(def.PrimaryKey) == 1 && def.PrimaryKey[0] != key) {
		return "", compileErrorf(key, "auto-increment column must be the only primary key")
	}
	return key, nil
}

// CreateTable builds CREATE TABLE IF NOT EXISTS. Engine and charset are
// appended only when set and only for dialects with table options.
func (b *Builder) CreateTable(sc *Scope, table string, def ast.TableDef) (string, error) {
	name, err := TableName(table)
	if err != nil {
		return "", err
	}
	if len(def.Columns) == 0 {
		return "", compileErrorf("", "table %s has no columns", table)
	}
	d := b.Dialect()
	if (len(def.Indexes) > 0 || len(def.FullText) > 0) && !d.Supports(IndexClauses) {
		return "", unsupported(d, IndexClauses)
	}
	inline, err := b.inlineKey(def)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(def.Columns)+1+len(def.Indexes)+len(def.FullText))
	for _, col := range def.Columns {
		rendered, err := b.columnDef(col)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	if len(def.PrimaryKey) > 0 && inline == "" {
		parts = append(parts, "PRIMARY KEY ("+strings.Join(def.PrimaryKey, ", ")+")")
	}
	for _, idx := range sortedIndexNames(def.Indexes) {
		parts = append(parts, "KEY "+idx+" ("+strings.Join(def.Indexes[idx], ", ")+")")
	}
	for _, idx := range sortedIndexNames(def.FullText) {
		parts = append(parts, "FULLTEXT KEY "+idx+" ("+strings.Join(def.FullText[idx], ", ")+")")
	}

	statement := "CREATE TABLE IF NOT EXISTS " + name + " (" + strings.Join(parts, ", ") + ")"
	if d.Supports(TableOptions) {
		if def.Engine != "" {
			statement += " ENGINE=" + def.Engine
		}
		if def.Charset != "" {
			statement += " DEFAULT CHARSET=" + def.Charset
		}
	}
	sc.Remember(statement)
	return statement, nil
}
