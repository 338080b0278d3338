package sqlgen

import (
	"fmt"
	"strings"
)

// Dialect holds the backend-specific pieces of the rendered text.
type Dialect interface {
	// Name is the provider name ("mysql", "postgres", "sqlite").
	Name() string
	// Escape escapes s for use inside a single-quoted literal.
	Escape(s string) string
	// NullDate is the literal stored for "no date set".
	NullDate() string
	// Now is the expression the now token is replaced with.
	Now() string
	// Limit renders a LIMIT clause. limit is always positive.
	Limit(offset, limit int) string

	// Supports reports whether the backend accepts an optional statement
	// form.
	Supports(f Feature) bool
	// InsertIgnore returns the INSERT verb and the trailing clause of an
	// insert that skips rows violating a unique key.
	InsertIgnore() (verb, suffix string)
	// Upsert renders the clause that applies set ("col = expr") when an
	// insert hits a duplicate key. keys is the conflict target.
	Upsert(keys, set []string) (string, error)
	// UpsertTarget reports whether Upsert needs the conflict target.
	UpsertTarget() bool
	// Proposed is the value an upsert tried to insert into col.
	Proposed(col string) string
	// Truncate renders a statement that empties table.
	Truncate(table string) string
	// AutoIncrement renders the column suffix of an auto-increment column.
	// inline reports that the suffix declares the primary key itself.
	AutoIncrement() (suffix string, inline bool)
}

// Feature is an optional statement form.
type Feature int

const (
	// FullTextSearch is MATCH ... AGAINST.
	FullTextSearch Feature = iota
	// ReplaceInto is REPLACE INTO.
	ReplaceInto
	// StatementLimit is LIMIT on UPDATE and DELETE.
	StatementLimit
	// IndexClauses are KEY and FULLTEXT KEY inside CREATE TABLE.
	IndexClauses
	// TableOptions are ENGINE and DEFAULT CHARSET after CREATE TABLE.
	TableOptions
	// IgnoreWithUpsert is an ignoring insert that also upserts.
	IgnoreWithUpsert
)

var featureNames = map[Feature]string{
	FullTextSearch:   "full-text search",
	ReplaceInto:      "REPLACE INTO",
	StatementLimit:   "LIMIT on UPDATE and DELETE",
	IndexClauses:     "index clauses in CREATE TABLE",
	TableOptions:     "table options",
	IgnoreWithUpsert: "ignoring upsert",
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor returns the dialect of a provider name.
func DialectFor(provider string) (Dialect, error) {
	switch strings.ToLower(provider) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Quote escapes s and wraps it in single quotes.
func Quote(d Dialect, s string) string {
	return "'" + d.Escape(s) + "'"
}

type mysqlDialect struct{}

var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"'", "\\'",
	"\"", "\\\"",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"\x1a", "\\Z",
)

func (mysqlDialect) Name() string           { return "mysql" }
func (mysqlDialect) Escape(s string) string { return mysqlEscaper.Replace(s) }
func (mysqlDialect) NullDate() string       { return "0000-00-00 00:00:00" }
func (mysqlDialect) Now() string            { return "NOW()" }
func (mysqlDialect) Limit(offset, limit int) string {
	return fmt.Sprintf("LIMIT %d, %d", offset, limit)
}
func (mysqlDialect) Supports(Feature) bool { return true }
func (mysqlDialect) InsertIgnore() (string, string) {
	return "INSERT IGNORE INTO", ""
}

// Upsert ignores keys: ON DUPLICATE KEY UPDATE fires on any unique key.
func (mysqlDialect) Upsert(_, set []string) (string, error) {
	return " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", "), nil
}
func (mysqlDialect) UpsertTarget() bool            { return false }
func (mysqlDialect) Proposed(col string) string    { return "VALUES(" + col + ")" }
func (mysqlDialect) Truncate(table string) string  { return "TRUNCATE TABLE " + table }
func (mysqlDialect) AutoIncrement() (string, bool) { return "AUTO_INCREMENT", false }

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Escape(s string) string { return strings.ReplaceAll(s, "'", "''") }
func (sqliteDialect) NullDate() string       { return "0000-00-00 00:00:00" }
func (sqliteDialect) Now() string            { return "datetime('now')" }
func (sqliteDialect) Limit(offset, limit int) string {
	return fmt.Sprintf("LIMIT %d, %d", offset, limit)
}
func (sqliteDialect) Supports(f Feature) bool { return f == ReplaceInto }
func (sqliteDialect) InsertIgnore() (string, string) {
	return "INSERT OR IGNORE INTO", ""
}

// Upsert without keys resolves conflicts on any uniqueness constraint,
// which needs SQLite 3.35.
func (sqliteDialect) Upsert(keys, set []string) (string, error) {
	return " ON CONFLICT" + conflictTarget(keys) + " DO UPDATE SET " + strings.Join(set, ", "), nil
}
func (sqliteDialect) UpsertTarget() bool            { return false }
func (sqliteDialect) Proposed(col string) string    { return "excluded." + col }
func (sqliteDialect) Truncate(table string) string  { return "DELETE FROM " + table }
func (sqliteDialect) AutoIncrement() (string, bool) { return "PRIMARY KEY AUTOINCREMENT", true }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

// Escape assumes standard_conforming_strings, the default since 9.1.
func (postgresDialect) Escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\x00", ""), "'", "''")
}
func (postgresDialect) NullDate() string { return "0001-01-01 00:00:00" }
func (postgresDialect) Now() string      { return "NOW()" }
func (postgresDialect) Limit(offset, limit int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf("LIMIT %d", limit)
}
func (postgresDialect) Supports(Feature) bool { return false }
func (postgresDialect) InsertIgnore() (string, string) {
	return "INSERT INTO", " ON CONFLICT DO NOTHING"
}
func (postgresDialect) Upsert(keys, set []string) (string, error) {
	if len(keys) == 0 {
		return "", compileErrorf("", "upsert needs the conflict key columns")
	}
	return " ON CONFLICT" + conflictTarget(keys) + " DO UPDATE SET " + strings.Join(set, ", "), nil
}
func (postgresDialect) UpsertTarget() bool           { return true }
func (postgresDialect) Proposed(col string) string   { return "EXCLUDED." + col }
func (postgresDialect) Truncate(table string) string { return "TRUNCATE TABLE " + table }
func (postgresDialect) AutoIncrement() (string, bool) {
	return "GENERATED BY DEFAULT AS IDENTITY", false
}

func conflictTarget(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return " (" + strings.Join(keys, ", ") + ")"
}
