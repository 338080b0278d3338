// Package executor runs built statements against a live backend and decodes
// the results.
package executor

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/querykit/internal/debug"
	"github.com/satishbabariya/querykit/query/ast"
	"github.com/satishbabariya/querykit/query/cache"
	"github.com/satishbabariya/querykit/query/codec"
	"github.com/satishbabariya/querykit/query/driver"
	"github.com/satishbabariya/querykit/query/schema"
	"github.com/satishbabariya/querykit/query/sqlgen"
)

// QueryInfo describes one executed statement.
type QueryInfo struct {
	Session  string
	Kind     string
	SQL      string
	Duration time.Duration
	Rows     int64
	Err      error
}

// Observer receives a QueryInfo after every statement. Implementations must
// be safe for concurrent use.
type Observer interface {
	Observe(QueryInfo)
}

// Options configures an Executor.
type Options struct {
	// Prefix replaces the table prefix token.
	Prefix string
	// Codec encodes composite row values. Defaults to codec.New().
	Codec *codec.Codec
	// Observer is optional.
	Observer Observer
	// Results caches the rows of Select and SelectFullText outside
	// transactions. Nil disables caching.
	Results *cache.Results
}

// Executor owns the backend and the state shared by all sessions: the
// schema cache, the codec and the global query total. Safe for concurrent
// use; per-request work goes through a Session.
type Executor struct {
	driver   driver.Driver
	builder  *sqlgen.Builder
	schema   *schema.Cache
	codec    *codec.Codec
	prefix   string
	observer Observer
	results  *cache.Results

	total atomic.Int64
}

// New creates an executor over drv.
func New(drv driver.Driver, opts Options) *Executor {
	c := opts.Codec
	if c == nil {
		c = codec.New()
	}
	d := drv.Dialect()
	return &Executor{
		driver:   drv,
		builder:  sqlgen.NewBuilder(d),
		schema:   schema.NewCache(prefixedIntrospector{drv: drv, prefix: opts.Prefix}, d.NullDate()),
		codec:    c,
		prefix:   opts.Prefix,
		observer: opts.Observer,
		results:  opts.Results,
	}
}

// Driver returns the underlying driver.
func (e *Executor) Driver() driver.Driver { return e.driver }

// Builder returns the statement builder.
func (e *Executor) Builder() *sqlgen.Builder { return e.builder }

// Schema returns the schema cache.
func (e *Executor) Schema() *schema.Cache { return e.schema }

// Codec returns the value codec.
func (e *Executor) Codec() *codec.Codec { return e.codec }

// Results returns the result cache, nil when caching is off.
func (e *Executor) Results() *cache.Results { return e.results }

// Prefix returns the table prefix.
func (e *Executor) Prefix() string { return e.prefix }

// TotalQueries returns the number of statements executed by all sessions.
func (e *Executor) TotalQueries() int64 {
	return e.total.Load()
}

// Session starts a request-scoped session.
func (e *Executor) Session() *Session {
	id := uuid.NewString()
	return &Session{
		exec:    e,
		id:      id,
		q:       e.driver,
		counter: new(int64),
		scope:   new(sqlgen.Scope),
		log:     debug.With("session", id),
	}
}

// Columns returns the cached column descriptors of a logical table.
func (e *Executor) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	return e.schema.Columns(ctx, logicalName(table))
}

// RefreshSchema reloads the descriptors of a logical table.
func (e *Executor) RefreshSchema(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	debug.Info("refreshing schema", "table", table)
	return e.schema.Refresh(ctx, logicalName(table))
}

// ResetSchema drops every cached table.
func (e *Executor) ResetSchema() {
	e.schema.Reset()
}

// Substitute replaces the prefix and now tokens in query.
func (e *Executor) Substitute(query string) string {
	return sqlgen.Substitute(e.driver.Dialect(), query, e.prefix)
}

// Close closes the driver.
func (e *Executor) Close() error {
	return e.driver.Close()
}

func logicalName(table string) string {
	return strings.TrimPrefix(strings.TrimSpace(table), sqlgen.PrefixToken)
}

// prefixedIntrospector maps logical table names to physical ones.
type prefixedIntrospector struct {
	drv    driver.Driver
	prefix string
}

func (p prefixedIntrospector) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	return p.drv.Columns(ctx, p.prefix+table)
}
