// Package schema caches live column descriptors per table and normalizes
// partial rows against them.
package schema

import (
	"context"
	"sort"
	"sync"

	"github.com/satishbabariya/querykit/internal/debug"
	"github.com/satishbabariya/querykit/query/ast"
)

// Introspector reads the columns of a table from the live backend.
type Introspector interface {
	Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error)
}

// Cache memoizes column descriptors per table. Entries are loaded on first
// access and kept until Refresh, Invalidate or Reset. Safe for concurrent use.
type Cache struct {
	source   Introspector
	nullDate string

	mu     sync.RWMutex
	tables map[string][]ast.ColumnDescriptor
}

// NewCache creates a cache over source. nullDate is the literal datetime
// columns are filled with during normalization.
func NewCache(source Introspector, nullDate string) *Cache {
	return &Cache{
		source:   source,
		nullDate: nullDate,
		tables:   make(map[string][]ast.ColumnDescriptor),
	}
}

// Columns returns the descriptors of table, loading them on first use.
func (c *Cache) Columns(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	c.mu.RLock()
	cols, ok := c.tables[table]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have loaded it while we waited
	if cols, ok := c.tables[table]; ok {
		return cols, nil
	}
	return c.load(ctx, table)
}

// load must be called with c.mu held for writing.
func (c *Cache) load(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	cols, err := c.source.Columns(ctx, table)
	if err != nil {
		return nil, &SchemaError{Table: table, Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Table: table, Err: ErrNoColumns}
	}
	c.tables[table] = cols
	debug.Debug("schema cached", "table", table, "columns", len(cols))
	return cols, nil
}

// Refresh drops and reloads the descriptors of table.
func (c *Cache) Refresh(ctx context.Context, table string) ([]ast.ColumnDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, table)
	return c.load(ctx, table)
}

// Invalidate drops the descriptors of table; the next access reloads them.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.tables, table)
	c.mu.Unlock()
}

// Reset drops every cached table.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.tables = make(map[string][]ast.ColumnDescriptor)
	c.mu.Unlock()
	debug.Debug("schema cache reset")
}

// Tables lists the cached table names.
func (c *Cache) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
