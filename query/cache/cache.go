// Package cache keeps the rows of recently run SELECT statements, indexed by
// the tables they read so that writes to a table drop them.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"sync"
	"time"
)

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type entry struct {
	key       string
	tables    []string
	rows      []map[string]any
	expiresAt time.Time
}

// Results is an LRU cache of query results with an optional TTL. Safe for
// concurrent use.
type Results struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front is most recently used
	items   map[string]*list.Element
	byTable map[string]map[string]struct{}
	stats   Stats
}

// NewResults creates a cache holding at most maxSize results. A zero ttl
// keeps results until they are evicted or invalidated.
func NewResults(maxSize int, ttl time.Duration) *Results {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Results{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		byTable: make(map[string]map[string]struct{}),
		stats:   Stats{MaxSize: maxSize},
	}
}

// Key hashes a statement into a cache key.
func Key(statement string) string {
	sum := sha256.Sum256([]byte(statement))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the rows cached for statement.
func (c *Results) Get(statement string) ([]map[string]any, bool) {
	key := Key(statement)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.remove(el)
		c.stats.Misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return cloneRows(e.rows), true
}

// Put stores the rows of statement, which read tables.
func (c *Results) Put(statement string, tables []string, rows []map[string]any) {
	key := Key(statement)
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}

	e := &entry{key: key, tables: tables, rows: cloneRows(rows), expiresAt: expiresAt}
	c.items[key] = c.order.PushFront(e)
	for _, table := range tables {
		keys := c.byTable[table]
		if keys == nil {
			keys = make(map[string]struct{})
			c.byTable[table] = keys
		}
		keys[key] = struct{}{}
	}
}

// InvalidateTable drops every result that read table and returns how many
// were dropped.
func (c *Results) InvalidateTable(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.byTable[table] {
		if el, ok := c.items[key]; ok {
			c.remove(el)
			n++
		}
	}
	delete(c.byTable, table)
	return n
}

// Clear removes all entries from the cache
func (c *Results) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.byTable = make(map[string]map[string]struct{})
}

// Stats returns cache statistics
func (c *Results) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.order.Len()
	return stats
}

// remove must be called with c.mu held.
func (c *Results) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.items, e.key)
	for _, table := range e.tables {
		if keys := c.byTable[table]; keys != nil {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(c.byTable, table)
			}
		}
	}
}

func cloneRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}
