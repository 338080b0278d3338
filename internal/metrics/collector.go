// Package metrics aggregates executed statements in memory.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/satishbabariya/querykit/query/executor"
)

// DefaultBuckets are the upper bounds of the latency histogram.
var DefaultBuckets = []time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// Stats are the totals of one statement kind.
type Stats struct {
	Kind     string
	Count    int64
	Errors   int64
	Rows     int64
	Total    time.Duration
	Max      time.Duration
	Buckets  []int64 // Buckets[i] counts durations <= DefaultBuckets[i]; the last entry counts the rest
	Sessions int
}

// Mean returns the average duration.
func (s Stats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type kindStats struct {
	Stats
	sessions map[string]struct{}
}

// Collector is an executor.Observer. Safe for concurrent use.
type Collector struct {
	mu    sync.RWMutex
	kinds map[string]*kindStats
}

var _ executor.Observer = (*Collector)(nil)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{kinds: make(map[string]*kindStats)}
}

// Observe records one statement.
func (c *Collector) Observe(info executor.QueryInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ks, ok := c.kinds[info.Kind]
	if !ok {
		ks = &kindStats{
			Stats:    Stats{Kind: info.Kind, Buckets: make([]int64, len(DefaultBuckets)+1)},
			sessions: make(map[string]struct{}),
		}
		c.kinds[info.Kind] = ks
	}

	ks.Count++
	if info.Err != nil {
		ks.Errors++
	}
	ks.Rows += info.Rows
	ks.Total += info.Duration
	if info.Duration > ks.Max {
		ks.Max = info.Duration
	}
	ks.Buckets[bucket(info.Duration)]++
	if info.Session != "" {
		ks.sessions[info.Session] = struct{}{}
	}
}

func bucket(d time.Duration) int {
	for i, bound := range DefaultBuckets {
		if d <= bound {
			return i
		}
	}
	return len(DefaultBuckets)
}

// Snapshot returns a copy of the stats ordered by kind.
func (c *Collector) Snapshot() []Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Stats, 0, len(c.kinds))
	for _, ks := range c.kinds {
		s := ks.Stats
		s.Buckets = append([]int64(nil), ks.Buckets...)
		s.Sessions = len(ks.sessions)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Total returns the number of recorded statements.
func (c *Collector) Total() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, ks := range c.kinds {
		n += ks.Count
	}
	return n
}

// Reset clears every counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.kinds = make(map[string]*kindStats)
	c.mu.Unlock()
}
