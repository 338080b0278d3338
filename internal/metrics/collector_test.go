package metrics_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querykit/internal/metrics"
	"github.com/satishbabariya/querykit/query/executor"
)

func TestCollectorAggregatesByKind(t *testing.T) {
	c := metrics.NewCollector()

	c.Observe(executor.QueryInfo{Session: "a", Kind: "rows", Duration: 2 * time.Millisecond, Rows: 3})
	c.Observe(executor.QueryInfo{Session: "b", Kind: "rows", Duration: 4 * time.Millisecond, Rows: 1})
	c.Observe(executor.QueryInfo{Session: "a", Kind: "insert", Duration: 2 * time.Second, Err: errors.New("boom")})

	snap := c.Snapshot()
	require.Len(t, snap, 2)

	insert, rows := snap[0], snap[1]
	assert.Equal(t, "insert", insert.Kind)
	assert.Equal(t, int64(1), insert.Errors)
	assert.Equal(t, int64(1), insert.Buckets[len(metrics.DefaultBuckets)])

	assert.Equal(t, "rows", rows.Kind)
	assert.Equal(t, int64(2), rows.Count)
	assert.Equal(t, int64(4), rows.Rows)
	assert.Equal(t, 4*time.Millisecond, rows.Max)
	assert.Equal(t, 3*time.Millisecond, rows.Mean())
	assert.Equal(t, 2, rows.Sessions)
	assert.Equal(t, int64(2), rows.Buckets[1])

	assert.Equal(t, int64(3), c.Total())
	c.Reset()
	assert.Empty(t, c.Snapshot())
}

func TestCollectorConcurrentObserve(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe(executor.QueryInfo{Kind: "exec", Duration: time.Microsecond})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), c.Total())
}
