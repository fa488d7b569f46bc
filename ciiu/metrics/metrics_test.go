package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchMetrics(t *testing.T) {
	var sm SearchMetrics
	start := time.Now()
	sm.Record(start, SearchOK, 3, true)
	sm.Record(start, SearchInvalid, 0, false)
	sm.Record(start, SearchNoResults, 0, true)

	m := sm.GetMetrics()
	assert.Equal(t, int64(3), m["total_operations"])
	assert.Equal(t, int64(1), m["successful_ops"])
	assert.Equal(t, int64(2), m["failed_ops"])
	assert.Equal(t, int64(1), m["invalid_requests"])
	assert.Equal(t, int64(1), m["no_results"])
	assert.Equal(t, int64(2), m["expanded_queries"])
	assert.Equal(t, int64(3), m["results_returned"])
	assert.False(t, m["last_operation"].(time.Time).IsZero())
}

func TestRebuildMetrics(t *testing.T) {
	var rm RebuildMetrics
	rm.Record(time.Now(), 10, nil)
	rm.Record(time.Now(), 99, errors.New("dup"))
	rm.RecordRejected()

	m := rm.GetMetrics()
	assert.Equal(t, int64(2), m["total_operations"])
	assert.Equal(t, int64(1), m["failed_ops"])
	assert.Equal(t, int64(10), m["rows_built"])
	assert.Equal(t, int64(1), m["rejected"])
}

func TestMetricsConcurrent(t *testing.T) {
	var sm SearchMetrics
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Record(time.Now(), SearchOK, 1, false)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), sm.GetMetrics()["total_operations"])
}
