// Package metrics keeps in-process counters for searches and rebuilds.
package metrics

import (
	"sync"
	"time"
)

// PerformanceMetrics defines the interface for performance tracking
type PerformanceMetrics interface {
	GetMetrics() map[string]interface{}
}

// BaseMetrics provides common fields used across different metrics types
type BaseMetrics struct {
	TotalOperations int64
	SuccessfulOps   int64
	FailedOps       int64
	AverageTime     time.Duration
	LastOperation   time.Time
	Mu              sync.RWMutex
}

// record must be called with Mu held.
func (bm *BaseMetrics) record(start time.Time, success bool) {
	bm.TotalOperations++
	if success {
		bm.SuccessfulOps++
	} else {
		bm.FailedOps++
	}
	d := time.Since(start)
	// rolling average
	bm.AverageTime = (bm.AverageTime*time.Duration(bm.TotalOperations-1) + d) / time.Duration(bm.TotalOperations)
	bm.LastOperation = time.Now()
}

// UpdateBaseMetrics records one operation that began at start.
func (bm *BaseMetrics) UpdateBaseMetrics(start time.Time, success bool) {
	bm.Mu.Lock()
	defer bm.Mu.Unlock()
	bm.record(start, success)
}

// GetBaseMetrics returns the common metrics as a map
func (bm *BaseMetrics) GetBaseMetrics() map[string]interface{} {
	bm.Mu.RLock()
	defer bm.Mu.RUnlock()

	return map[string]interface{}{
		"total_operations": bm.TotalOperations,
		"successful_ops":   bm.SuccessfulOps,
		"failed_ops":       bm.FailedOps,
		"average_time":     bm.AverageTime,
		"last_operation":   bm.LastOperation,
	}
}

// SearchOutcome classifies how a search ended.
type SearchOutcome int

const (
	SearchOK SearchOutcome = iota
	SearchInvalid
	SearchNoResults
	SearchFailed
)

// SearchMetrics tracks query traffic. Validation failures and empty result
// sets are counted apart from real failures.
type SearchMetrics struct {
	BaseMetrics
	Invalid   int64
	NoResults int64
	Expanded  int64
	Returned  int64
}

// Record adds one finished search.
func (sm *SearchMetrics) Record(start time.Time, outcome SearchOutcome, returned int, expanded bool) {
	sm.Mu.Lock()
	defer sm.Mu.Unlock()

	sm.record(start, outcome == SearchOK)
	switch outcome {
	case SearchInvalid:
		sm.Invalid++
	case SearchNoResults:
		sm.NoResults++
	}
	if expanded {
		sm.Expanded++
	}
	sm.Returned += int64(returned)
}

// GetMetrics returns search metrics as a map
func (sm *SearchMetrics) GetMetrics() map[string]interface{} {
	m := sm.GetBaseMetrics()
	sm.Mu.RLock()
	defer sm.Mu.RUnlock()

	m["invalid_requests"] = sm.Invalid
	m["no_results"] = sm.NoResults
	m["expanded_queries"] = sm.Expanded
	m["results_returned"] = sm.Returned
	return m
}

// RebuildMetrics tracks snapshot rebuilds.
type RebuildMetrics struct {
	BaseMetrics
	Rejected  int64
	RowsBuilt int64
}

// Record adds one finished rebuild.
func (rm *RebuildMetrics) Record(start time.Time, rows int, err error) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	rm.record(start, err == nil)
	if err == nil {
		rm.RowsBuilt += int64(rows)
	}
}

// RecordRejected counts a rebuild refused because another one was running.
func (rm *RebuildMetrics) RecordRejected() {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()
	rm.Rejected++
}

// GetMetrics returns rebuild metrics as a map
func (rm *RebuildMetrics) GetMetrics() map[string]interface{} {
	m := rm.GetBaseMetrics()
	rm.Mu.RLock()
	defer rm.Mu.RUnlock()

	m["rejected"] = rm.Rejected
	m["rows_built"] = rm.RowsBuilt
	return m
}
