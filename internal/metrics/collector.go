// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`
}

// Snapshot represents the full engine statistics at a point in time.
type Snapshot struct {
	UptimeSeconds  float64            `json:"uptimeSeconds"`
	NativeSearch   *OperationSnapshot `json:"nativeSearch,omitempty"`
	FallbackSearch *OperationSnapshot `json:"fallbackSearch,omitempty"`
	Dedup          *OperationSnapshot `json:"dedup,omitempty"`
	Embedding      *OperationSnapshot `json:"embedding,omitempty"`
	NativeFailures int64              `json:"nativeFailures"`
	CacheHits      int64              `json:"cacheHits"`
	CacheMisses    int64              `json:"cacheMisses"`
}

// Operation names for the collector.
const (
	OpNativeSearch   = "native_search"
	OpFallbackSearch = "fallback_search"
	OpDedup          = "dedup"
	OpEmbedding      = "embedding"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe. A nil *Collector is a no-op.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	nativeFailures int64
	cacheHits      int64
	cacheMisses    int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordNativeFailure counts a native-search execution failure that was
// retried on the fallback path.
func (c *Collector) RecordNativeFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nativeFailures++
}

// RecordCacheHit counts a result-cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// RecordCacheMiss counts a result-cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
		NativeSearch:   snapshotOp(c.ops[OpNativeSearch]),
		FallbackSearch: snapshotOp(c.ops[OpFallbackSearch]),
		Dedup:          snapshotOp(c.ops[OpDedup]),
		Embedding:      snapshotOp(c.ops[OpEmbedding]),
		NativeFailures: c.nativeFailures,
		CacheHits:      c.cacheHits,
		CacheMisses:    c.cacheMisses,
	}
}
