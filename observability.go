package kpisight

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// CollectorConfig controls the internal metrics collection behavior.
type CollectorConfig struct {
	Enabled           bool
	MetricPrefix      string
	MaxRingBufferSize int
}

// DefaultCollectorConfig returns sensible defaults for metrics collection.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Enabled:           true,
		MetricPrefix:      "kpisight.",
		MaxRingBufferSize: 1024,
	}
}

// MetricEntry represents a single recorded instrumentation data point.
type MetricEntry struct {
	Name      string
	Value     float64
	Timestamp time.Time
	Tags      map[string]string
}

// metricRingBuffer is a fixed-size circular buffer for recent entries.
type metricRingBuffer struct {
	entries []MetricEntry
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

func newMetricRingBuffer(size int) *metricRingBuffer {
	if size <= 0 {
		size = 1024
	}
	return &metricRingBuffer{
		entries: make([]MetricEntry, size),
		size:    size,
	}
}

// push adds an entry, overwriting the oldest if full.
func (rb *metricRingBuffer) push(entry MetricEntry) {
	rb.mu.Lock()
	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
	rb.mu.Unlock()
}

// recent returns up to n most recent entries, newest first.
func (rb *metricRingBuffer) recent(n int) []MetricEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > rb.count {
		n = rb.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]MetricEntry, n)
	for i := 0; i < n; i++ {
		idx := (rb.head - 1 - i + rb.size) % rb.size
		result[i] = rb.entries[idx]
	}
	return result
}

// DurationHistogram is a streaming histogram of observed durations or values.
type DurationHistogram struct {
	count  int64
	sum    float64
	min    float64
	max    float64
	values []float64
	mu     sync.Mutex
}

// NewDurationHistogram creates an empty histogram.
func NewDurationHistogram() *DurationHistogram {
	return &DurationHistogram{
		min:    math.MaxFloat64,
		max:    -math.MaxFloat64,
		values: make([]float64, 0, 256),
	}
}

// Record adds a value to the histogram.
func (h *DurationHistogram) Record(value float64) {
	h.mu.Lock()
	h.count++
	h.sum += value
	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
	h.values = append(h.values, value)
	h.mu.Unlock()
}

// HistogramSnapshot holds a point-in-time view of histogram data.
type HistogramSnapshot struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Snapshot returns a point-in-time snapshot of the histogram.
func (h *DurationHistogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := HistogramSnapshot{Count: h.count, Sum: h.sum}
	if h.count == 0 {
		return snap
	}

	snap.Min = h.min
	snap.Max = h.max
	snap.Avg = h.sum / float64(h.count)

	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	sort.Float64s(sorted)

	snap.P50 = percentile(sorted, 50)
	snap.P95 = percentile(sorted, 95)
	snap.P99 = percentile(sorted, 99)
	return snap
}

// MetricsSnapshot captures a point-in-time view of all collected metrics.
type MetricsSnapshot struct {
	Timestamp     time.Time                    `json:"timestamp"`
	Uptime        time.Duration                `json:"uptime"`
	Counters      map[string]int64             `json:"counters"`
	Gauges        map[string]int64             `json:"gauges"`
	Histograms    map[string]HistogramSnapshot `json:"histograms"`
	RecentEntries []MetricEntry                `json:"recent_entries"`
}

// MetricsCollector gathers internal engine instrumentation: stage timings,
// anomaly counts, and per-detector durations. It is passive; callers record,
// nothing runs in the background.
type MetricsCollector struct {
	config     CollectorConfig
	counters   map[string]*atomic.Int64
	gauges     map[string]*atomic.Int64
	histograms map[string]*DurationHistogram
	ringBuffer *metricRingBuffer
	mu         sync.RWMutex
	startTime  time.Time
}

// NewMetricsCollector creates a new collector with the given configuration.
func NewMetricsCollector(config CollectorConfig) *MetricsCollector {
	return &MetricsCollector{
		config:     config,
		counters:   make(map[string]*atomic.Int64),
		gauges:     make(map[string]*atomic.Int64),
		histograms: make(map[string]*DurationHistogram),
		ringBuffer: newMetricRingBuffer(config.MaxRingBufferSize),
		startTime:  time.Now(),
	}
}

// IncrCounter increments a named counter by delta.
func (c *MetricsCollector) IncrCounter(name string, delta int64) {
	if !c.config.Enabled {
		return
	}
	c.counter(name).Add(delta)
}

// SetGauge sets a named gauge to the given value.
func (c *MetricsCollector) SetGauge(name string, value int64) {
	if !c.config.Enabled {
		return
	}
	c.gauge(name).Store(value)
}

// ObserveDuration records a duration into the named histogram and the recent
// entry buffer.
func (c *MetricsCollector) ObserveDuration(name string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	ms := float64(d.Microseconds()) / 1000.0
	c.histogram(name).Record(ms)
	c.ringBuffer.push(MetricEntry{
		Name:      c.config.MetricPrefix + name,
		Value:     ms,
		Timestamp: time.Now(),
	})
}

// ObserveStage records one pipeline stage execution: its duration histogram
// and a completion counter.
func (c *MetricsCollector) ObserveStage(stage string, d time.Duration) {
	c.ObserveDuration("stage."+stage, d)
	c.IncrCounter("stage."+stage+".runs", 1)
}

func (c *MetricsCollector) counter(name string) *atomic.Int64 {
	c.mu.RLock()
	v, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.counters[name]; ok {
		return v
	}
	v = &atomic.Int64{}
	c.counters[name] = v
	return v
}

func (c *MetricsCollector) gauge(name string) *atomic.Int64 {
	c.mu.RLock()
	v, ok := c.gauges[name]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.gauges[name]; ok {
		return v
	}
	v = &atomic.Int64{}
	c.gauges[name] = v
	return v
}

func (c *MetricsCollector) histogram(name string) *DurationHistogram {
	c.mu.RLock()
	h, ok := c.histograms[name]
	c.mu.RUnlock()
	if ok {
		return h
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok = c.histograms[name]; ok {
		return h
	}
	h = NewDurationHistogram()
	c.histograms[name] = h
	return h
}

// Snapshot returns a point-in-time view of every counter, gauge, and
// histogram plus the most recent entries.
func (c *MetricsCollector) Snapshot() MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := MetricsSnapshot{
		Timestamp:  time.Now(),
		Uptime:     time.Since(c.startTime),
		Counters:   make(map[string]int64, len(c.counters)),
		Gauges:     make(map[string]int64, len(c.gauges)),
		Histograms: make(map[string]HistogramSnapshot, len(c.histograms)),
	}
	for name, v := range c.counters {
		snap.Counters[c.config.MetricPrefix+name] = v.Load()
	}
	for name, v := range c.gauges {
		snap.Gauges[c.config.MetricPrefix+name] = v.Load()
	}
	for name, h := range c.histograms {
		snap.Histograms[c.config.MetricPrefix+name] = h.Snapshot()
	}
	snap.RecentEntries = c.ringBuffer.recent(64)
	return snap
}
