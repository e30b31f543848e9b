package kpisight

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BaselineSummary captures the distribution of a metric at analysis time so a
// later run can compare against it.
type BaselineSummary struct {
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	CapturedAt int64   `json:"captured_at"`
}

// BaselineStore persists per-metric baseline summaries across analysis runs.
// Retrieve reports absence through its boolean, not through an error.
type BaselineStore interface {
	Store(ctx context.Context, key string, summary BaselineSummary) error
	Retrieve(ctx context.Context, key string) (BaselineSummary, bool, error)
}

// BaselineKey builds the canonical baseline key for a metric and month.
func BaselineKey(metric string, t time.Time) string {
	return fmt.Sprintf("baseline_%s_%s", metric, t.Format("200601"))
}

// summarizeBaseline reduces a complete (NaN-free) value slice to a summary.
func summarizeBaseline(values []float64, capturedAt time.Time) BaselineSummary {
	lo, hi := minMax(values)
	return BaselineSummary{
		Mean:       mean(values),
		Std:        stdDev(values),
		Count:      len(values),
		Min:        lo,
		Max:        hi,
		CapturedAt: capturedAt.UnixNano(),
	}
}

// MemoryBaselineStore is an in-memory BaselineStore, safe for concurrent use.
// Later writes to the same key overwrite earlier ones.
type MemoryBaselineStore struct {
	mu        sync.RWMutex
	summaries map[string]BaselineSummary
}

// NewMemoryBaselineStore creates an empty in-memory baseline store.
func NewMemoryBaselineStore() *MemoryBaselineStore {
	return &MemoryBaselineStore{summaries: make(map[string]BaselineSummary)}
}

// Store saves a baseline summary under the key.
func (m *MemoryBaselineStore) Store(ctx context.Context, key string, summary BaselineSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[key] = summary
	return nil
}

// Retrieve returns the summary stored under the key, if any.
func (m *MemoryBaselineStore) Retrieve(ctx context.Context, key string) (BaselineSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary, ok := m.summaries[key]
	return summary, ok, nil
}

// Len returns the number of stored baselines.
func (m *MemoryBaselineStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.summaries)
}
