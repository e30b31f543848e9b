package kpisight

import (
	"fmt"
	"math"
)

// Series is an ordered sequence of real-valued observations with an optional
// time axis. Positions are 0-indexed and align 1:1 with timestamps when
// present. A Series is treated as immutable for the duration of an analysis
// run; NaN marks a missing observation.
type Series struct {
	Values     []float64
	Timestamps []int64
}

// NewSeries constructs a Series from values and an optional timestamp axis.
// Timestamps may be nil; when present they must match the value count.
func NewSeries(values []float64, timestamps []int64) (Series, error) {
	if len(values) == 0 {
		return Series{}, &DataError{Type: DataErrorTypeEmptySeries, Message: "series must contain at least one observation"}
	}
	if timestamps != nil && len(timestamps) != len(values) {
		return Series{}, &DataError{
			Type:    DataErrorTypeShapeMismatch,
			Message: fmt.Sprintf("timestamp count %d does not match value count %d", len(timestamps), len(values)),
		}
	}
	return Series{Values: values, Timestamps: timestamps}, nil
}

// Len returns the number of observations in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// usable reports whether the series has at least one non-missing observation.
func (s Series) usable() bool {
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Dataset is a cleaned tabular input: a mapping from metric name to Series
// with a deterministic column order. Non-numeric or all-missing columns are
// expected to be excluded before reaching the engine; Prune drops any that
// slip through.
type Dataset struct {
	columns []string
	series  map[string]Series
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{series: make(map[string]Series)}
}

// Add appends a metric column. Column names must be unique.
func (d *Dataset) Add(name string, s Series) error {
	if name == "" {
		return &DataError{Type: DataErrorTypeShapeMismatch, Message: "metric name must not be empty"}
	}
	if _, exists := d.series[name]; exists {
		return &DataError{Type: DataErrorTypeShapeMismatch, Message: fmt.Sprintf("duplicate metric %q", name)}
	}
	d.columns = append(d.columns, name)
	d.series[name] = s
	return nil
}

// Columns returns the metric names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Series returns the named metric column.
func (d *Dataset) Series(name string) (Series, bool) {
	s, ok := d.series[name]
	return s, ok
}

// NumMetrics returns the number of metric columns.
func (d *Dataset) NumMetrics() int {
	return len(d.columns)
}

// Rows returns the length of the longest column.
func (d *Dataset) Rows() int {
	rows := 0
	for _, s := range d.series {
		if s.Len() > rows {
			rows = s.Len()
		}
	}
	return rows
}

// Prune returns a copy of the dataset with empty and all-missing columns
// removed. The original dataset is not modified.
func (d *Dataset) Prune() *Dataset {
	out := NewDataset()
	for _, name := range d.columns {
		s := d.series[name]
		if s.Len() == 0 || !s.usable() {
			continue
		}
		out.columns = append(out.columns, name)
		out.series[name] = s
	}
	return out
}
