package kpisight

import (
	"errors"
	"math"
	"testing"
)

func TestNewSeriesValidation(t *testing.T) {
	if _, err := NewSeries(nil, nil); err == nil {
		t.Error("Empty series should be rejected")
	}

	var dataErr *DataError
	_, err := NewSeries([]float64{1, 2, 3}, []int64{10, 20})
	if !errors.As(err, &dataErr) {
		t.Fatalf("Expected a DataError for misaligned timestamps, got %v", err)
	}
	if dataErr.Type != DataErrorTypeShapeMismatch {
		t.Errorf("Expected a shape mismatch, got %d", dataErr.Type)
	}

	s, err := NewSeries([]float64{1, 2, 3}, []int64{10, 20, 30})
	if err != nil {
		t.Fatalf("Aligned series should be accepted: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("Expected length 3, got %d", s.Len())
	}
}

func TestDatasetDuplicateMetric(t *testing.T) {
	d := NewDataset()
	s := mustSeries(t, []float64{1, 2, 3})

	if err := d.Add("cpu", s); err != nil {
		t.Fatalf("First add failed: %v", err)
	}
	if err := d.Add("cpu", s); err == nil {
		t.Error("Duplicate metric names should be rejected")
	}
	if err := d.Add("", s); err == nil {
		t.Error("Empty metric names should be rejected")
	}
}

func TestDatasetPrune(t *testing.T) {
	d := NewDataset()
	if err := d.Add("good", mustSeries(t, []float64{1, 2, 3})); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := d.Add("missing", Series{Values: []float64{math.NaN(), math.NaN()}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	pruned := d.Prune()
	if pruned.NumMetrics() != 1 {
		t.Fatalf("Expected 1 metric after pruning, got %d", pruned.NumMetrics())
	}
	if _, ok := pruned.Series("missing"); ok {
		t.Error("All-missing columns should be pruned")
	}

	// The original dataset is untouched.
	if d.NumMetrics() != 2 {
		t.Errorf("Prune must not modify the source dataset, got %d metrics", d.NumMetrics())
	}
}

func TestStatsHelpers(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if m := mean(values); m != 5 {
		t.Errorf("Expected mean 5, got %f", m)
	}
	if sd := stdDev(values); sd != 2 {
		t.Errorf("Expected population std 2, got %f", sd)
	}
	if med := median([]float64{3, 1, 2}); med != 2 {
		t.Errorf("Expected median 2, got %f", med)
	}

	q1, q3 := quartiles([]float64{1, 2, 3, 4, 5})
	if q1 != 2 || q3 != 4 {
		t.Errorf("Expected quartiles 2 and 4, got %f and %f", q1, q3)
	}
}

func TestPearsonUndefined(t *testing.T) {
	if _, ok := pearson([]float64{1, 2, 3}, []float64{5, 5, 5}); ok {
		t.Error("Zero-variance input should be undefined")
	}
	if _, ok := pearson([]float64{1}, []float64{2}); ok {
		t.Error("A single pair should be undefined")
	}

	r, ok := pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	if !ok {
		t.Fatal("Expected a defined coefficient")
	}
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("Expected coefficient 1, got %f", r)
	}
}

func TestLinearFit(t *testing.T) {
	intercept, slope := linearFit([]float64{3, 5, 7, 9})
	if math.Abs(slope-2) > 1e-9 {
		t.Errorf("Expected slope 2, got %f", slope)
	}
	if math.Abs(intercept-3) > 1e-9 {
		t.Errorf("Expected intercept 3, got %f", intercept)
	}
}
