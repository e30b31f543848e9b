package kpisight

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func mustSeries(t *testing.T, values []float64) Series {
	t.Helper()
	s, err := NewSeries(values, nil)
	if err != nil {
		t.Fatalf("Failed to create series: %v", err)
	}
	return s
}

func TestDetectZScoreSpike(t *testing.T) {
	s := mustSeries(t, []float64{10, 10, 10, 10, 50, 10, 10, 10, 10})

	anomalies := DetectZScore(s, 2.0)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}

	a := anomalies[0]
	if a.Position != 4 {
		t.Errorf("Expected position 4, got %d", a.Position)
	}
	if a.Value != 50 {
		t.Errorf("Expected value 50, got %f", a.Value)
	}
	if math.Abs(a.Score-2.828) > 0.01 {
		t.Errorf("Expected score near 2.828, got %f", a.Score)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected severity high, got %s", a.Severity)
	}
	if a.Method != MethodZScore {
		t.Errorf("Expected method z_score, got %s", a.Method)
	}
	if math.Abs(a.DeviationPct-246.15) > 0.5 {
		t.Errorf("Expected deviation near 246%%, got %f", a.DeviationPct)
	}
}

func TestDetectZScoreConstantSeries(t *testing.T) {
	s := mustSeries(t, []float64{5, 5, 5, 5, 5})

	if anomalies := DetectZScore(s, 2.0); len(anomalies) != 0 {
		t.Errorf("Constant series should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectZScoreBelowThreshold(t *testing.T) {
	s := mustSeries(t, []float64{10, 10, 10, 10, 50, 10, 10, 10, 10})

	// The spike scores ~2.83, under the low-sensitivity cutoff of 3.0.
	if anomalies := DetectZScore(s, 3.0); len(anomalies) != 0 {
		t.Errorf("Expected no anomalies at threshold 3.0, got %d", len(anomalies))
	}
}

func TestDetectIQROutlier(t *testing.T) {
	s := mustSeries(t, []float64{10, 11, 12, 13, 14, 15, 16, 28, 17, 18, 19})

	anomalies := DetectIQR(s, 1.5)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}

	a := anomalies[0]
	if a.Position != 7 {
		t.Errorf("Expected position 7, got %d", a.Position)
	}
	// Q1=12.5, Q3=17.5, upper fence 25, score (28-25)/5.
	if math.Abs(a.Score-0.6) > 1e-9 {
		t.Errorf("Expected score 0.6, got %f", a.Score)
	}
}

func TestDetectIQRShortSeries(t *testing.T) {
	s := mustSeries(t, []float64{1, 2, 100})

	if anomalies := DetectIQR(s, 1.5); len(anomalies) != 0 {
		t.Errorf("Series shorter than 4 should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectIQRZeroWidth(t *testing.T) {
	s := mustSeries(t, []float64{5, 5, 5, 5, 100})

	if anomalies := DetectIQR(s, 1.5); len(anomalies) != 0 {
		t.Errorf("Zero-width IQR should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectMovingAverageSpike(t *testing.T) {
	s := mustSeries(t, []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 30})

	anomalies := DetectMovingAverage(s, 3, 2.0)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Position != 9 {
		t.Errorf("Expected position 9, got %d", anomalies[0].Position)
	}
}

func TestDetectMovingAverageWindowPrefix(t *testing.T) {
	// A large value inside the warm-up prefix must never be flagged there.
	s := mustSeries(t, []float64{100, 10, 10, 10, 10, 10, 10, 10})

	for _, a := range DetectMovingAverage(s, 3, 2.0) {
		if a.Position < 2 {
			t.Errorf("Position %d flagged before the first full window", a.Position)
		}
	}
}

func TestDetectMovingAverageShortSeries(t *testing.T) {
	s := mustSeries(t, []float64{1, 2})

	if anomalies := DetectMovingAverage(s, 3, 2.0); len(anomalies) != 0 {
		t.Errorf("Series shorter than window should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectIsolationForestDeterministic(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 10 + float64(i%3)
	}
	values[12] = 100
	s := mustSeries(t, values)

	first := DetectIsolationForest(s, 0.1)
	second := DetectIsolationForest(s, 0.1)
	if !reflect.DeepEqual(first, second) {
		t.Error("Isolation forest results should be identical across runs")
	}

	// contamination 0.1 over 20 points selects exactly 2.
	if len(first) != 2 {
		t.Fatalf("Expected 2 anomalies, got %d", len(first))
	}

	found := false
	for _, a := range first {
		if a.Position == 12 {
			found = true
		}
	}
	if !found {
		t.Error("Expected the outlier at position 12 to be selected")
	}
}

func TestDetectIsolationForestShortSeries(t *testing.T) {
	s := mustSeries(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 100})

	if anomalies := DetectIsolationForest(s, 0.1); len(anomalies) != 0 {
		t.Errorf("Series shorter than 10 should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectSeasonalTooShort(t *testing.T) {
	s := mustSeries(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	anomalies, info := DetectSeasonal(s, 7)
	if len(anomalies) != 0 {
		t.Errorf("Expected no anomalies for under two periods, got %d", len(anomalies))
	}
	if info.Present {
		t.Error("Seasonality should not be reported for under two periods")
	}
}

func TestDetectSeasonalPattern(t *testing.T) {
	values := make([]float64, 16)
	for i := range values {
		values[i] = 10
		if i%4 == 0 {
			values[i] = 15
		}
	}
	s := mustSeries(t, values)

	anomalies, info := DetectSeasonal(s, 4)
	if !info.Present {
		t.Error("Expected a seasonal pattern to be reported")
	}
	if info.Strength <= seasonalStrengthThreshold {
		t.Errorf("Expected strength above %f, got %f", seasonalStrengthThreshold, info.Strength)
	}
	if len(anomalies) != 0 {
		t.Errorf("Clean periodic series should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectSeasonalResidualSpike(t *testing.T) {
	values := make([]float64, 16)
	for i := range values {
		values[i] = 10
		if i%4 == 0 {
			values[i] = 15
		}
	}
	values[10] += 40
	s := mustSeries(t, values)

	anomalies, _ := DetectSeasonal(s, 4)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Position != 10 {
		t.Errorf("Expected position 10, got %d", anomalies[0].Position)
	}
}

func TestDetectMultivariateResidual(t *testing.T) {
	d := NewDataset()
	x := make([]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		x[i] = float64(i + 1)
		y[i] = 2 * x[i]
	}
	y[10] = 100

	if err := d.Add("driver", mustSeries(t, x)); err != nil {
		t.Fatalf("Failed to add metric: %v", err)
	}
	if err := d.Add("dependent", mustSeries(t, y)); err != nil {
		t.Fatalf("Failed to add metric: %v", err)
	}

	anomalies := DetectMultivariate(d, "dependent", 2.0)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Position != 10 {
		t.Errorf("Expected position 10, got %d", anomalies[0].Position)
	}
	if anomalies[0].Method != MethodMultivariate {
		t.Errorf("Expected method multivariate, got %s", anomalies[0].Method)
	}
}

func TestDetectMultivariateSingleMetric(t *testing.T) {
	d := NewDataset()
	if err := d.Add("solo", mustSeries(t, []float64{1, 2, 3, 4, 5})); err != nil {
		t.Fatalf("Failed to add metric: %v", err)
	}

	if anomalies := DetectMultivariate(d, "solo", 2.0); len(anomalies) != 0 {
		t.Errorf("Single-metric dataset should yield no anomalies, got %d", len(anomalies))
	}
}

func TestDetectUnknownMethod(t *testing.T) {
	s := mustSeries(t, []float64{1, 2, 3})
	cfg := DefaultAnalysisConfig()

	if _, err := Detect(s, Method(99), cfg); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
	if _, err := Detect(s, MethodMultivariate, cfg); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for multivariate, got %v", err)
	}
}

func TestRankAnomalies(t *testing.T) {
	points := []AnomalyPoint{
		{Position: 5, Score: 1.0, Severity: SeverityLow},
		{Position: 2, Score: 3.0, Severity: SeverityCritical},
		{Position: 9, Score: 2.0, Severity: SeverityHigh},
		{Position: 1, Score: 2.0, Severity: SeverityHigh},
	}

	rankAnomalies(points)

	wantPositions := []int{2, 1, 9, 5}
	for i, want := range wantPositions {
		if points[i].Position != want {
			t.Errorf("Rank %d: expected position %d, got %d", i, want, points[i].Position)
		}
	}
}
