package kpisight

import (
	"math"
	"sort"
)

// AnomalyPoint is a single flagged observation. Score is only comparable
// within the same detector unless normalized by the ensemble aggregator.
type AnomalyPoint struct {
	Position     int                `json:"position"`
	Value        float64            `json:"value"`
	Score        float64            `json:"score"`
	Method       Method             `json:"method"`
	Severity     Severity           `json:"severity"`
	DeviationPct float64            `json:"deviation_pct"`
	Context      map[string]float64 `json:"context,omitempty"`
}

// rankAnomalies orders points most severe first, breaking ties by score and
// then by earliest position. The ordering is total and deterministic.
func rankAnomalies(points []AnomalyPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Position < b.Position
	})
}

// DetectZScore flags points whose standard score over the whole series
// exceeds the threshold. A zero-variance series yields no anomalies.
func DetectZScore(s Series, threshold float64) []AnomalyPoint {
	values := s.Values
	if len(values) == 0 {
		return nil
	}

	m := mean(values)
	sd := stdDev(values)
	if sd == 0 {
		return nil
	}

	var results []AnomalyPoint
	for i, v := range values {
		z := math.Abs(v-m) / sd
		if z <= threshold {
			continue
		}
		deviation := 0.0
		if m != 0 {
			deviation = (v - m) / m * 100
		}
		results = append(results, AnomalyPoint{
			Position:     i,
			Value:        v,
			Score:        z,
			Method:       MethodZScore,
			Severity:     ClassifySeverity(z, threshold),
			DeviationPct: deviation,
			Context:      map[string]float64{"mean": m, "std": sd},
		})
	}
	return results
}

// iqrMinLength is the shortest series with meaningful quartiles.
const iqrMinLength = 4

// DetectIQR flags points outside the interquartile fences
// [Q1 - k*IQR, Q3 + k*IQR]. Series shorter than four points, or with a
// degenerate zero-width interquartile range, yield no anomalies.
func DetectIQR(s Series, multiplier float64) []AnomalyPoint {
	values := s.Values
	if len(values) < iqrMinLength {
		return nil
	}

	q1, q3 := quartiles(values)
	iqr := q3 - q1
	if iqr == 0 {
		return nil
	}

	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr
	med := median(values)

	var results []AnomalyPoint
	for i, v := range values {
		if v >= lower && v <= upper {
			continue
		}
		var score float64
		if v < lower {
			score = (lower - v) / iqr
		} else {
			score = (v - upper) / iqr
		}
		deviation := 0.0
		if med != 0 {
			deviation = (v - med) / med * 100
		}
		results = append(results, AnomalyPoint{
			Position:     i,
			Value:        v,
			Score:        score,
			Method:       MethodIQR,
			Severity:     ClassifySeverity(score, multiplier),
			DeviationPct: deviation,
			Context:      map[string]float64{"q1": q1, "q3": q3, "iqr": iqr},
		})
	}
	return results
}

// DetectMovingAverage flags points whose deviation from the trailing
// window mean is large relative to the spread of all windowed deviations.
// The first window-1 positions have no full trailing window and never emit
// an anomaly.
func DetectMovingAverage(s Series, window int, threshold float64) []AnomalyPoint {
	values := s.Values
	if window < 2 || len(values) < window {
		return nil
	}

	// Windowed mean and deviation are defined from position window-1 onward.
	ma := make([]float64, len(values))
	deviations := make([]float64, 0, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		ma[i] = mean(values[i-window+1 : i+1])
		deviations = append(deviations, math.Abs(values[i]-ma[i]))
	}

	sd := stdDev(deviations)
	if sd == 0 {
		return nil
	}

	var results []AnomalyPoint
	for i := window - 1; i < len(values); i++ {
		z := math.Abs(values[i]-ma[i]) / sd
		if z <= threshold {
			continue
		}
		deviation := 0.0
		if ma[i] != 0 {
			deviation = (values[i] - ma[i]) / ma[i] * 100
		}
		results = append(results, AnomalyPoint{
			Position:     i,
			Value:        values[i],
			Score:        z,
			Method:       MethodMovingAverage,
			Severity:     ClassifySeverity(z, threshold),
			DeviationPct: deviation,
			Context:      map[string]float64{"moving_avg": ma[i], "window": float64(window)},
		})
	}
	return results
}

// Detect runs the configured single-series detection method. Multivariate
// and ensemble detection require additional inputs and have dedicated entry
// points; Detect routes them through defaults where possible.
func Detect(s Series, method Method, cfg AnalysisConfig) ([]AnomalyPoint, error) {
	profile := cfg.Sensitivity.Thresholds()

	switch method {
	case MethodZScore:
		return DetectZScore(s, profile.ZScore), nil
	case MethodIQR:
		return DetectIQR(s, profile.IQRMultiplier), nil
	case MethodIsolationForest:
		return DetectIsolationForest(s, profile.Contamination), nil
	case MethodMovingAverage:
		return DetectMovingAverage(s, cfg.MovingAverageWindow, profile.ZScore), nil
	case MethodSeasonal:
		points, _ := DetectSeasonal(s, cfg.SeasonalPeriod)
		return points, nil
	case MethodEnsemble:
		return DetectEnsemble(s, cfg.EnsembleMethods, cfg)
	case MethodMultivariate:
		return nil, newConfigError(ConfigErrorTypeParameter, "method", "multivariate detection requires a dataset; use DetectMultivariate")
	default:
		return nil, newConfigError(ConfigErrorTypeMethod, "method", "unknown detection method "+method.String())
	}
}
