package kpisight

import "math"

// seasonalResidualThreshold is the residual standard-score cutoff for the
// seasonal detector.
const seasonalResidualThreshold = 2.5

// seasonalStrengthThreshold is the minimum ratio of seasonal-component
// spread to series spread required to claim periodicity.
const seasonalStrengthThreshold = 0.1

// SeasonalInfo is the side output of seasonal decomposition: whether a
// periodic pattern is present and which way the level is heading.
type SeasonalInfo struct {
	Present        bool
	Strength       float64
	TrendDirection TrendDirection
}

// DetectSeasonal decomposes the series into level, seasonal, and residual
// components and flags positions whose residual standard score exceeds the
// residual threshold. It requires at least two full periods; shorter series
// yield no anomalies and Present=false.
func DetectSeasonal(s Series, period int) ([]AnomalyPoint, SeasonalInfo) {
	values := s.Values
	info := SeasonalInfo{TrendDirection: TrendFlat}
	if period < 2 || len(values) < 2*period {
		return nil, info
	}

	// Level: least-squares linear fit over the full series.
	intercept, slope := linearFit(values)
	level := make([]float64, len(values))
	for i := range values {
		level[i] = intercept + slope*float64(i)
	}

	// Seasonal: positional means of the detrended values.
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i, v := range values {
		pos := i % period
		pattern[pos] += v - level[i]
		counts[pos]++
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
	}

	// Residual: what level and seasonality leave unexplained.
	residuals := make([]float64, len(values))
	for i, v := range values {
		residuals[i] = v - level[i] - pattern[i%period]
	}

	valueStd := stdDev(values)
	if valueStd > 0 {
		info.Strength = stdDev(pattern) / valueStd
		info.Present = info.Strength > seasonalStrengthThreshold
	}
	info.TrendDirection = trendDirectionFromSlope(slope, values)

	residStd := stdDev(residuals)
	if residStd == 0 {
		return nil, info
	}

	var results []AnomalyPoint
	for i, r := range residuals {
		z := math.Abs(r) / residStd
		if z <= seasonalResidualThreshold {
			continue
		}
		deviation := 0.0
		if values[i] != 0 {
			deviation = r / values[i] * 100
		}
		results = append(results, AnomalyPoint{
			Position:     i,
			Value:        values[i],
			Score:        z,
			Method:       MethodSeasonal,
			Severity:     ClassifySeverity(z, seasonalResidualThreshold),
			DeviationPct: deviation,
			Context: map[string]float64{
				"residual": r,
				"level":    level[i],
				"seasonal": pattern[i%period],
			},
		})
	}
	return results, info
}
