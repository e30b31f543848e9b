package kpisight

import "math"

// multivariatePredictorMin is the minimum |r| for another metric to join the
// prediction for a target metric.
const multivariatePredictorMin = 0.3

// DetectMultivariate flags points of the target metric whose residual
// against the value predicted from correlated metrics exceeds the threshold.
// Predictions combine per-metric least-squares fits weighted by r^2.
// Datasets with fewer than two metrics, or without any usable predictor,
// yield no anomalies.
func DetectMultivariate(d *Dataset, metric string, threshold float64) []AnomalyPoint {
	target, ok := d.Series(metric)
	if !ok || d.NumMetrics() < 2 {
		return nil
	}
	values := target.Values

	type predictor struct {
		series []float64
		slope  float64
		icept  float64
		weight float64
	}
	var predictors []predictor

	for _, name := range d.Columns() {
		if name == metric {
			continue
		}
		other, _ := d.Series(name)
		if other.Len() != len(values) {
			continue
		}
		r, defined := pearson(values, other.Values)
		if !defined || math.Abs(r) < multivariatePredictorMin {
			continue
		}

		// Least-squares fit of target on the other metric over complete pairs.
		slope, icept, fitted := regress(values, other.Values)
		if !fitted {
			continue
		}
		predictors = append(predictors, predictor{
			series: other.Values,
			slope:  slope,
			icept:  icept,
			weight: r * r,
		})
	}
	if len(predictors) == 0 {
		return nil
	}

	predicted := make([]float64, len(values))
	defined := make([]bool, len(values))
	for i := range values {
		var sum, weight float64
		for _, p := range predictors {
			if math.IsNaN(p.series[i]) {
				continue
			}
			sum += p.weight * (p.icept + p.slope*p.series[i])
			weight += p.weight
		}
		if weight > 0 {
			predicted[i] = sum / weight
			defined[i] = true
		}
	}

	residuals := make([]float64, 0, len(values))
	for i, v := range values {
		if defined[i] && !math.IsNaN(v) {
			residuals = append(residuals, v-predicted[i])
		}
	}
	residStd := stdDev(residuals)
	if residStd == 0 {
		return nil
	}

	var results []AnomalyPoint
	for i, v := range values {
		if !defined[i] || math.IsNaN(v) {
			continue
		}
		z := math.Abs(v-predicted[i]) / residStd
		if z <= threshold {
			continue
		}
		deviation := 0.0
		if predicted[i] != 0 {
			deviation = (v - predicted[i]) / predicted[i] * 100
		}
		results = append(results, AnomalyPoint{
			Position:     i,
			Value:        v,
			Score:        z,
			Method:       MethodMultivariate,
			Severity:     ClassifySeverity(z, threshold),
			DeviationPct: deviation,
			Context:      map[string]float64{"predicted": predicted[i], "predictors": float64(len(predictors))},
		})
	}
	return results
}

// regress fits y = icept + slope*x over pairwise-complete observations.
func regress(y, x []float64) (slope, icept float64, ok bool) {
	n := len(y)
	if len(x) < n {
		n = len(x)
	}

	var sumX, sumY float64
	count := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		sumX += x[i]
		sumY += y[i]
		count++
	}
	if count < 2 {
		return 0, 0, false
	}
	meanX := sumX / float64(count)
	meanY := sumY / float64(count)

	var cov, varX float64
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		cov += (x[i] - meanX) * (y[i] - meanY)
		varX += (x[i] - meanX) * (x[i] - meanX)
	}
	if varX == 0 {
		return 0, 0, false
	}
	slope = cov / varX
	icept = meanY - slope*meanX
	return slope, icept, true
}
