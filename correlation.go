package kpisight

import "sort"

// MetricCorrelation is one pairwise relationship between two metrics.
type MetricCorrelation struct {
	Metric      string  `json:"metric"`
	Coefficient float64 `json:"coefficient"`
}

// CorrelationMatrix holds pairwise Pearson coefficients between metrics.
// Undefined pairs (zero variance or fewer than two complete observations)
// are absent rather than zero, so absence and independence stay
// distinguishable.
type CorrelationMatrix struct {
	pairs map[string]map[string]float64
}

// ComputeCorrelations builds the pairwise correlation matrix for a dataset
// over pairwise-complete observations. The diagonal is excluded and the
// matrix is symmetric.
func ComputeCorrelations(d *Dataset) *CorrelationMatrix {
	matrix := &CorrelationMatrix{pairs: make(map[string]map[string]float64)}

	columns := d.Columns()
	for i, a := range columns {
		sa, _ := d.Series(a)
		for _, b := range columns[i+1:] {
			sb, _ := d.Series(b)
			r, defined := pearson(sa.Values, sb.Values)
			if !defined {
				continue
			}
			matrix.set(a, b, r)
			matrix.set(b, a, r)
		}
	}
	return matrix
}

func (m *CorrelationMatrix) set(a, b string, r float64) {
	row, ok := m.pairs[a]
	if !ok {
		row = make(map[string]float64)
		m.pairs[a] = row
	}
	row[b] = r
}

// Coefficient returns the correlation between two metrics. The second return
// value is false when the pair is undefined or unknown.
func (m *CorrelationMatrix) Coefficient(a, b string) (float64, bool) {
	row, ok := m.pairs[a]
	if !ok {
		return 0, false
	}
	r, ok := row[b]
	return r, ok
}

// For returns all defined correlations for one metric, strongest first by
// absolute coefficient, ties broken by metric name.
func (m *CorrelationMatrix) For(metric string) []MetricCorrelation {
	row, ok := m.pairs[metric]
	if !ok {
		return nil
	}

	out := make([]MetricCorrelation, 0, len(row))
	for name, r := range row {
		out = append(out, MetricCorrelation{Metric: name, Coefficient: r})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Coefficient), abs(out[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}

// Strong returns the correlations for one metric whose absolute coefficient
// meets the cutoff, strongest first.
func (m *CorrelationMatrix) Strong(metric string, cutoff float64) []MetricCorrelation {
	all := m.For(metric)
	out := all[:0:0]
	for _, c := range all {
		if abs(c.Coefficient) >= cutoff {
			out = append(out, c)
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
