package kpisight

import "time"

const (
	// reportMaxAnomalies caps the anomalies carried per metric.
	reportMaxAnomalies = 3
	// reportCorrelationCutoff is the minimum |r| a relationship needs to
	// survive compaction.
	reportCorrelationCutoff = 0.7
)

// CompactAnomaly is the trimmed per-anomaly record carried by a report.
type CompactAnomaly struct {
	Position     int      `json:"position"`
	Value        float64  `json:"value"`
	Score        float64  `json:"score"`
	Method       Method   `json:"method"`
	Severity     Severity `json:"severity"`
	DeviationPct float64  `json:"deviation_pct"`
}

// CompactMetric is one metric's entry in a compacted report.
type CompactMetric struct {
	Name           string              `json:"name"`
	BaselineMean   float64             `json:"baseline_mean"`
	BaselineStd    float64             `json:"baseline_std"`
	TotalAnomalies int                 `json:"total_anomalies"`
	Anomalies      []CompactAnomaly    `json:"anomalies,omitempty"`
	Trend          TrendSummary        `json:"trend"`
	Seasonality    SeasonalitySummary  `json:"seasonality"`
	Correlations   []MetricCorrelation `json:"correlations,omitempty"`
}

// ReportMetadata describes the run that produced a report.
type ReportMetadata struct {
	SessionID        string        `json:"session_id,omitempty"`
	GeneratedAt      time.Time     `json:"generated_at"`
	Method           Method        `json:"method"`
	Sensitivity      Sensitivity   `json:"sensitivity"`
	AnalysisDuration time.Duration `json:"analysis_duration"`
}

// CompactReport is the compacted end product of an analysis run: per metric,
// the top anomalies, pattern summaries, and strong correlations only.
// Compaction is a pure reduction of existing analyses; it never re-runs
// detection.
type CompactReport struct {
	Metadata    ReportMetadata      `json:"metadata"`
	Metrics     []CompactMetric     `json:"metrics"`
	Annotations []ContextAnnotation `json:"annotations,omitempty"`
}

// CompactReportFrom reduces analyses to a report. A metric earns an entry
// when it has at least one anomaly or one correlation at or above the
// report cutoff; metrics with a critical or high anomaly always survive.
// Input order is preserved, so identical analyses compact identically.
func CompactReportFrom(analyses []MetricAnalysis, meta ReportMetadata) *CompactReport {
	report := &CompactReport{Metadata: meta}

	for _, a := range analyses {
		strong := filterCorrelations(a.Correlations, reportCorrelationCutoff)
		if len(a.Anomalies) == 0 && len(strong) == 0 {
			continue
		}

		top := a.Anomalies
		if len(top) > reportMaxAnomalies {
			top = top[:reportMaxAnomalies]
		}
		anomalies := make([]CompactAnomaly, len(top))
		for i, p := range top {
			anomalies[i] = CompactAnomaly{
				Position:     p.Position,
				Value:        p.Value,
				Score:        p.Score,
				Method:       p.Method,
				Severity:     p.Severity,
				DeviationPct: p.DeviationPct,
			}
		}

		report.Metrics = append(report.Metrics, CompactMetric{
			Name:           a.MetricName,
			BaselineMean:   a.BaselineMean,
			BaselineStd:    a.BaselineStd,
			TotalAnomalies: len(a.Anomalies),
			Anomalies:      anomalies,
			Trend:          a.Trend,
			Seasonality:    a.Seasonality,
			Correlations:   strong,
		})
	}
	return report
}

func filterCorrelations(correlations []MetricCorrelation, cutoff float64) []MetricCorrelation {
	var out []MetricCorrelation
	for _, c := range correlations {
		if abs(c.Coefficient) >= cutoff {
			out = append(out, c)
		}
	}
	return out
}
