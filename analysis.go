package kpisight

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// strongCorrelationCutoff is the absolute coefficient above which a
// relationship is attached to a metric's analysis.
const strongCorrelationCutoff = 0.7

// MetricAnalysis is the per-metric result of an analysis run.
type MetricAnalysis struct {
	MetricName   string              `json:"metric_name"`
	BaselineMean float64             `json:"baseline_mean"`
	BaselineStd  float64             `json:"baseline_std"`
	Anomalies    []AnomalyPoint      `json:"anomalies"`
	Trend        TrendSummary        `json:"trend"`
	Seasonality  SeasonalitySummary  `json:"seasonality"`
	Correlations []MetricCorrelation `json:"correlations,omitempty"`
}

// Analyzer runs the configured detection method over every metric of a
// dataset. Metric-level work is spread over a bounded worker pool; results
// are deterministic regardless of worker count.
type Analyzer struct {
	cfg AnalysisConfig
}

// NewAnalyzer validates the configuration and returns an analyzer.
func NewAnalyzer(cfg AnalysisConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the validated configuration the analyzer runs with.
func (a *Analyzer) Config() AnalysisConfig {
	return a.cfg
}

// Analyze runs detection over every usable metric in the dataset and returns
// one MetricAnalysis per metric in dataset column order. Datasets with zero
// usable metrics return a DataError.
func (a *Analyzer) Analyze(ctx context.Context, d *Dataset) ([]MetricAnalysis, error) {
	pruned := d.Prune()
	columns := pruned.Columns()
	if len(columns) == 0 {
		return nil, &DataError{Type: DataErrorTypeNoUsableMetrics, Message: "dataset contains no usable metrics"}
	}

	var matrix *CorrelationMatrix
	if a.cfg.EnableMultivariate {
		matrix = ComputeCorrelations(pruned)
	}

	results := make([]MetricAnalysis, len(columns))
	errs := make([]error, len(columns))

	sem := make(chan struct{}, a.cfg.Workers)
	var wg sync.WaitGroup
	for i, name := range columns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = a.analyzeMetric(pruned, name, matrix)
		}(i, name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Analyzer) analyzeMetric(d *Dataset, name string, matrix *CorrelationMatrix) (MetricAnalysis, error) {
	s, _ := d.Series(name)
	complete := dropMissing(s.Values)

	analysis := MetricAnalysis{
		MetricName:   name,
		BaselineMean: mean(complete),
		BaselineStd:  stdDev(complete),
	}

	var anomalies []AnomalyPoint
	var err error
	if a.cfg.Method == MethodMultivariate {
		anomalies = DetectMultivariate(d, name, a.cfg.Sensitivity.Thresholds().ZScore)
	} else {
		anomalies, err = Detect(Series{Values: complete}, a.cfg.Method, a.cfg)
		if err != nil {
			return MetricAnalysis{}, err
		}
	}
	rankAnomalies(anomalies)
	analysis.Anomalies = anomalies

	if a.cfg.EnableSeasonality {
		analysis.Trend = RecognizeTrend(Series{Values: complete})
		analysis.Seasonality = RecognizeSeasonality(Series{Values: complete})
	}
	if matrix != nil {
		analysis.Correlations = matrix.Strong(name, strongCorrelationCutoff)
	}
	return analysis, nil
}

// dropMissing returns the values with NaN observations removed. Positions in
// detector output refer to the compacted sequence.
func dropMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
