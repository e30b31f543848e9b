// Package kpisight provides a multi-algorithm anomaly detection engine for
// time-indexed KPI data.
//
// kpisight combines statistical, ML, and time-series detection strategies with
// ensemble aggregation, severity classification, pattern recognition, and a
// deterministic report compactor suited for downstream reporting.
//
// # Basic Usage
//
// Run a full analysis pipeline over a cleaned dataset:
//
//	p, err := kpisight.NewPipeline(kpisight.PipelineConfig{
//	    Analysis: kpisight.DefaultAnalysisConfig(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := p.Ingest(ctx, "session-1", dataset); err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := p.Analyze(ctx, "session-1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := p.Report(ctx, "session-1")
//
// Or call individual detectors directly:
//
//	anomalies := kpisight.DetectZScore(series, 2.0)
//
// # Features
//
// Detection:
//   - Z-score, IQR, isolation forest, moving average, seasonal decomposition,
//     and multivariate correlation detectors
//   - Ensemble aggregation with per-detector score normalization and
//     deterministic ranking
//   - Severity classification against sensitivity-scaled tier tables
//
// Analysis:
//   - Trend direction and strength estimation
//   - Autocorrelation-based seasonality detection
//   - Pairwise-complete cross-metric correlation matrices
//
// Pipeline:
//   - Per-session state with enforced stage ordering
//   - Bounded report compaction preserving the highest-severity signal
//   - Pluggable baseline stores (in-memory, SQLite)
//   - Report export with snappy compression and AES-256-GCM encryption
package kpisight
