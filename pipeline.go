package kpisight

import (
	"context"
	"time"
)

// Pipeline stage names, used in stage durations and state errors.
const (
	StageIngest  = "ingest"
	StageAnalyze = "analyze"
	StageContext = "context"
	StageReport  = "report"
)

// AnalysisSummary is the caller-facing digest returned by the analyze stage.
type AnalysisSummary struct {
	MetricsAnalyzed   int         `json:"metrics_analyzed"`
	TotalAnomalies    int         `json:"total_anomalies"`
	CriticalAnomalies int         `json:"critical_anomalies"`
	Method            Method      `json:"method"`
	Sensitivity       Sensitivity `json:"sensitivity"`
}

// PipelineConfig configures a pipeline.
type PipelineConfig struct {
	// Analysis configures the detection run per session.
	Analysis AnalysisConfig

	// Baselines receives per-metric distribution summaries during analyze.
	// Nil disables baseline capture.
	Baselines BaselineStore

	// Metrics receives stage timings and counters. Nil disables collection.
	Metrics *MetricsCollector
}

// Pipeline drives sessions through ingest, analyze, optional context
// attachment, and report. Stages for one session run under that session's
// mutex; a stage invoked out of order returns a StateError and leaves the
// session unchanged.
type Pipeline struct {
	analyzer  *Analyzer
	store     *SessionStore
	baselines BaselineStore
	metrics   *MetricsCollector
	now       func() time.Time
}

// NewPipeline validates the configuration and returns a pipeline with an
// empty session store.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	analyzer, err := NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		analyzer:  analyzer,
		store:     NewSessionStore(),
		baselines: cfg.Baselines,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}, nil
}

// Sessions returns the pipeline's session store.
func (p *Pipeline) Sessions() *SessionStore {
	return p.store
}

// Ingest loads a dataset into the session, creating the session on first
// use, and retains both the raw dataset and its pruned form. Re-ingesting
// replaces the data and clears downstream stage results.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, d *Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := p.now()
	session := p.store.getOrCreate(sessionID, start)

	session.mu.Lock()
	defer session.mu.Unlock()

	session.rawData = d
	session.cleanedData = d.Prune()
	session.analyses = nil
	session.summary = AnalysisSummary{}
	session.report = nil
	session.annotations = nil
	session.recordStage(StageIngest, p.now().Sub(start), p.now())

	p.observeStage(StageIngest, p.now().Sub(start))
	return nil
}

// Analyze runs detection over the session's ingested dataset, stores the
// per-metric analyses and summary, and captures per-metric baselines. It
// requires a prior Ingest.
func (p *Pipeline) Analyze(ctx context.Context, sessionID string) (AnalysisSummary, error) {
	start := p.now()
	session, err := p.store.Get(sessionID)
	if err != nil {
		return AnalysisSummary{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.cleanedData == nil {
		return AnalysisSummary{}, newStateError(StateErrorTypeMissing, StageAnalyze, "no dataset ingested")
	}

	analyses, err := p.analyzer.Analyze(ctx, session.cleanedData)
	if err != nil {
		return AnalysisSummary{}, err
	}

	cfg := p.analyzer.Config()
	summary := AnalysisSummary{
		MetricsAnalyzed: len(analyses),
		Method:          cfg.Method,
		Sensitivity:     cfg.Sensitivity,
	}
	for _, a := range analyses {
		summary.TotalAnomalies += len(a.Anomalies)
		for _, point := range a.Anomalies {
			if point.Severity >= SeverityCritical {
				summary.CriticalAnomalies++
			}
		}
	}

	if err := p.captureBaselines(ctx, session.cleanedData, analyses, start); err != nil {
		return AnalysisSummary{}, err
	}

	session.analyses = analyses
	session.summary = summary
	session.recordStage(StageAnalyze, p.now().Sub(start), p.now())

	p.observeStage(StageAnalyze, p.now().Sub(start))
	if p.metrics != nil {
		p.metrics.IncrCounter("anomalies.total", int64(summary.TotalAnomalies))
		p.metrics.IncrCounter("anomalies.critical", int64(summary.CriticalAnomalies))
		p.metrics.SetGauge("metrics.analyzed", int64(summary.MetricsAnalyzed))
	}
	return summary, nil
}

// AttachContext appends external context to an analyzed session. It requires
// a prior Analyze, so annotations always refer to concrete findings.
func (p *Pipeline) AttachContext(sessionID string, annotation ContextAnnotation) error {
	session, err := p.store.Get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.analyses == nil {
		return newStateError(StateErrorTypeMissing, StageContext, "session has not been analyzed")
	}
	if annotation.AddedAt.IsZero() {
		annotation.AddedAt = p.now()
	}
	session.annotations = append(session.annotations, annotation)
	session.metadata.UpdatedAt = p.now()
	return nil
}

// Report compacts the session's analyses into the final report and stores it
// on the session. It requires a prior Analyze; attached context rides along.
func (p *Pipeline) Report(ctx context.Context, sessionID string) (*CompactReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := p.now()
	session, err := p.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.analyses == nil {
		return nil, newStateError(StateErrorTypeMissing, StageReport, "session has not been analyzed")
	}

	cfg := p.analyzer.Config()
	report := CompactReportFrom(session.analyses, ReportMetadata{
		SessionID:        sessionID,
		GeneratedAt:      start,
		Method:           cfg.Method,
		Sensitivity:      cfg.Sensitivity,
		AnalysisDuration: session.metadata.StageDurations[StageAnalyze],
	})
	report.Annotations = append(report.Annotations, session.annotations...)

	session.report = report
	session.recordStage(StageReport, p.now().Sub(start), p.now())

	p.observeStage(StageReport, p.now().Sub(start))
	return report, nil
}

// captureBaselines writes one distribution summary per analyzed metric,
// keyed by metric and month. Baseline capture is best-effort bookkeeping
// only in the sense that a nil store skips it; with a store configured,
// failures surface.
func (p *Pipeline) captureBaselines(ctx context.Context, d *Dataset, analyses []MetricAnalysis, now time.Time) error {
	if p.baselines == nil {
		return nil
	}
	for _, a := range analyses {
		s, ok := d.Series(a.MetricName)
		if !ok {
			continue
		}
		summary := summarizeBaseline(dropMissing(s.Values), now)
		if err := p.baselines.Store(ctx, BaselineKey(a.MetricName, now), summary); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) observeStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, d)
	}
}
