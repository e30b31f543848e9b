package kpisight_test

import (
	"context"
	"fmt"
	"log"

	"github.com/kpisight/kpisight"
)

func ExampleDetectZScore() {
	series, err := kpisight.NewSeries([]float64{10, 10, 10, 10, 50, 10, 10, 10, 10}, nil)
	if err != nil {
		log.Fatal(err)
	}

	for _, a := range kpisight.DetectZScore(series, 2.0) {
		fmt.Printf("position=%d value=%.0f severity=%s\n", a.Position, a.Value, a.Severity)
	}
	// Output: position=4 value=50 severity=high
}

func ExamplePipeline() {
	cfg := kpisight.DefaultAnalysisConfig()
	cfg.Method = kpisight.MethodZScore

	p, err := kpisight.NewPipeline(kpisight.PipelineConfig{Analysis: cfg})
	if err != nil {
		log.Fatal(err)
	}

	series, err := kpisight.NewSeries([]float64{10, 10, 10, 10, 50, 10, 10, 10, 10}, nil)
	if err != nil {
		log.Fatal(err)
	}
	dataset := kpisight.NewDataset()
	if err := dataset.Add("cpu", series); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := p.Ingest(ctx, "demo", dataset); err != nil {
		log.Fatal(err)
	}
	summary, err := p.Analyze(ctx, "demo")
	if err != nil {
		log.Fatal(err)
	}
	report, err := p.Report(ctx, "demo")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("metrics=%d anomalies=%d reported=%d\n",
		summary.MetricsAnalyzed, summary.TotalAnomalies, len(report.Metrics))
	// Output: metrics=1 anomalies=1 reported=1
}
