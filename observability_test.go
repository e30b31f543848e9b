package kpisight

import (
	"testing"
	"time"
)

func TestMetricsCollectorCounters(t *testing.T) {
	c := NewMetricsCollector(DefaultCollectorConfig())

	c.IncrCounter("anomalies.total", 3)
	c.IncrCounter("anomalies.total", 2)
	c.SetGauge("metrics.analyzed", 7)

	snap := c.Snapshot()
	if snap.Counters["kpisight.anomalies.total"] != 5 {
		t.Errorf("Expected counter 5, got %d", snap.Counters["kpisight.anomalies.total"])
	}
	if snap.Gauges["kpisight.metrics.analyzed"] != 7 {
		t.Errorf("Expected gauge 7, got %d", snap.Gauges["kpisight.metrics.analyzed"])
	}
}

func TestMetricsCollectorStageTimings(t *testing.T) {
	c := NewMetricsCollector(DefaultCollectorConfig())

	c.ObserveStage(StageAnalyze, 20*time.Millisecond)
	c.ObserveStage(StageAnalyze, 40*time.Millisecond)

	snap := c.Snapshot()
	hist, ok := snap.Histograms["kpisight.stage.analyze"]
	if !ok {
		t.Fatal("Expected a histogram for the analyze stage")
	}
	if hist.Count != 2 {
		t.Errorf("Expected 2 observations, got %d", hist.Count)
	}
	if hist.Min > hist.Max {
		t.Errorf("Histogram min %f exceeds max %f", hist.Min, hist.Max)
	}
	if snap.Counters["kpisight.stage.analyze.runs"] != 2 {
		t.Errorf("Expected 2 stage runs, got %d", snap.Counters["kpisight.stage.analyze.runs"])
	}
	if len(snap.RecentEntries) != 2 {
		t.Errorf("Expected 2 recent entries, got %d", len(snap.RecentEntries))
	}
}

func TestMetricsCollectorDisabled(t *testing.T) {
	c := NewMetricsCollector(CollectorConfig{Enabled: false, MetricPrefix: "kpisight."})

	c.IncrCounter("ignored", 1)
	c.ObserveDuration("ignored", time.Second)

	snap := c.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Error("A disabled collector should record nothing")
	}
}

func TestMetricRingBufferOverflow(t *testing.T) {
	rb := newMetricRingBuffer(4)
	for i := 0; i < 10; i++ {
		rb.push(MetricEntry{Name: "e", Value: float64(i)})
	}

	recent := rb.recent(10)
	if len(recent) != 4 {
		t.Fatalf("Expected 4 retained entries, got %d", len(recent))
	}
	if recent[0].Value != 9 {
		t.Errorf("Expected newest entry first, got %f", recent[0].Value)
	}
	if recent[3].Value != 6 {
		t.Errorf("Expected oldest retained entry 6, got %f", recent[3].Value)
	}
}

func TestDurationHistogramSnapshot(t *testing.T) {
	h := NewDurationHistogram()
	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		h.Record(v)
	}

	snap := h.Snapshot()
	if snap.Count != 10 {
		t.Errorf("Expected count 10, got %d", snap.Count)
	}
	if snap.Min != 1 || snap.Max != 10 {
		t.Errorf("Expected min 1 max 10, got %f and %f", snap.Min, snap.Max)
	}
	if snap.Avg != 5.5 {
		t.Errorf("Expected avg 5.5, got %f", snap.Avg)
	}
	if snap.P50 != 5.5 {
		t.Errorf("Expected p50 5.5, got %f", snap.P50)
	}
}
