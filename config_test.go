package kpisight

import (
	"errors"
	"testing"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name     string
		expected Method
	}{
		{"z_score", MethodZScore},
		{"iqr", MethodIQR},
		{"isolation_forest", MethodIsolationForest},
		{"moving_average", MethodMovingAverage},
		{"seasonal", MethodSeasonal},
		{"multivariate", MethodMultivariate},
		{"ensemble", MethodEnsemble},
	}

	for _, tc := range tests {
		m, err := ParseMethod(tc.name)
		if err != nil {
			t.Fatalf("ParseMethod(%s) failed: %v", tc.name, err)
		}
		if m != tc.expected {
			t.Errorf("Expected %s, got %s", tc.expected, m)
		}
	}

	if _, err := ParseMethod("dbscan"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestParseSensitivity(t *testing.T) {
	for _, s := range []Sensitivity{SensitivityLow, SensitivityMedium, SensitivityHigh} {
		parsed, err := ParseSensitivity(s.String())
		if err != nil {
			t.Fatalf("ParseSensitivity(%s) failed: %v", s, err)
		}
		if parsed != s {
			t.Errorf("Round trip mismatch: %s became %s", s, parsed)
		}
	}

	if _, err := ParseSensitivity("extreme"); !errors.Is(err, ErrUnknownSensitivity) {
		t.Errorf("Expected ErrUnknownSensitivity, got %v", err)
	}
}

func TestSensitivityThresholds(t *testing.T) {
	tests := []struct {
		sensitivity Sensitivity
		expected    ThresholdProfile
	}{
		{SensitivityLow, ThresholdProfile{ZScore: 3.0, IQRMultiplier: 2.0, Contamination: 0.05}},
		{SensitivityMedium, ThresholdProfile{ZScore: 2.0, IQRMultiplier: 1.5, Contamination: 0.10}},
		{SensitivityHigh, ThresholdProfile{ZScore: 1.5, IQRMultiplier: 1.2, Contamination: 0.15}},
	}

	for _, tc := range tests {
		if got := tc.sensitivity.Thresholds(); got != tc.expected {
			t.Errorf("%s: expected %+v, got %+v", tc.sensitivity, tc.expected, got)
		}
	}
}

func TestAnalysisConfigValidateDefaults(t *testing.T) {
	cfg := AnalysisConfig{Method: MethodZScore}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.SeasonalPeriod != 7 {
		t.Errorf("Expected default seasonal period 7, got %d", cfg.SeasonalPeriod)
	}
	if cfg.MovingAverageWindow != 3 {
		t.Errorf("Expected default window 3, got %d", cfg.MovingAverageWindow)
	}
	if len(cfg.EnsembleMethods) != 3 {
		t.Errorf("Expected default ensemble methods, got %v", cfg.EnsembleMethods)
	}
}

func TestAnalysisConfigValidateRejects(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	cfg.EnsembleMethods = []Method{MethodEnsemble}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Nested ensemble should fail with ErrInvalidParameter, got %v", err)
	}

	cfg = DefaultAnalysisConfig()
	cfg.EnsembleMethods = []Method{MethodMultivariate}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Multivariate ensemble member should fail, got %v", err)
	}

	cfg = DefaultAnalysisConfig()
	cfg.Method = Method(42)
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Unknown method should fail with ErrUnknownMethod, got %v", err)
	}
}

func TestLoadAnalysisConfig(t *testing.T) {
	data := []byte(`
method: ensemble
sensitivity: high
seasonal_period: 14
ensemble_methods:
  - z_score
  - iqr
workers: 2
`)

	cfg, err := LoadAnalysisConfig(data)
	if err != nil {
		t.Fatalf("LoadAnalysisConfig failed: %v", err)
	}

	if cfg.Method != MethodEnsemble {
		t.Errorf("Expected ensemble, got %s", cfg.Method)
	}
	if cfg.Sensitivity != SensitivityHigh {
		t.Errorf("Expected high, got %s", cfg.Sensitivity)
	}
	if cfg.SeasonalPeriod != 14 {
		t.Errorf("Expected seasonal period 14, got %d", cfg.SeasonalPeriod)
	}
	if len(cfg.EnsembleMethods) != 2 {
		t.Errorf("Expected 2 ensemble methods, got %d", len(cfg.EnsembleMethods))
	}
	if cfg.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Workers)
	}
}

func TestLoadAnalysisConfigUnknownMethod(t *testing.T) {
	if _, err := LoadAnalysisConfig([]byte("method: prophet\n")); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestLoadAnalysisConfigMalformed(t *testing.T) {
	if _, err := LoadAnalysisConfig([]byte("method: [broken")); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}
