package kpisight

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Method identifies a detection strategy. The set is closed: every detector
// shares the same call contract and unknown values fail configuration
// validation rather than falling back silently.
type Method int

const (
	// MethodZScore flags points by standard-score distance from the mean.
	MethodZScore Method = iota
	// MethodIQR flags points outside the interquartile fences.
	MethodIQR
	// MethodIsolationForest flags points by partitioning-based isolation score.
	MethodIsolationForest
	// MethodMovingAverage flags points by deviation from a trailing window mean.
	MethodMovingAverage
	// MethodSeasonal flags points by residual after seasonal decomposition.
	MethodSeasonal
	// MethodMultivariate flags points by residual against correlated metrics.
	MethodMultivariate
	// MethodEnsemble combines multiple detectors into one ranked result.
	MethodEnsemble
)

func (m Method) String() string {
	switch m {
	case MethodZScore:
		return "z_score"
	case MethodIQR:
		return "iqr"
	case MethodIsolationForest:
		return "isolation_forest"
	case MethodMovingAverage:
		return "moving_average"
	case MethodSeasonal:
		return "seasonal"
	case MethodMultivariate:
		return "multivariate"
	case MethodEnsemble:
		return "ensemble"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the method as its string name.
func (m Method) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a method from its string name.
func (m *Method) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseMethod(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod resolves a method name. Unknown names return a ConfigError.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "z_score":
		return MethodZScore, nil
	case "iqr":
		return MethodIQR, nil
	case "isolation_forest":
		return MethodIsolationForest, nil
	case "moving_average":
		return MethodMovingAverage, nil
	case "seasonal":
		return MethodSeasonal, nil
	case "multivariate":
		return MethodMultivariate, nil
	case "ensemble":
		return MethodEnsemble, nil
	default:
		return 0, newConfigError(ConfigErrorTypeMethod, "method", fmt.Sprintf("unknown detection method %q", s))
	}
}

// Sensitivity selects a numeric threshold family used uniformly by all
// threshold-based detectors. It is resolved once per analysis run.
type Sensitivity int

const (
	// SensitivityLow flags only extreme deviations.
	SensitivityLow Sensitivity = iota
	// SensitivityMedium is the balanced default.
	SensitivityMedium
	// SensitivityHigh flags mild deviations.
	SensitivityHigh
)

func (s Sensitivity) String() string {
	switch s {
	case SensitivityLow:
		return "low"
	case SensitivityMedium:
		return "medium"
	case SensitivityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the sensitivity as its string name.
func (s Sensitivity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a sensitivity from its string name.
func (s *Sensitivity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSensitivity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSensitivity resolves a sensitivity name. Unknown names return a
// ConfigError.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch s {
	case "low":
		return SensitivityLow, nil
	case "medium":
		return SensitivityMedium, nil
	case "high":
		return SensitivityHigh, nil
	default:
		return 0, newConfigError(ConfigErrorTypeSensitivity, "sensitivity", fmt.Sprintf("unknown sensitivity profile %q", s))
	}
}

// ThresholdProfile holds the numeric thresholds a sensitivity level maps to.
type ThresholdProfile struct {
	// ZScore is the standard-score cutoff for z-score-family detectors.
	ZScore float64
	// IQRMultiplier scales the interquartile fences.
	IQRMultiplier float64
	// Contamination is the expected anomaly proportion for the isolation forest.
	Contamination float64
}

// Thresholds returns the threshold family for the sensitivity level.
func (s Sensitivity) Thresholds() ThresholdProfile {
	switch s {
	case SensitivityLow:
		return ThresholdProfile{ZScore: 3.0, IQRMultiplier: 2.0, Contamination: 0.05}
	case SensitivityHigh:
		return ThresholdProfile{ZScore: 1.5, IQRMultiplier: 1.2, Contamination: 0.15}
	default:
		return ThresholdProfile{ZScore: 2.0, IQRMultiplier: 1.5, Contamination: 0.10}
	}
}

// AnalysisConfig configures a single analysis run.
type AnalysisConfig struct {
	// Method is the detection strategy to run per metric.
	Method Method

	// Sensitivity selects the threshold family for all detectors.
	Sensitivity Sensitivity

	// EnableSeasonality computes trend and seasonal patterns per metric.
	EnableSeasonality bool

	// EnableMultivariate computes cross-metric correlation context.
	EnableMultivariate bool

	// SeasonalPeriod is the candidate period for the seasonal detector.
	// Default: 7.
	SeasonalPeriod int

	// MovingAverageWindow is the trailing window for the moving-average
	// detector. Default: 3.
	MovingAverageWindow int

	// EnsembleMethods is the detector subset combined by the ensemble.
	// Default: z_score, iqr, moving_average.
	EnsembleMethods []Method

	// Workers bounds metric-level parallelism. Default: GOMAXPROCS.
	Workers int
}

// DefaultAnalysisConfig returns the default analysis configuration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Method:              MethodEnsemble,
		Sensitivity:         SensitivityMedium,
		EnableSeasonality:   true,
		EnableMultivariate:  true,
		SeasonalPeriod:      7,
		MovingAverageWindow: 3,
		EnsembleMethods:     []Method{MethodZScore, MethodIQR, MethodMovingAverage},
	}
}

// Validate checks the configuration, applying defaults for zero values.
func (c *AnalysisConfig) Validate() error {
	if c.Method < MethodZScore || c.Method > MethodEnsemble {
		return newConfigError(ConfigErrorTypeMethod, "method", fmt.Sprintf("unknown detection method %d", c.Method))
	}
	if c.Sensitivity < SensitivityLow || c.Sensitivity > SensitivityHigh {
		return newConfigError(ConfigErrorTypeSensitivity, "sensitivity", fmt.Sprintf("unknown sensitivity profile %d", c.Sensitivity))
	}
	if c.SeasonalPeriod < 0 {
		return newConfigError(ConfigErrorTypeParameter, "seasonal_period", "must be positive")
	}
	if c.SeasonalPeriod == 0 {
		c.SeasonalPeriod = 7
	}
	if c.MovingAverageWindow < 0 {
		return newConfigError(ConfigErrorTypeParameter, "moving_average_window", "must be positive")
	}
	if c.MovingAverageWindow == 0 {
		c.MovingAverageWindow = 3
	}
	if len(c.EnsembleMethods) == 0 {
		c.EnsembleMethods = []Method{MethodZScore, MethodIQR, MethodMovingAverage}
	}
	for _, m := range c.EnsembleMethods {
		if m == MethodEnsemble {
			return newConfigError(ConfigErrorTypeParameter, "ensemble_methods", "ensemble cannot contain itself")
		}
		if m == MethodMultivariate {
			return newConfigError(ConfigErrorTypeParameter, "ensemble_methods", "multivariate requires the full dataset and cannot join a single-series ensemble")
		}
		if m < MethodZScore || m > MethodMultivariate {
			return newConfigError(ConfigErrorTypeMethod, "ensemble_methods", fmt.Sprintf("unknown detection method %d", m))
		}
	}
	return nil
}

// analysisConfigFile is the YAML representation of AnalysisConfig.
type analysisConfigFile struct {
	Method              string   `yaml:"method"`
	Sensitivity         string   `yaml:"sensitivity"`
	EnableSeasonality   *bool    `yaml:"enable_seasonality,omitempty"`
	EnableMultivariate  *bool    `yaml:"enable_multivariate,omitempty"`
	SeasonalPeriod      int      `yaml:"seasonal_period,omitempty"`
	MovingAverageWindow int      `yaml:"moving_average_window,omitempty"`
	EnsembleMethods     []string `yaml:"ensemble_methods,omitempty"`
	Workers             int      `yaml:"workers,omitempty"`
}

// LoadAnalysisConfig parses an AnalysisConfig from YAML.
func LoadAnalysisConfig(data []byte) (AnalysisConfig, error) {
	var file analysisConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return AnalysisConfig{}, &ConfigError{Type: ConfigErrorTypeUnknown, Message: "failed to parse config", Cause: err}
	}

	cfg := DefaultAnalysisConfig()
	if file.Method != "" {
		m, err := ParseMethod(file.Method)
		if err != nil {
			return AnalysisConfig{}, err
		}
		cfg.Method = m
	}
	if file.Sensitivity != "" {
		s, err := ParseSensitivity(file.Sensitivity)
		if err != nil {
			return AnalysisConfig{}, err
		}
		cfg.Sensitivity = s
	}
	if file.EnableSeasonality != nil {
		cfg.EnableSeasonality = *file.EnableSeasonality
	}
	if file.EnableMultivariate != nil {
		cfg.EnableMultivariate = *file.EnableMultivariate
	}
	if file.SeasonalPeriod != 0 {
		cfg.SeasonalPeriod = file.SeasonalPeriod
	}
	if file.MovingAverageWindow != 0 {
		cfg.MovingAverageWindow = file.MovingAverageWindow
	}
	if len(file.EnsembleMethods) > 0 {
		methods := make([]Method, 0, len(file.EnsembleMethods))
		for _, name := range file.EnsembleMethods {
			m, err := ParseMethod(name)
			if err != nil {
				return AnalysisConfig{}, err
			}
			methods = append(methods, m)
		}
		cfg.EnsembleMethods = methods
	}
	cfg.Workers = file.Workers

	if err := cfg.Validate(); err != nil {
		return AnalysisConfig{}, err
	}
	return cfg, nil
}

// LoadAnalysisConfigFile reads and parses an AnalysisConfig from a YAML file.
func LoadAnalysisConfigFile(path string) (AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AnalysisConfig{}, &ConfigError{Type: ConfigErrorTypeUnknown, Message: "failed to read config file", Cause: err}
	}
	return LoadAnalysisConfig(data)
}
