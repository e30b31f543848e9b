package kpisight

import "encoding/json"

// Severity is a discrete anomaly importance tier derived from the raw score
// and the active sensitivity threshold.
type Severity int

const (
	// SeverityLow marks deviations just past the detection threshold.
	SeverityLow Severity = iota
	// SeverityMedium marks clear deviations.
	SeverityMedium
	// SeverityHigh marks strong deviations.
	SeverityHigh
	// SeverityCritical marks extreme deviations.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a severity from its string name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity resolves a severity name. Unknown names return a ConfigError.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, newConfigError(ConfigErrorTypeParameter, "severity", "unknown severity "+s)
	}
}

// severityTier is one row of the fixed tier boundary table. Boundaries are
// ratios of the raw score to the detector's active threshold, so the same
// score classifies higher under a more sensitive (lower-threshold) profile.
type severityTier struct {
	ratio    float64
	severity Severity
}

// severityTiers is ordered from most to least severe; classification takes
// the first matching row. The table is fixed so output is reproducible for
// identical inputs.
var severityTiers = []severityTier{
	{ratio: 2.0, severity: SeverityCritical},
	{ratio: 1.4, severity: SeverityHigh},
	{ratio: 1.2, severity: SeverityMedium},
}

// ClassifySeverity maps a raw anomaly score and its detection threshold to a
// severity tier.
func ClassifySeverity(score, threshold float64) Severity {
	if threshold <= 0 {
		return SeverityLow
	}
	ratio := score / threshold
	for _, tier := range severityTiers {
		if ratio >= tier.ratio {
			return tier.severity
		}
	}
	return SeverityLow
}
