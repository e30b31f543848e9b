package kpisight

import (
	"encoding/json"
	"math"
)

// TrendDirection classifies the direction of a metric's long-run movement.
type TrendDirection int

const (
	// TrendFlat means no material slope relative to the value range.
	TrendFlat TrendDirection = iota
	// TrendIncreasing means values rise over the series.
	TrendIncreasing
	// TrendDecreasing means values fall over the series.
	TrendDecreasing
)

// String returns the string representation of the trend direction.
func (d TrendDirection) String() string {
	switch d {
	case TrendFlat:
		return "flat"
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for TrendDirection.
func (d TrendDirection) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a trend direction from its string name.
func (d *TrendDirection) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "flat":
		*d = TrendFlat
	case "increasing":
		*d = TrendIncreasing
	case "decreasing":
		*d = TrendDecreasing
	default:
		return newConfigError(ConfigErrorTypeParameter, "trend_direction", "unknown trend direction "+name)
	}
	return nil
}

// trendFlatThreshold is the strength below which a slope counts as flat.
const trendFlatThreshold = 0.05

// seasonalityACFThreshold is the minimum autocorrelation peak required to
// report a periodic pattern.
const seasonalityACFThreshold = 0.5

// TrendSummary describes the fitted linear movement of a series.
type TrendSummary struct {
	Direction TrendDirection `json:"direction"`
	Slope     float64        `json:"slope"`
	Strength  float64        `json:"strength"`
}

// SeasonalitySummary describes a detected periodic pattern. Period is zero
// when no pattern is present.
type SeasonalitySummary struct {
	Present  bool    `json:"present"`
	Period   int     `json:"period,omitempty"`
	Strength float64 `json:"strength,omitempty"`
}

// trendStrength measures total fitted movement relative to the value range,
// clipped to [0,1]. A flat or constant series scores zero.
func trendStrength(slope float64, values []float64) float64 {
	lo, hi := minMax(values)
	if hi == lo {
		return 0
	}
	return clamp01(math.Abs(slope) * float64(len(values)-1) / (hi - lo))
}

// trendDirectionFromSlope maps a fitted slope to a direction, treating weak
// slopes as flat.
func trendDirectionFromSlope(slope float64, values []float64) TrendDirection {
	if trendStrength(slope, values) < trendFlatThreshold {
		return TrendFlat
	}
	if slope > 0 {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// RecognizeTrend fits a least-squares line through the series and summarizes
// its direction and strength. Series shorter than three points report flat.
func RecognizeTrend(s Series) TrendSummary {
	values := s.Values
	if len(values) < 3 {
		return TrendSummary{Direction: TrendFlat}
	}
	_, slope := linearFit(values)
	return TrendSummary{
		Direction: trendDirectionFromSlope(slope, values),
		Slope:     slope,
		Strength:  trendStrength(slope, values),
	}
}

// RecognizeSeasonality searches for the lag with the highest autocorrelation
// over lags 2 through n/2 and reports a pattern when the peak clears the
// autocorrelation threshold. Series shorter than four points report no
// pattern.
func RecognizeSeasonality(s Series) SeasonalitySummary {
	values := s.Values
	if len(values) < 4 {
		return SeasonalitySummary{}
	}

	bestLag := 0
	bestACF := 0.0
	for lag := 2; lag <= len(values)/2; lag++ {
		acf := autocorrelation(values, lag)
		if acf > bestACF {
			bestACF = acf
			bestLag = lag
		}
	}

	if bestACF < seasonalityACFThreshold {
		return SeasonalitySummary{}
	}
	return SeasonalitySummary{Present: true, Period: bestLag, Strength: bestACF}
}
