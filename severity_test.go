package kpisight

import "testing"

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		score     float64
		threshold float64
		expected  Severity
	}{
		{2.1, 2.0, SeverityLow},
		{2.5, 2.0, SeverityMedium},
		{2.828, 2.0, SeverityHigh},
		{4.2, 2.0, SeverityCritical},
		{4.0, 2.0, SeverityCritical},
		{2.8, 2.0, SeverityHigh},
		{2.4, 2.0, SeverityMedium},
		{3.0, 3.0, SeverityLow},
		{1.5, 0, SeverityLow},
	}

	for _, tc := range tests {
		got := ClassifySeverity(tc.score, tc.threshold)
		if got != tc.expected {
			t.Errorf("ClassifySeverity(%f, %f): expected %s, got %s",
				tc.score, tc.threshold, tc.expected, got)
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	if !(SeverityLow < SeverityMedium && SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Error("Severity levels must be ordered low < medium < high < critical")
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
	}{
		{SeverityLow, "low"},
		{SeverityMedium, "medium"},
		{SeverityHigh, "high"},
		{SeverityCritical, "critical"},
		{Severity(42), "unknown"},
	}

	for _, tc := range tests {
		if tc.severity.String() != tc.expected {
			t.Errorf("Expected %s, got %s", tc.expected, tc.severity.String())
		}
	}
}

func TestParseSeverityRoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		parsed, err := ParseSeverity(s.String())
		if err != nil {
			t.Fatalf("ParseSeverity(%s) failed: %v", s, err)
		}
		if parsed != s {
			t.Errorf("Round trip mismatch: %s became %s", s, parsed)
		}
	}

	if _, err := ParseSeverity("catastrophic"); err == nil {
		t.Error("Expected an error for an unknown severity name")
	}
}
