package fusion

import (
	"math"
	"testing"
	"time"

	"github.com/abelbrown/sitrep/internal/model"
)

func TestRecencyWeight(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"30 minutes", 30 * time.Minute, 1.0},
		{"exactly one hour", time.Hour, 1.0},
		{"three hours", 3 * time.Hour, 0.9},
		{"twelve hours", 12 * time.Hour, 0.7},
		{"two days", 48 * time.Hour, 0.5},
		{"one week", 7 * 24 * time.Hour, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collected := now.Add(-tt.age)
			if got := recencyWeight(&collected, now); got != tt.want {
				t.Errorf("recencyWeight(%v ago) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}

	if got := recencyWeight(nil, now); got != 0.5 {
		t.Errorf("recencyWeight(nil) = %v, want 0.5", got)
	}
}

func TestRatingWeights(t *testing.T) {
	if got := reliabilityWeight("A"); got != 1.0 {
		t.Errorf("reliability A = %v, want 1.0", got)
	}
	if got := reliabilityWeight("F"); got != 0.1 {
		t.Errorf("reliability F = %v, want 0.1", got)
	}
	if got := reliabilityWeight(""); got != 0.5 {
		t.Errorf("unknown reliability = %v, want 0.5", got)
	}
	if got := credibilityWeight("1"); got != 1.0 {
		t.Errorf("credibility 1 = %v, want 1.0", got)
	}
	if got := credibilityWeight("6"); got != 0.1 {
		t.Errorf("credibility 6 = %v, want 0.1", got)
	}
	if got := credibilityWeight("Z"); got != 0.5 {
		t.Errorf("unknown credibility = %v, want 0.5", got)
	}
}

func TestDiversityBonus(t *testing.T) {
	mk := func(types ...model.ReportType) []model.Report {
		reports := make([]model.Report, len(types))
		for i, rt := range types {
			reports[i] = model.Report{Type: rt}
		}
		return reports
	}

	// Two reports, both SIGINT: 1 + (1/2)*0.2 = 1.1.
	if got := diversityBonus(mk(model.ReportSIGINT, model.ReportSIGINT)); math.Abs(got-1.1) > 1e-9 {
		t.Errorf("same-type bonus = %v, want 1.1", got)
	}
	// Two disciplines out of two reports: 1 + (2/2)*0.2 = 1.2.
	if got := diversityBonus(mk(model.ReportSIGINT, model.ReportHUMINT)); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("two-type bonus = %v, want 1.2", got)
	}
	// Three disciplines over four reports: 1 + (3/4)*0.2 = 1.15.
	if got := diversityBonus(mk(model.ReportSIGINT, model.ReportHUMINT, model.ReportSOCMINT, model.ReportSOCMINT)); math.Abs(got-1.15) > 1e-9 {
		t.Errorf("mixed bonus = %v, want 1.15", got)
	}
}

func TestConfidenceScore(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-100 * time.Hour)

	mk := func(rt model.ReportType, rel, cred string, collected *time.Time) model.Report {
		return model.Report{Type: rt, Reliability: rel, Credibility: cred, CollectionTime: collected}
	}

	if got := confidenceScore(nil, now); got != 0 {
		t.Errorf("empty set = %v, want 0", got)
	}

	// The base score is constant, so any positive total weight yields a
	// weighted mean of exactly 0.7; the weights change relative influence,
	// never the aggregate of a uniform base.
	sets := [][]model.Report{
		{mk(model.ReportSIGINT, "A", "1", &recent), mk(model.ReportSOCMINT, "A", "1", &recent)},
		{mk(model.ReportSIGINT, "F", "6", &stale), mk(model.ReportHUMINT, "B", "2", &recent)},
		{mk(model.ReportHUMINT, "", "", nil), mk(model.ReportHUMINT, "", "", nil)},
	}
	for i, reports := range sets {
		got := confidenceScore(reports, now)
		if math.Abs(got-0.7) > 1e-9 {
			t.Errorf("set %d: confidence = %v, want 0.7", i, got)
		}
		if got < 0 || got > 1 {
			t.Errorf("set %d: confidence %v out of [0,1]", i, got)
		}
	}
}
