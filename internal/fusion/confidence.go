package fusion

import (
	"time"

	"github.com/abelbrown/sitrep/internal/model"
)

// Source evaluation weights follow the NATO reliability (A–F) and
// credibility (1–6) scales. Unknown or absent ratings sit at the 0.5
// midpoint rather than zeroing a report out.
var reliabilityWeights = map[string]float64{
	"A": 1.0,
	"B": 0.8,
	"C": 0.6,
	"D": 0.4,
	"E": 0.2,
	"F": 0.1,
}

var credibilityWeights = map[string]float64{
	"1": 1.0,
	"2": 0.8,
	"3": 0.6,
	"4": 0.4,
	"5": 0.2,
	"6": 0.1,
}

const unknownRatingWeight = 0.5

// confidenceScore computes the fused confidence as the weighted mean of
// a fixed base score, where each report's weight is the product of its
// reliability, credibility, and recency factors and a shared diversity
// bonus. Clamped to [0, 1]; zero if no report carries weight.
func confidenceScore(reports []model.Report, now time.Time) float64 {
	if len(reports) == 0 {
		return 0
	}
	bonus := diversityBonus(reports)

	var weighted, total float64
	for _, r := range reports {
		w := reliabilityWeight(r.Reliability) *
			credibilityWeight(r.Credibility) *
			recencyWeight(r.CollectionTime, now) *
			bonus
		weighted += baseReportScore * w
		total += w
	}
	if total == 0 {
		return 0
	}
	score := weighted / total
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func reliabilityWeight(rating string) float64 {
	if w, ok := reliabilityWeights[rating]; ok {
		return w
	}
	return unknownRatingWeight
}

func credibilityWeight(rating string) float64 {
	if w, ok := credibilityWeights[rating]; ok {
		return w
	}
	return unknownRatingWeight
}

// recencyWeight decays with the age of the report's collection time.
// Reports without a collection time get the midpoint.
func recencyWeight(collected *time.Time, now time.Time) float64 {
	if collected == nil {
		return unknownRatingWeight
	}
	age := now.Sub(*collected)
	switch {
	case age <= time.Hour:
		return 1.0
	case age <= 6*time.Hour:
		return 0.9
	case age <= 24*time.Hour:
		return 0.7
	case age <= 72*time.Hour:
		return 0.5
	default:
		return 0.3
	}
}

// diversityBonus rewards multi-discipline fusion: a set drawing on more
// distinct report types scores higher than one repeating a single
// discipline. Ranges over (1.0, 1.2].
func diversityBonus(reports []model.Report) float64 {
	return 1.0 + float64(len(distinctTypes(reports)))/float64(len(reports))*0.2
}
