package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ParseScore converts a submitted score field into a number. Empty, non-numeric and
// non-finite inputs become 0; the result is clamped into [0, MaxScore].
func ParseScore(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return ClampScore(v)
}

// ClampScore bounds v into [0, MaxScore] and rounds it to the two decimals a score column holds.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return round2(math.Max(0, math.Min(models.MaxScore, v)))
}

// NormalizeScores parses and clamps the three raw components and derives TotalCA from the
// rounded components, so the stored total always equals first_ca + second_ca. It never fails.
func NormalizeScores(firstCA, secondCA, exam string) models.ScoreSet {
	first := ParseScore(firstCA)
	second := ParseScore(secondCA)
	return models.ScoreSet{
		FirstCA:  first,
		SecondCA: second,
		Exam:     ParseScore(exam),
		TotalCA:  round2(first + second),
	}
}
