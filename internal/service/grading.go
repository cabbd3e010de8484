package service

import "github.com/noah-isme/sma-results-api/internal/models"

type gradeThreshold struct {
	min  float64
	band models.GradeBand
}

// gradeTable is evaluated top-down; the first threshold not above the score wins.
var gradeTable = []gradeThreshold{
	{min: 90, band: models.GradeBand{Grade: "A", Remark: "Excellent"}},
	{min: 80, band: models.GradeBand{Grade: "B", Remark: "Very Good"}},
	{min: 70, band: models.GradeBand{Grade: "C", Remark: "Good"}},
	{min: 60, band: models.GradeBand{Grade: "D", Remark: "Fair"}},
	{min: 50, band: models.GradeBand{Grade: "E", Remark: "Pass"}},
}

var failingBand = models.GradeBand{Grade: "F", Remark: "Fail"}

// GradeFor returns the letter grade and remark for a grand total.
func GradeFor(grandTotal float64) models.GradeBand {
	for _, threshold := range gradeTable {
		if grandTotal >= threshold.min {
			return threshold.band
		}
	}
	return failingBand
}
