package utils

import "math"

const defaultWeightKg = 70.0

// EstimateCalories gives a MET-based calorie estimate for a block of reps:
// kcal = MET * weight(kg) * duration(h), with duration derived from the
// exercise's assumed pace. Falls back to a default body weight when the
// profile has none.
func EstimateCalories(weightKg, met, secondsPerRep float64, reps int) float64 {
	if weightKg <= 0 {
		weightKg = defaultWeightKg
	}
	hours := float64(reps) * secondsPerRep / 3600.0
	kcal := met * weightKg * hours
	return math.Round(kcal*10) / 10
}
