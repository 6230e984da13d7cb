package progression

import (
	"math"
	"time"

	"repRivalAPI/internal/types/challenge"
)

// DaysSinceEpoch converts a timestamp to a whole-day number, discarding the
// time of day. Both sides of any day arithmetic in this package go through
// this function so subtractions are plain integer comparisons.
func DaysSinceEpoch(t time.Time) int {
	u := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(u.Unix() / 86400)
}

// DayIndex returns the zero-based count of whole calendar days elapsed from
// start to target. Clamped to 0 when target is before start: a challenge
// never has a negative day, even under clock skew or pre-start queries.
func DayIndex(start, target time.Time) int {
	diff := DaysSinceEpoch(target) - DaysSinceEpoch(start)
	if diff < 0 {
		return 0
	}
	return diff
}

// TargetForDay returns the rep target for the given day index. Progressive
// targets grow without bound; callers must check dayIndex < DurationDays
// before treating the result as "today's target".
func TargetForDay(def *challenge.Definition, dayIndex int) int {
	if def.Logic == challenge.LogicFixed {
		return def.BaseAmount
	}
	return def.BaseAmount + dayIndex*def.Increment
}

// TotalExpectedReps returns the total reps over the challenge's lifetime.
// For progressive logic this is the arithmetic series sum in closed form;
// it matches the sum of TargetForDay over 0..DurationDays-1 exactly
// (the numerator n*(2a+(n-1)d) is always even).
func TotalExpectedReps(def *challenge.Definition) int {
	n := def.DurationDays
	if def.Logic == challenge.LogicFixed {
		return def.BaseAmount * n
	}
	return n * (2*def.BaseAmount + (n-1)*def.Increment) / 2
}

// DateKey formats a timestamp as the calendar-day string used as the
// uniqueness key for challenge history entries.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

var difficultyParams = map[challenge.Difficulty]struct{ Base, Increment int }{
	challenge.DifficultyEasy:    {5, 1},
	challenge.DifficultyMedium:  {10, 2},
	challenge.DifficultyHard:    {20, 3},
	challenge.DifficultyExtreme: {30, 5},
}

// DeriveCustomParams resolves the base amount and daily increment for a
// custom challenge. Pull movements get dampened targets (base /3,
// increment /2, rounded, floor of 1): harder bodyweight movements need
// proportionally smaller rep counts.
func DeriveCustomParams(difficulty challenge.Difficulty, pullMovement bool) (base, increment int) {
	p, ok := difficultyParams[difficulty]
	if !ok {
		p = difficultyParams[challenge.DifficultyMedium]
	}
	base, increment = p.Base, p.Increment
	if pullMovement {
		base = dampen(base, 3)
		increment = dampen(increment, 2)
	}
	return base, increment
}

func dampen(v, factor int) int {
	d := int(math.Round(float64(v) / float64(factor)))
	if d < 1 {
		return 1
	}
	return d
}
