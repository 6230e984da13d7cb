package progression

import "time"

// NextStreak evaluates the daily streak transition for one user visit.
// Returns the new current/longest values and whether anything must be
// persisted. Re-invocation within the same calendar day is a no-op, which
// makes the visit path safe to call on every app foreground.
//
// A lastConnection in the future (clock skew) is treated as a no-op rather
// than a reset.
func NextStreak(current, longest int, lastConnection *time.Time, now time.Time) (newCurrent, newLongest int, changed bool) {
	if lastConnection == nil {
		newCurrent = 1
	} else {
		diff := DaysSinceEpoch(now) - DaysSinceEpoch(*lastConnection)
		switch {
		case diff <= 0:
			return current, longest, false
		case diff == 1:
			newCurrent = current + 1
		default:
			newCurrent = 1
		}
	}

	newLongest = longest
	if newCurrent > newLongest {
		newLongest = newCurrent
	}
	return newCurrent, newLongest, true
}
