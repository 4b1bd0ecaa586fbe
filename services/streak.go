package services

import "time"

// consecutiveDays walks the user's distinct scan dates (descending) and
// returns the length of the run of consecutive calendar days ending at
// today. A user who scanned yesterday but not yet today keeps their
// streak alive until the day fully elapses; a gap of more than one day
// breaks it.
func consecutiveDays(today time.Time, dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	today = toDate(today)
	latest := toDate(dates[0])

	// Latest scan older than yesterday means the streak is already broken.
	if today.Sub(latest) > 24*time.Hour {
		return 0
	}

	streak := 0
	expected := latest
	for _, d := range dates {
		d = toDate(d)
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}

	return streak
}

// toDate truncates a timestamp to its UTC calendar day.
func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
