package recurrence

import "time"

// DateOnly truncates t to midnight in its own location. All calculator
// inputs and outputs are normalized this way; time-of-day is carried
// separately on the rule.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// OccurrencesInRange expands a rule into the ordered calendar dates on which
// an occurrence falls within [start, end] (both inclusive). It is pure and
// restartable: no state is kept between calls.
//
// Semantics per frequency:
//   - weekly: every 7 days starting from the first date >= start whose
//     weekday equals the rule's DayOfWeek.
//   - biweekly: same anchor, step 14 days. The cadence parity is anchored to
//     the first matching weekday in the queried range, not to a fixed epoch.
//   - monthly: the DayOfMonth date in each calendar month overlapping the
//     range, clamped to the last day of months that are too short (a rule for
//     the 31st falls on Feb 28, or Feb 29 in a leap year).
//
// An empty or inverted range yields an empty result.
func OccurrencesInRange(rule Rule, start, end time.Time) ([]time.Time, error) {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return nil, nil
	}

	switch rule.Frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		if !rule.DayOfWeek.Valid {
			return nil, ErrMissingDayOfWeek
		}
		step := 7
		if rule.Frequency == FrequencyBiweekly {
			step = 14
		}
		return weekdayOccurrences(time.Weekday(rule.DayOfWeek.Int16), start, end, step), nil

	case FrequencyMonthly:
		if !rule.DayOfMonth.Valid {
			return nil, ErrMissingDayOfMonth
		}
		return monthlyOccurrences(int(rule.DayOfMonth.Int16), start, end), nil

	default:
		return nil, ErrInvalidFrequency
	}
}

func weekdayOccurrences(day time.Weekday, start, end time.Time, stepDays int) []time.Time {
	current := start
	for current.Weekday() != day {
		current = current.AddDate(0, 0, 1)
	}

	dates := make([]time.Time, 0)
	for !current.After(end) {
		dates = append(dates, current)
		current = current.AddDate(0, 0, stepDays)
	}
	return dates
}

func monthlyOccurrences(dayOfMonth int, start, end time.Time) []time.Time {
	dates := make([]time.Time, 0)
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for !cursor.After(end) {
		occ := clampToMonth(cursor.Year(), cursor.Month(), dayOfMonth, start.Location())
		if !occ.Before(start) && !occ.After(end) {
			dates = append(dates, occ)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return dates
}

// clampToMonth resolves dayOfMonth within the given month, clamping to the
// month's last day when the month is shorter.
func clampToMonth(year int, month time.Month, dayOfMonth int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if dayOfMonth > lastDay {
		dayOfMonth = lastDay
	}
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, loc)
}

// NextOccurrence returns the first occurrence strictly after the given date.
// Used by the materializer to advance a rule's cached NextOccurrenceDate
// once an occurrence has been ensured.
func NextOccurrence(rule Rule, after time.Time) (time.Time, error) {
	after = DateOnly(after)

	switch rule.Frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		if !rule.DayOfWeek.Valid {
			return time.Time{}, ErrMissingDayOfWeek
		}
		step := 7
		if rule.Frequency == FrequencyBiweekly {
			step = 14
		}
		if after.Weekday() == time.Weekday(rule.DayOfWeek.Int16) {
			// Already on-cadence: the next firing is one full step away.
			return after.AddDate(0, 0, step), nil
		}
		current := after.AddDate(0, 0, 1)
		for current.Weekday() != time.Weekday(rule.DayOfWeek.Int16) {
			current = current.AddDate(0, 0, 1)
		}
		return current, nil

	case FrequencyMonthly:
		if !rule.DayOfMonth.Valid {
			return time.Time{}, ErrMissingDayOfMonth
		}
		candidate := clampToMonth(after.Year(), after.Month(), int(rule.DayOfMonth.Int16), after.Location())
		if candidate.After(after) {
			return candidate, nil
		}
		// Step via the first of the next month so a late-month anchor never
		// skips February under date normalization.
		nextMonth := time.Date(after.Year(), after.Month()+1, 1, 0, 0, 0, 0, after.Location())
		return clampToMonth(nextMonth.Year(), nextMonth.Month(), int(rule.DayOfMonth.Int16), after.Location()), nil

	default:
		return time.Time{}, ErrInvalidFrequency
	}
}
