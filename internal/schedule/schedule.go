// Package schedule computes recurrence dates for recurring definitions.
package schedule

import (
	"time"

	"github.com/austinmedina/spendingManagement/internal/model"
)

// Day normalizes a time to its civil date at midnight UTC. All schedule
// arithmetic operates on normalized dates.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence returns the occurrence following from for the given
// frequency. Monthly recurrences keep the day-of-month, clamped to the last
// day of shorter months (Jan 31 -> Feb 28/29); yearly recurrences clamp
// Feb 29 to Feb 28 in non-leap years. The frequency is validated at
// definition creation time, so an unknown value cannot reach this function;
// if one does, the date is returned unchanged and the caller's stuck-schedule
// guard trips.
func NextOccurrence(from time.Time, freq model.Frequency) time.Time {
	d := Day(from)
	switch freq {
	case model.FrequencyDaily:
		return d.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return d.AddDate(0, 0, 7)
	case model.FrequencyBiweekly:
		return d.AddDate(0, 0, 14)
	case model.FrequencyMonthly:
		return addMonthsClamped(d, 1)
	case model.FrequencyYearly:
		return addYearClamped(d)
	default:
		return d
	}
}

// addMonthsClamped steps forward by months without the day overflow of
// time.AddDate (Jan 31 + 1 month must be Feb 28/29, not Mar 2/3).
func addMonthsClamped(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func addYearClamped(d time.Time) time.Time {
	year, month, day := d.Date()
	year++
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntil returns the whole days from asOf to target, negative when target
// is in the past.
func DaysUntil(asOf, target time.Time) int {
	return int(Day(target).Sub(Day(asOf)).Hours() / 24)
}

// MonthBounds returns the first day of asOf's calendar month and the first
// day of the following month.
func MonthBounds(asOf time.Time) (start, end time.Time) {
	d := Day(asOf)
	start = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
