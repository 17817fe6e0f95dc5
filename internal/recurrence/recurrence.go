// Package recurrence implements calendar arithmetic for recurring schedules.
//
// Occurrences are anchored on the schedule's start date: occurrence n falls on
// start + n*interval units, with the day clamped to the end of shorter months.
// A schedule starting on the 31st therefore runs on Jan 31, Feb 28 (or 29),
// Mar 31 rather than drifting to the 28th.
package recurrence

import (
	"fmt"
	"time"

	"khata/internal/domain"
)

// ValidFrequency reports whether f is a supported frequency.
func ValidFrequency(f domain.Frequency) bool {
	_, _, err := unit(f)
	return err == nil
}

// unit returns the step of one interval as (days, months).
func unit(f domain.Frequency) (days, months int, err error) {
	switch f {
	case domain.FrequencyDaily:
		return 1, 0, nil
	case domain.FrequencyWeekly:
		return 7, 0, nil
	case domain.FrequencyBiweekly:
		return 14, 0, nil
	case domain.FrequencyMonthly:
		return 0, 1, nil
	case domain.FrequencyQuarterly:
		return 0, 3, nil
	case domain.FrequencyAnnually:
		return 0, 12, nil
	default:
		return 0, 0, fmt.Errorf("%q: %w", f, domain.ErrInvalidFrequency)
	}
}

// Occurrence returns the n-th occurrence (0-based) of a schedule.
func Occurrence(start domain.Date, f domain.Frequency, interval, n int) (domain.Date, error) {
	if interval < 1 {
		return domain.Date{}, fmt.Errorf("interval %d: %w", interval, domain.ErrInvalidSchedule)
	}
	days, months, err := unit(f)
	if err != nil {
		return domain.Date{}, err
	}
	if months == 0 {
		return start.AddDays(days * interval * n), nil
	}
	return AddMonths(start, months*interval*n), nil
}

// AddMonths adds n calendar months to d, clamping the day to the last day of
// the resulting month.
func AddMonths(d domain.Date, n int) domain.Date {
	total := int(d.Month()) - 1 + n
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	day := d.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return domain.NewDate(year, month, day)
}

// NextAfter returns the first occurrence strictly after the given date.
func NextAfter(start domain.Date, f domain.Frequency, interval int, after domain.Date) (domain.Date, error) {
	return firstOccurrence(start, f, interval, after, func(d domain.Date) bool { return d.After(after) })
}

// NextOnOrAfter returns the first occurrence on or after the given date.
func NextOnOrAfter(start domain.Date, f domain.Frequency, interval int, on domain.Date) (domain.Date, error) {
	return firstOccurrence(start, f, interval, on, func(d domain.Date) bool { return !d.Before(on) })
}

func firstOccurrence(start domain.Date, f domain.Frequency, interval int, target domain.Date, ok func(domain.Date) bool) (domain.Date, error) {
	if interval < 1 {
		return domain.Date{}, fmt.Errorf("interval %d: %w", interval, domain.ErrInvalidSchedule)
	}
	days, months, err := unit(f)
	if err != nil {
		return domain.Date{}, err
	}
	if ok(start) {
		return start, nil
	}

	// The estimate never overshoots, so the walk is at most a few steps.
	for n := estimate(start, days, months, interval, target); ; n++ {
		d, err := Occurrence(start, f, interval, n)
		if err != nil {
			return domain.Date{}, err
		}
		if ok(d) {
			return d, nil
		}
	}
}

func estimate(start domain.Date, days, months, interval int, target domain.Date) int {
	if months == 0 {
		n := start.DaysUntil(target)/(days*interval) - 1
		return max(n, 0)
	}
	elapsed := (target.Year()-start.Year())*12 + int(target.Month()) - int(start.Month())
	n := elapsed/(months*interval) - 1
	return max(n, 0)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
