// Package stats answers aggregate questions (conversation and message
// counts) over named reporting periods, backed by the platform's v2 reports.
package stats

import (
	"fmt"
	"time"
)

// Period is a named reporting window.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodLast7     Period = "last_7_days"
	PeriodLast30    Period = "last_30_days"
	PeriodThisWeek  Period = "this_week"
	PeriodLastWeek  Period = "last_week"
	PeriodThisMonth Period = "this_month"
	PeriodLastMonth Period = "last_month"
)

// PeriodRange resolves a period to a [since, until] window around now, in
// now's location. Weeks start on Monday.
func PeriodRange(p Period, now time.Time) (time.Time, time.Time, error) {
	today := startOfDay(now)

	switch p {
	case PeriodToday:
		return today, now, nil
	case PeriodYesterday:
		return today.AddDate(0, 0, -1), today.Add(-time.Second), nil
	case PeriodLast7:
		return today.AddDate(0, 0, -7), now, nil
	case PeriodLast30:
		return today.AddDate(0, 0, -30), now, nil
	case PeriodThisWeek:
		return startOfWeek(now), now, nil
	case PeriodLastWeek:
		thisWeek := startOfWeek(now)
		return thisWeek.AddDate(0, 0, -7), thisWeek.Add(-time.Second), nil
	case PeriodThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	case PeriodLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first.Add(-time.Second), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", p)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	// Sunday is 0 in time.Weekday but the last day of a Monday-start week.
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
