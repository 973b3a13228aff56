// Package common — daytime.go is the calendar-day arithmetic used by the
// accrual engine. A "day" here is a fixed 24h slice; the processing clock's
// reference day starts at midnight in the configured location.
package common

import "time"

const day = 24 * time.Hour

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// CeilDays returns the duration between start and end rounded up to whole
// days. Zero or negative when end is not after start.
func CeilDays(start, end time.Time) int {
	d := end.Sub(start)
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}

// ElapsedDays returns the 1-based day number of todayStart within an
// investment that started at start: 1 on the start day, 2 the day after.
func ElapsedDays(start, todayStart time.Time, loc *time.Location) int {
	startDay := StartOfDay(start, loc)
	return int(todayStart.Sub(startDay)/day) + 1
}
