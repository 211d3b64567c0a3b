// Package period maps instants to the canonical day, week, month, and year
// buckets used by the rollup engine. All bucketing is pinned to UTC so a
// sample lands in the same day regardless of the host timezone or DST state
// at call time.
package period

import "time"

// DayOf returns the UTC midnight of the calendar day containing t.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStartOf returns the UTC midnight of the Monday of the week containing t.
func WeekStartOf(t time.Time) time.Time {
	day := DayOf(t)
	// time.Weekday puts Sunday at 0; shift so Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthOf returns the (year, month) pair of the month containing t.
func MonthOf(t time.Time) (int, time.Month) {
	u := t.UTC()
	return u.Year(), u.Month()
}

// YearOf returns the year number of the year containing t.
func YearOf(t time.Time) int {
	return t.UTC().Year()
}

// WeekBounds returns the first and last day of the week starting at weekStart.
func WeekBounds(weekStart time.Time) (time.Time, time.Time) {
	return weekStart, weekStart.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last calendar day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// YearBounds returns January 1 and December 31 of the given year.
func YearBounds(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns every calendar day from the day containing from through
// the day containing to, inclusive. An inverted range yields nil.
func DaysBetween(from, to time.Time) []time.Time {
	start, end := DayOf(from), DayOf(to)
	if start.After(end) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WeeksIn returns the week-start keys of every week whose bounds intersect
// [from, to].
func WeeksIn(from, to time.Time) []time.Time {
	start, end := WeekStartOf(from), WeekStartOf(to)
	if start.After(end) {
		return nil
	}
	var weeks []time.Time
	for w := start; !w.After(end); w = w.AddDate(0, 0, 7) {
		weeks = append(weeks, w)
	}
	return weeks
}

// MonthsIn returns the (year, month) keys of every month whose bounds
// intersect [from, to].
func MonthsIn(from, to time.Time) [][2]int {
	fy, fm := MonthOf(from)
	ty, tm := MonthOf(to)
	fromIdx := fy*12 + int(fm) - 1
	toIdx := ty*12 + int(tm) - 1
	if fromIdx > toIdx {
		return nil
	}
	var months [][2]int
	for i := fromIdx; i <= toIdx; i++ {
		months = append(months, [2]int{i / 12, i%12 + 1})
	}
	return months
}

// YearsIn returns every year whose bounds intersect [from, to].
func YearsIn(from, to time.Time) []int {
	fy, ty := YearOf(from), YearOf(to)
	if fy > ty {
		return nil
	}
	var years []int
	for y := fy; y <= ty; y++ {
		years = append(years, y)
	}
	return years
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}
