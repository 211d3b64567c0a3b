package models

import "time"

// MetricSampleRow is a raw per-day metric sample ready for insertion into the
// metric_samples table. Qty is the day's total in the metric's native unit.
type MetricSampleRow struct {
	Day        time.Time
	UserID     int
	MetricName string
	Source     string
	Qty        float64
}

// SleepSampleRow is a raw nightly sleep sample ready for insertion into the
// sleep_samples table. A day can carry one row per originating source; the
// data source layer resolves which one counts.
type SleepSampleRow struct {
	Day          time.Time
	UserID       int
	Source       string
	TotalMinutes int64
	DeepMinutes  int64
	REMMinutes   int64
}
