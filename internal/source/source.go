// Package source turns raw per-sample data into normalized per-day metric
// bundles for the rollup engine. Conflict resolution for overlapping sleep
// data lives here, not in the rollup engine: a ranked source-priority list
// decides which source counts for a given night.
package source

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
	"github.com/meltforce/vitalsync/internal/period"
)

// ErrUnavailable means the raw data source could not be queried at all. The
// current sync aborts without advancing the cursor, so a retry resumes from
// the same window.
var ErrUnavailable = errors.New("raw data source unavailable")

// FetchResult is a window of normalized daily bundles. Days with no data are
// present with the zero bundle. FailedMetrics lists metric types that could
// not be fetched and were recorded as zero for the window.
type FetchResult struct {
	Days          map[time.Time]models.MetricBundle
	FailedMetrics []string
}

// DataSource supplies normalized per-day bundles to the sync engine.
type DataSource interface {
	// FetchDailyMetrics returns one bundle per calendar day with
	// from <= day <= to.
	FetchDailyMetrics(ctx context.Context, userID int, from, to time.Time) (*FetchResult, error)
	// EarliestSampleDate returns the day of the oldest raw data ever
	// observed for the user, or the zero time if there is none.
	EarliestSampleDate(ctx context.Context, userID int) (time.Time, error)
}

// ResolveSleep picks, for each day, the sleep sample from the
// highest-priority source present and discards the rest. Sources not on the
// priority list rank below every listed one; ties break by source name so
// resolution is deterministic.
func ResolveSleep(rows []models.SleepSampleRow, priority []string) map[time.Time]models.SleepSampleRow {
	rank := make(map[string]int, len(priority))
	for i, s := range priority {
		rank[s] = i
	}
	rankOf := func(source string) int {
		if r, ok := rank[source]; ok {
			return r
		}
		return len(priority)
	}

	byDay := make(map[time.Time][]models.SleepSampleRow)
	for _, r := range rows {
		day := period.DayOf(r.Day)
		byDay[day] = append(byDay[day], r)
	}

	resolved := make(map[time.Time]models.SleepSampleRow, len(byDay))
	for day, candidates := range byDay {
		sort.Slice(candidates, func(i, j int) bool {
			ri, rj := rankOf(candidates[i].Source), rankOf(candidates[j].Source)
			if ri != rj {
				return ri < rj
			}
			return candidates[i].Source < candidates[j].Source
		})
		resolved[day] = candidates[0]
	}
	return resolved
}

// BuildDays folds raw sample rows into one bundle per calendar day across
// [from, to]. Metric samples for the same day sum across sources; sleep is
// resolved by source priority first.
func BuildDays(metricRows []models.MetricSampleRow, sleepRows []models.SleepSampleRow, priority []string, from, to time.Time) map[time.Time]models.MetricBundle {
	days := make(map[time.Time]models.MetricBundle)
	for _, d := range period.DaysBetween(from, to) {
		days[d] = models.MetricBundle{}
	}

	for _, r := range metricRows {
		day := period.DayOf(r.Day)
		b, ok := days[day]
		if !ok {
			continue
		}
		b.ApplySample(r.MetricName, r.Qty)
		days[day] = b
	}

	for day, r := range ResolveSleep(sleepRows, priority) {
		b, ok := days[day]
		if !ok {
			continue
		}
		b.SleepTotalMinutes += r.TotalMinutes
		b.SleepDeepMinutes += r.DeepMinutes
		b.SleepREMMinutes += r.REMMinutes
		days[day] = b
	}

	return days
}
